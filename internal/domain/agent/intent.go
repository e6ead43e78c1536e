package agent

import (
	"fmt"

	"tileworld/internal/domain/grid"
)

type Action uint8

const (
	ActionMove Action = iota
	ActionPickup
	ActionPutdown
	ActionRefuel
)

var actionNames = [...]string{
	ActionMove:    "move",
	ActionPickup:  "pickup",
	ActionPutdown: "putdown",
	ActionRefuel:  "refuel",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

func (a Action) MarshalText() ([]byte, error) {
	if int(a) >= len(actionNames) {
		return nil, fmt.Errorf("invalid action %d", uint8(a))
	}
	return []byte(actionNames[a]), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	for i, name := range actionNames {
		if name == string(b) {
			*a = Action(i)
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", string(b))
}

// Intent is the single thing an agent asks the environment to do this tick.
type Intent struct {
	Action    Action         `json:"action"`
	Direction grid.Direction `json:"direction"`
}

func Stay() Intent { return Intent{Action: ActionMove, Direction: grid.Stay} }

func Move(d grid.Direction) Intent { return Intent{Action: ActionMove, Direction: d} }
