package message

import (
	"fmt"

	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
)

// Broadcast is the receiver id addressing every agent.
const Broadcast = 0

type Type uint8

const (
	TypeAgentInfo Type = iota + 1
	TypeGoalInfo
	TypeContractTile
	TypeContractHole
)

var typeNames = map[Type]string{
	TypeAgentInfo:    "agent_info",
	TypeGoalInfo:     "goal_info",
	TypeContractTile: "contract_tile",
	TypeContractHole: "contract_hole",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func (t Type) MarshalText() ([]byte, error) {
	s, ok := typeNames[t]
	if !ok {
		return nil, fmt.Errorf("invalid message type %d", uint8(t))
	}
	return []byte(s), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	for k, v := range typeNames {
		if v == string(b) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown message type %q", string(b))
}

// ContractType is the message type announcing auctions of kind.
func ContractType(kind grid.Kind) (Type, bool) {
	switch kind {
	case grid.KindTile:
		return TypeContractTile, true
	case grid.KindHole:
		return TypeContractHole, true
	default:
		return 0, false
	}
}

// Payload is implemented by AgentSnapshot, GoalClaim and Contract.
type Payload interface {
	Type() Type
}

type AgentSnapshot struct {
	Position grid.Point      `json:"position"`
	Memory   memory.Snapshot `json:"memory"`
}

func (AgentSnapshot) Type() Type { return TypeAgentInfo }

type GoalClaim struct {
	Entities []grid.Entity `json:"entities"`
}

func (GoalClaim) Type() Type { return TypeGoalInfo }

type Contract struct {
	Kind     grid.Kind     `json:"kind"`
	Entities []grid.Entity `json:"entities"`
	ZoneID   int           `json:"zone_id"`
}

func (c Contract) Type() Type {
	t, _ := ContractType(c.Kind)
	return t
}

type Message struct {
	Sender   int
	Receiver int
	Payload  Payload
}

func (m Message) Type() Type {
	if m.Payload == nil {
		return 0
	}
	return m.Payload.Type()
}

func NewBroadcast(sender int, p Payload) Message {
	return Message{Sender: sender, Receiver: Broadcast, Payload: p}
}

// For reports whether agentID should read m.
func (m Message) For(agentID int) bool {
	return m.Receiver == Broadcast || m.Receiver == agentID
}
