package mode

import "fmt"

type Mode uint8

const (
	Explore Mode = iota
	Collect
	Fill
	Refuel
	AssistCollect
	AssistFill
	ReactCollect
	ReactFill
	Wait
)

var modeNames = [...]string{
	Explore:       "explore",
	Collect:       "collect",
	Fill:          "fill",
	Refuel:        "refuel",
	AssistCollect: "assist_collect",
	AssistFill:    "assist_fill",
	ReactCollect:  "react_collect",
	ReactFill:     "react_fill",
	Wait:          "wait",
}

// All lists every mode in declaration order.
var All = []Mode{Explore, Collect, Fill, Refuel, AssistCollect, AssistFill, ReactCollect, ReactFill, Wait}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	if int(m) >= len(modeNames) {
		return nil, fmt.Errorf("invalid mode %d", uint8(m))
	}
	return []byte(modeNames[m]), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	for i, name := range modeNames {
		if name == string(b) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", string(b))
}
