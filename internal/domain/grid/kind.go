package grid

import "fmt"

type Kind uint8

const (
	KindTile Kind = iota
	KindHole
	KindFuelStation
	KindObstacle
	KindAgent

	NumKinds = int(KindAgent) + 1
)

var kindNames = [NumKinds]string{
	KindTile:        "tile",
	KindHole:        "hole",
	KindFuelStation: "fuel_station",
	KindObstacle:    "obstacle",
	KindAgent:       "agent",
}

func (k Kind) Valid() bool { return int(k) < NumKinds }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown kind %q", string(b))
	}
	*k = parsed
	return nil
}

func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// Entity is identified by (Kind, Pos); two entities with the same kind at
// the same cell are the same object.
type Entity struct {
	Kind Kind  `json:"kind"`
	Pos  Point `json:"pos"`
}

// Work reports whether the kind is a tile or a hole.
func (k Kind) Work() bool {
	return k == KindTile || k == KindHole
}
