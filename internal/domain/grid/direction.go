package grid

import "fmt"

type Direction uint8

const (
	Stay Direction = iota
	North
	South
	East
	West
)

var directionDeltas = [...]Point{
	Stay:  {},
	North: {X: 0, Y: -1},
	South: {X: 0, Y: 1},
	East:  {X: 1, Y: 0},
	West:  {X: -1, Y: 0},
}

var directionNames = [...]string{
	Stay:  "Z",
	North: "N",
	South: "S",
	East:  "E",
	West:  "W",
}

// Moves lists the four directions that change position.
var Moves = [4]Direction{North, South, East, West}

func (d Direction) Delta() Point {
	if int(d) >= len(directionDeltas) {
		return Point{}
	}
	return directionDeltas[d]
}

func (d Direction) String() string {
	if int(d) >= len(directionNames) {
		return "?"
	}
	return directionNames[d]
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Toward returns the single step direction from a to an orthogonally
// adjacent b, or Stay when they are not adjacent.
func Toward(a, b Point) Direction {
	for _, d := range Moves {
		if a.Add(d.Delta()) == b {
			return d
		}
	}
	return Stay
}

func (d *Direction) UnmarshalText(b []byte) error {
	for i, name := range directionNames {
		if name == string(b) {
			*d = Direction(i)
			return nil
		}
	}
	return fmt.Errorf("unknown direction %q", string(b))
}
