package memory

import "tileworld/internal/domain/grid"

type Percept struct {
	Entity     grid.Entity `json:"entity"`
	ObservedAt int64       `json:"observed_at"`
}

// Sighting is what the sensor reported for one tick.
type Sighting struct {
	Entities []grid.Entity
	Agents   []AgentSighting
}

type AgentSighting struct {
	ID  int        `json:"id"`
	Pos grid.Point `json:"pos"`
}

type CellState uint8

const (
	CellUnknown CellState = iota
	CellEmpty
	CellOccupied
)

func (s CellState) String() string {
	switch s {
	case CellEmpty:
		return "empty"
	case CellOccupied:
		return "occupied"
	default:
		return "unknown"
	}
}
