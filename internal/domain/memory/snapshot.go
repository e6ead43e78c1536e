package memory

import "tileworld/internal/domain/grid"

// Snapshot is an immutable copy of a memory's percepts, suitable for
// sending to peers.
type Snapshot struct {
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Tick        int64       `json:"tick"`
	Percepts    []Percept   `json:"percepts"`
	FuelStation *grid.Point `json:"fuel_station,omitempty"`
}

func (m *Memory) Snapshot() Snapshot {
	s := Snapshot{
		Width:  m.params.Width,
		Height: m.params.Height,
		Tick:   m.now,
	}
	for i, ok := range m.known {
		if ok {
			s.Percepts = append(s.Percepts, m.percepts[i])
		}
	}
	if m.fuelKnown {
		fs := m.fuel
		s.FuelStation = &fs
	}
	return s
}

// Restore rebuilds a memory from a checkpointed snapshot. Exploration
// scores restart at zero for remembered cells and never-seen elsewhere.
func Restore(params Params, s Snapshot) *Memory {
	m := New(params)
	m.now = s.Tick
	for _, p := range s.Percepts {
		if !m.InBounds(p.Entity.Pos) || !p.Entity.Kind.Valid() {
			continue
		}
		i := m.index(p.Entity.Pos)
		m.percepts[i] = p
		m.known[i] = true
		m.scores[i] = 0
	}
	if s.FuelStation != nil && m.InBounds(*s.FuelStation) {
		m.fuel = *s.FuelStation
		m.fuelKnown = true
	}
	return m
}
