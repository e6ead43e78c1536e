package memory

import (
	"math"

	"tileworld/internal/domain/grid"
)

var (
	// NeverSeen marks cells no observation has ever covered.
	NeverSeen = math.Inf(1)
	// Evicted marks cells whose percept expired; they rank just below
	// never-seen cells for re-exploration.
	Evicted = math.MaxFloat64
)

type closestEntry struct {
	entity grid.Entity
	ok     bool
}

// Memory is one agent's belief store. It is owned by a single agent and
// is not safe for concurrent use.
type Memory struct {
	params Params
	bounds grid.Rect

	percepts []Percept
	known    []bool
	// emptySince is the tick at which the cell was last confirmed empty by
	// this agent's own sensing, -1 if never.
	emptySince []int64
	scores     []float64

	fuel       grid.Point
	fuelKnown  bool
	closest    [grid.NumKinds]closestEntry
	neighbours []AgentSighting
	now        int64
}

func New(params Params) *Memory {
	n := params.Width * params.Height
	m := &Memory{
		params:     params,
		bounds:     params.Bounds(),
		percepts:   make([]Percept, n),
		known:      make([]bool, n),
		emptySince: make([]int64, n),
		scores:     make([]float64, n),
	}
	for i := range n {
		m.scores[i] = NeverSeen
		m.emptySince[i] = -1
	}
	return m
}

func (m *Memory) Params() Params { return m.params }

// Now is the tick of the most recent update or decay.
func (m *Memory) Now() int64 { return m.now }

func (m *Memory) index(p grid.Point) int {
	return p.Y*m.params.Width + p.X
}

func (m *Memory) InBounds(p grid.Point) bool {
	return m.bounds.Contains(p)
}

// UpdateFromSensing decays the memory to now and folds in this tick's
// sensor reading taken at self.
func (m *Memory) UpdateFromSensing(now int64, self grid.Point, s Sighting) {
	m.Decay(now)
	m.closest = [grid.NumKinds]closestEntry{}

	m.bounds.Square(self, m.params.SensorRange).Each(func(p grid.Point) {
		i := m.index(p)
		m.scores[i] = 0
		if m.known[i] && m.percepts[i].Entity.Kind == grid.KindFuelStation {
			return
		}
		m.known[i] = false
		m.percepts[i] = Percept{}
		m.emptySince[i] = now
	})

	for _, e := range s.Entities {
		if !m.InBounds(e.Pos) || !e.Kind.Valid() || e.Kind == grid.KindAgent {
			continue
		}
		if e.Kind == grid.KindFuelStation && !m.fuelKnown {
			m.fuel = e.Pos
			m.fuelKnown = true
		}
		i := m.index(e.Pos)
		m.percepts[i] = Percept{Entity: e, ObservedAt: now}
		m.known[i] = true
		m.scores[i] = 0
		m.updateClosest(self, e)
	}

	m.neighbours = m.neighbours[:0]
	for _, a := range s.Agents {
		if a.Pos != self {
			m.neighbours = append(m.neighbours, a)
		}
		m.resetScores(a.Pos)
	}
}

func (m *Memory) updateClosest(self grid.Point, e grid.Entity) {
	cur := m.closest[e.Kind]
	if !cur.ok || grid.Manhattan(self, e.Pos) < grid.Manhattan(self, cur.entity.Pos) {
		m.closest[e.Kind] = closestEntry{entity: e, ok: true}
	}
}

// Decay ages every remembered object to now. Objects whose estimated
// remaining lifetime has run out are evicted and their cell marked for
// re-exploration. Fuel stations never expire.
func (m *Memory) Decay(now int64) {
	if now > m.now {
		m.now = now
	}
	for i := range m.percepts {
		if !m.known[i] {
			continue
		}
		p := m.percepts[i]
		if p.Entity.Kind == grid.KindFuelStation || m.remaining(p, 1.0) > 0 {
			m.scores[i] += m.params.DecayStep
			continue
		}
		m.known[i] = false
		m.percepts[i] = Percept{}
		m.scores[i] = Evicted
	}
}

func (m *Memory) remaining(p Percept, threshold float64) float64 {
	return float64(m.params.Lifetime)*threshold - float64(m.now-p.ObservedAt)
}

// MergeFrom folds a peer's snapshot into this memory. Local data is never
// replaced by older peer data, so merging the same snapshot twice is a
// no-op the second time.
func (m *Memory) MergeFrom(peer Snapshot, peerPos grid.Point) {
	if peer.FuelStation != nil && !m.fuelKnown && m.InBounds(*peer.FuelStation) {
		m.fuel = *peer.FuelStation
		m.fuelKnown = true
	}
	for _, pp := range peer.Percepts {
		pos := pp.Entity.Pos
		if !m.InBounds(pos) || !pp.Entity.Kind.Valid() {
			continue
		}
		i := m.index(pos)
		if pp.Entity.Kind == grid.KindFuelStation && !m.fuelKnown {
			m.fuel = pos
			m.fuelKnown = true
		}
		switch {
		case !m.known[i]:
			if pp.ObservedAt <= m.emptySince[i] {
				continue
			}
			m.percepts[i] = pp
			m.known[i] = true
			m.scores[i] = 0
		case m.percepts[i].Entity.Kind == grid.KindFuelStation:
		case pp.ObservedAt > m.percepts[i].ObservedAt:
			m.percepts[i] = pp
			m.scores[i] = 0
		}
	}
	m.resetScores(peerPos)
}

func (m *Memory) resetScores(center grid.Point) {
	m.bounds.Square(center, m.params.SensorRange).Each(func(p grid.Point) {
		m.scores[m.index(p)] = 0
	})
}

// QueryNearestOfType walks the spiral around origin and returns the first
// object of kind observed within recency ticks. Failing that it returns the
// most recently observed object of kind anywhere in memory.
func (m *Memory) QueryNearestOfType(origin grid.Point, kind grid.Kind, recency int64) (grid.Entity, bool) {
	var (
		best     grid.Entity
		bestAt   int64 = math.MinInt64
		found    bool
		searched = 0
	)
	for _, off := range m.params.Spiral() {
		p := origin.Add(off)
		if !m.InBounds(p) {
			continue
		}
		searched++
		i := m.index(p)
		if !m.known[i] || m.percepts[i].Entity.Kind != kind {
			continue
		}
		pc := m.percepts[i]
		if m.now-pc.ObservedAt <= recency {
			return pc.Entity, true
		}
		if pc.ObservedAt > bestAt {
			best, bestAt, found = pc.Entity, pc.ObservedAt, true
		}
	}
	if searched < len(m.percepts) {
		for i, ok := range m.known {
			if ok && m.percepts[i].Entity.Kind == kind && m.percepts[i].ObservedAt > bestAt {
				best, bestAt, found = m.percepts[i].Entity, m.percepts[i].ObservedAt, true
			}
		}
	}
	return best, found
}

// EstimatedRemainingLifetime is L*threshold minus the age of the percept at
// e's cell, or 0 when nothing is remembered there.
func (m *Memory) EstimatedRemainingLifetime(e grid.Entity, threshold float64) float64 {
	if !m.InBounds(e.Pos) {
		return 0
	}
	i := m.index(e.Pos)
	if !m.known[i] {
		return 0
	}
	return m.remaining(m.percepts[i], threshold)
}

// ExplorationScoreOf is the incremental mean of the per-cell scores in the
// sensor-sized square around center.
func (m *Memory) ExplorationScoreOf(center grid.Point) float64 {
	score := 0.0
	n := 0
	m.bounds.Square(center, m.params.SensorRange).Each(func(p grid.Point) {
		n++
		w := 1.0 / float64(n)
		score = score*(1-w) + m.cellScore(p)*w
	})
	return score
}

func (m *Memory) cellScore(p grid.Point) float64 {
	return m.scores[m.index(p)]
}

func (m *Memory) IsBlocked(p grid.Point) bool {
	i := m.index(p)
	return m.known[i] && m.percepts[i].Entity.Kind == grid.KindObstacle
}

func (m *Memory) Lookup(p grid.Point) (Percept, bool) {
	i := m.index(p)
	if !m.known[i] {
		return Percept{}, false
	}
	return m.percepts[i], true
}

func (m *Memory) State(p grid.Point) CellState {
	i := m.index(p)
	switch {
	case m.known[i]:
		return CellOccupied
	case m.scores[i] == NeverSeen || m.scores[i] == Evicted:
		return CellUnknown
	default:
		return CellEmpty
	}
}

func (m *Memory) FuelStation() (grid.Point, bool) {
	return m.fuel, m.fuelKnown
}

// ClosestInSensorRange returns the nearest object of kind seen by the last
// sensing pass, if it has not been forgotten since.
func (m *Memory) ClosestInSensorRange(kind grid.Kind) (grid.Entity, bool) {
	if !kind.Valid() {
		return grid.Entity{}, false
	}
	c := m.closest[kind]
	return c.entity, c.ok
}

func (m *Memory) Neighbours() []AgentSighting {
	out := make([]AgentSighting, len(m.neighbours))
	copy(out, m.neighbours)
	return out
}

// ObjectsWithin lists remembered objects of kind inside r. Fuel stations
// are landmarks, not work, and are never listed.
func (m *Memory) ObjectsWithin(r grid.Rect, kind grid.Kind) []Percept {
	if kind == grid.KindFuelStation {
		return nil
	}
	var out []Percept
	clip := grid.Rect{
		Min: grid.Point{X: max(r.Min.X, 0), Y: max(r.Min.Y, 0)},
		Max: grid.Point{X: min(r.Max.X, m.params.Width), Y: min(r.Max.Y, m.params.Height)},
	}
	clip.Each(func(p grid.Point) {
		i := m.index(p)
		if m.known[i] && m.percepts[i].Entity.Kind == kind {
			out = append(out, m.percepts[i])
		}
	})
	return out
}

// Forget drops whatever is remembered at p, e.g. after the agent picked the
// tile up or filled the hole there.
func (m *Memory) Forget(p grid.Point) {
	if !m.InBounds(p) {
		return
	}
	i := m.index(p)
	if m.known[i] && m.percepts[i].Entity.Kind == grid.KindFuelStation {
		return
	}
	if k := m.percepts[i].Entity.Kind; m.known[i] && k.Valid() && m.closest[k].entity.Pos == p {
		m.closest[k] = closestEntry{}
	}
	m.known[i] = false
	m.percepts[i] = Percept{}
	m.emptySince[i] = m.now
}

// Count returns how many cells currently hold a percept of each kind.
func (m *Memory) Count() [grid.NumKinds]int {
	var out [grid.NumKinds]int
	for i, ok := range m.known {
		if ok {
			out[m.percepts[i].Entity.Kind]++
		}
	}
	return out
}
