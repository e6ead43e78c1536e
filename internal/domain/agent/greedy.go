package agent

import (
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/message"
	"tileworld/internal/domain/mode"
)

// Greedy shares memory but ignores zones, auctions and claims. It chases
// the nearest remembered work and wanders to random cells otherwise.
type Greedy struct {
	Capacity    int
	RefuelLevel float64
	Recency     int64

	target    grid.Point
	hasTarget bool
}

func NewGreedy(capacity int, refuelLevel float64, recency int64) *Greedy {
	return &Greedy{Capacity: capacity, RefuelLevel: refuelLevel, Recency: recency}
}

func (g *Greedy) Name() string { return "greedy" }

func (g *Greedy) Communicate(*Agent, Perception) []message.Message { return nil }

func (g *Greedy) Decide(a *Agent, p Perception, _ []message.Message) mode.Decision {
	if e := p.Here.Entity; e != nil {
		switch {
		case e.Kind == grid.KindHole && p.Here.CanPutdown && p.Carried > 0:
			return mode.Decision{Mode: mode.ReactFill, Goal: p.Self, Reactive: true}
		case e.Kind == grid.KindTile && p.Here.CanPickup && p.Carried < g.Capacity:
			return mode.Decision{Mode: mode.ReactCollect, Goal: p.Self, Reactive: true}
		case e.Kind == grid.KindFuelStation && p.Fuel < g.RefuelLevel:
			return mode.Decision{Mode: mode.Refuel, Goal: p.Self, Reactive: true}
		}
	}

	if fs, ok := a.Memory.FuelStation(); ok && p.Fuel < g.RefuelLevel {
		return mode.Decision{Mode: mode.Refuel, Goal: fs}
	}
	if p.Carried > 0 {
		if h, ok := g.nearest(a, p.Self, grid.KindHole); ok {
			return mode.Decision{Mode: mode.Fill, Goal: h.Pos}
		}
	}
	if p.Carried < g.Capacity {
		if t, ok := g.nearest(a, p.Self, grid.KindTile); ok {
			return mode.Decision{Mode: mode.Collect, Goal: t.Pos}
		}
	}

	if !g.hasTarget || g.target == p.Self || a.Memory.IsBlocked(g.target) {
		params := a.Memory.Params()
		g.target = grid.Point{X: a.Rand().IntN(params.Width), Y: a.Rand().IntN(params.Height)}
		g.hasTarget = true
	}
	return mode.Decision{Mode: mode.Explore, Goal: g.target}
}

// nearest prefers what the agent sees right now over the memory scan.
func (g *Greedy) nearest(a *Agent, self grid.Point, kind grid.Kind) (grid.Entity, bool) {
	if e, ok := a.Memory.ClosestInSensorRange(kind); ok {
		return e, true
	}
	return a.Memory.QueryNearestOfType(self, kind, g.Recency)
}
