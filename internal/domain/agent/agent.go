package agent

import (
	"math/rand/v2"

	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
	"tileworld/internal/domain/message"
	"tileworld/internal/domain/mode"
	"tileworld/internal/domain/zone"
)

const (
	FallbackStay    = "stay"
	FallbackPerturb = "perturb"
	FallbackRandom  = "random"
)

// Strategy decides what an agent does with its fused beliefs. Strategies
// may keep per-agent state between Communicate and Decide of one tick.
type Strategy interface {
	Name() string
	// Communicate returns broadcasts beyond the memory snapshot every
	// agent sends.
	Communicate(a *Agent, p Perception) []message.Message
	Decide(a *Agent, p Perception, inbox []message.Message) mode.Decision
}

type Options struct {
	// Population is the number of AgentInfo senders needed before zones are
	// partitioned. Zero partitions on the first inbox.
	Population int
	Seed       uint64
}

type Agent struct {
	ID       int
	Memory   *memory.Memory
	Planner  Planner
	Strategy Strategy

	population int
	whole      zone.Zone
	assignment *zone.Assignment
	rng        *rand.Rand
	stalls     int
	seen       Perception
	last       Outcome
}

func New(id int, mem *memory.Memory, planner Planner, strategy Strategy, opts Options) *Agent {
	p := mem.Params()
	return &Agent{
		ID:         id,
		Memory:     mem,
		Planner:    planner,
		Strategy:   strategy,
		population: opts.Population,
		whole:      zone.WholeMap(p.Width, p.Height, p.SensorRange),
		rng:        rand.New(rand.NewPCG(opts.Seed, uint64(id))),
	}
}

// Zone is the agent's assigned zone, or the whole map before partitioning.
func (a *Agent) Zone() zone.Zone {
	if a.assignment == nil {
		return a.whole
	}
	if z, ok := a.assignment.ZoneOf(a.ID); ok {
		return z
	}
	return a.whole
}

func (a *Agent) Assignment() (zone.Assignment, bool) {
	if a.assignment == nil {
		return zone.Assignment{}, false
	}
	return *a.assignment, true
}

func (a *Agent) Last() Outcome { return a.last }

// Perception is the most recent sensor report passed to Sense.
func (a *Agent) Perception() Perception { return a.seen }

func (a *Agent) Rand() *rand.Rand { return a.rng }

// Sense folds this tick's sensor reading into memory.
func (a *Agent) Sense(p Perception) {
	a.seen = p
	a.Memory.UpdateFromSensing(p.Tick, p.Self, p.Sighting)
}

// Communicate returns every broadcast of the communicate phase.
func (a *Agent) Communicate(p Perception) []message.Message {
	out := []message.Message{message.NewBroadcast(a.ID, message.AgentSnapshot{
		Position: p.Self,
		Memory:   a.Memory.Snapshot(),
	})}
	return append(out, a.Strategy.Communicate(a, p)...)
}

// Decide merges peers' snapshots from inbox, partitions zones once the
// population is known and turns the strategy's decision into an intent.
func (a *Agent) Decide(p Perception, inbox []message.Message) Outcome {
	a.mergePeers(inbox)
	a.ensureZone(inbox)

	d := a.Strategy.Decide(a, p, inbox)
	out := a.resolve(p, d)
	out.Decision = d
	if d.Claim != nil {
		out.Messages = append(out.Messages, message.NewBroadcast(a.ID, message.GoalClaim{Entities: []grid.Entity{*d.Claim}}))
	}
	a.last = out
	return out
}

func (a *Agent) mergePeers(inbox []message.Message) {
	p := a.Memory.Params()
	for _, m := range inbox {
		snap, ok := m.Payload.(message.AgentSnapshot)
		if !ok || m.Sender == a.ID || !m.For(a.ID) {
			continue
		}
		if snap.Memory.Width != p.Width || snap.Memory.Height != p.Height {
			continue
		}
		a.Memory.MergeFrom(snap.Memory, snap.Position)
	}
}

func (a *Agent) ensureZone(inbox []message.Message) {
	if a.assignment != nil {
		return
	}
	positions := make(map[int]grid.Point)
	for _, m := range inbox {
		if snap, ok := m.Payload.(message.AgentSnapshot); ok && m.For(a.ID) {
			positions[m.Sender] = snap.Position
		}
	}
	if len(positions) == 0 || len(positions) < a.population {
		return
	}
	p := a.Memory.Params()
	assign, err := zone.Partition(p.Width, p.Height, p.SensorRange, positions)
	if err != nil {
		return
	}
	a.assignment = &assign
}

func (a *Agent) resolve(p Perception, d mode.Decision) Outcome {
	if d.Reactive {
		switch d.Mode {
		case mode.ReactFill:
			a.Memory.Forget(p.Self)
			return Outcome{Intent: Intent{Action: ActionPutdown}}
		case mode.ReactCollect:
			a.Memory.Forget(p.Self)
			return Outcome{Intent: Intent{Action: ActionPickup}}
		default:
			return Outcome{Intent: Intent{Action: ActionRefuel}}
		}
	}
	if d.Mode == mode.Wait || d.Goal == p.Self {
		a.stalls = 0
		return Outcome{Intent: Stay()}
	}

	if dir, ok := a.plan(d.Goal); ok {
		a.stalls = 0
		return Outcome{Intent: Move(dir)}
	}
	if d.Mode == mode.Refuel {
		if alt, ok := a.neighbourOf(d.Goal); ok {
			if dir, ok := a.plan(alt); ok {
				a.stalls = 0
				return Outcome{Intent: Move(dir), Fallback: FallbackPerturb}
			}
		}
	}

	a.stalls++
	if a.stalls == 1 {
		return Outcome{Intent: Stay(), Fallback: FallbackStay}
	}
	return Outcome{Intent: Move(a.randomLegalMove(p.Self)), Fallback: FallbackRandom}
}

func (a *Agent) plan(goal grid.Point) (grid.Direction, bool) {
	a.Planner.ClearGoals()
	a.Planner.SetGoals([]grid.Point{goal})
	if !a.Planner.GeneratePlan() || !a.Planner.HasPlan() {
		return grid.Stay, false
	}
	return a.Planner.Execute(), true
}

// neighbourOf picks a random remembered-free 4-neighbour of p.
func (a *Agent) neighbourOf(p grid.Point) (grid.Point, bool) {
	var free []grid.Point
	for _, d := range grid.Moves {
		q := p.Add(d.Delta())
		if a.Memory.InBounds(q) && !a.Memory.IsBlocked(q) {
			free = append(free, q)
		}
	}
	if len(free) == 0 {
		return p, false
	}
	return free[a.rng.IntN(len(free))], true
}

func (a *Agent) randomLegalMove(self grid.Point) grid.Direction {
	var legal []grid.Direction
	for _, d := range grid.Moves {
		q := self.Add(d.Delta())
		if a.Memory.InBounds(q) && !a.Memory.IsBlocked(q) {
			legal = append(legal, d)
		}
	}
	if len(legal) == 0 {
		return grid.Stay
	}
	return legal[a.rng.IntN(len(legal))]
}
