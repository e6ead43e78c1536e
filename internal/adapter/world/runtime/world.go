// Package runtime is a reference Tileworld: a bounded grid with tiles,
// holes, obstacles and one fuel station, driven one tick at a time.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"tileworld/internal/app/ports"
	"tileworld/internal/domain/agent"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
	"tileworld/internal/domain/mode"
)

var ErrOccupied = errors.New("cell occupied")

type Config struct {
	Width, Height int
	Seed          uint64
	Agents        int
	SensorRange   int
	// Lifetime is how many ticks tiles and holes live before vanishing.
	Lifetime int64
	MaxFuel  float64
	Capacity int
	// TileRate and HoleRate are the expected spawns per tick.
	TileRate    float64
	HoleRate    float64
	ObstaclePct int
	// StartTick is the clock a resumed run continues from.
	StartTick int64
}

func DefaultConfig() Config {
	return Config{
		Width:       50,
		Height:      50,
		Seed:        1,
		Agents:      5,
		SensorRange: 3,
		Lifetime:    100,
		MaxFuel:     500,
		Capacity:    3,
		TileRate:    0.6,
		HoleRate:    0.6,
		ObstaclePct: 5,
	}
}

type object struct {
	kind grid.Kind
	born int64
}

type agentState struct {
	pos     grid.Point
	fuel    float64
	carried int
}

type World struct {
	cfg    Config
	bounds grid.Rect

	mu     sync.RWMutex
	rng    *rand.Rand
	tick   int64
	score  int
	cells  []*object
	fuel   grid.Point
	agents map[int]*agentState
	counts [grid.NumKinds]int
}

func NewWorld(cfg Config) (*World, error) {
	def := DefaultConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.SensorRange <= 0 {
		cfg.SensorRange = def.SensorRange
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = def.Lifetime
	}
	if cfg.MaxFuel <= 0 {
		cfg.MaxFuel = def.MaxFuel
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	w := &World{
		cfg:    cfg,
		bounds: grid.NewRect(cfg.Width, cfg.Height),
		rng:    rand.New(rand.NewPCG(cfg.Seed, 0x9e3779b97f4a7c15)),
		cells:  make([]*object, cfg.Width*cfg.Height),
		agents: map[int]*agentState{},
		tick:   max(cfg.StartTick, 0),
	}

	w.fuel = w.freeCellNear(grid.Point{X: cfg.Width / 2, Y: cfg.Height / 2})
	w.cells[w.index(w.fuel)] = &object{kind: grid.KindFuelStation}
	w.counts[grid.KindFuelStation]++
	if cfg.ObstaclePct > 0 {
		w.bounds.Each(func(p grid.Point) {
			if p != w.fuel && tileSeed(p.X, p.Y, cfg.Seed)%100 < cfg.ObstaclePct {
				w.cells[w.index(p)] = &object{kind: grid.KindObstacle}
				w.counts[grid.KindObstacle]++
			}
		})
	}
	for id := 1; id <= cfg.Agents; id++ {
		p, ok := w.randomFreeCell()
		if !ok {
			return nil, fmt.Errorf("place agent %d: no free cell", id)
		}
		w.agents[id] = &agentState{pos: p, fuel: cfg.MaxFuel}
	}
	return w, nil
}

func (w *World) Dimensions() (int, int) { return w.cfg.Width, w.cfg.Height }

func (w *World) Config() Config { return w.cfg }

// AgentIDs lists the agents placed in the world in id order.
func (w *World) AgentIDs() []int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]int, 0, len(w.agents))
	for id := range w.agents {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AddAgent places a new agent with a full tank at p.
func (w *World) AddAgent(id int, p grid.Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id <= 0 {
		return fmt.Errorf("agent id %d must be positive", id)
	}
	if _, ok := w.agents[id]; ok {
		return fmt.Errorf("agent %d: %w", id, ports.ErrConflict)
	}
	if !w.passable(p) {
		return fmt.Errorf("place agent %d at (%d,%d): %w", id, p.X, p.Y, ErrOccupied)
	}
	w.agents[id] = &agentState{pos: p, fuel: w.cfg.MaxFuel}
	return nil
}

// Put places a tile, hole or obstacle born at the current tick.
func (w *World) Put(e grid.Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch e.Kind {
	case grid.KindTile, grid.KindHole, grid.KindObstacle:
	default:
		return fmt.Errorf("put %s: unsupported kind", e.Kind)
	}
	if !w.bounds.Contains(e.Pos) || w.cells[w.index(e.Pos)] != nil {
		return fmt.Errorf("put %s at (%d,%d): %w", e.Kind, e.Pos.X, e.Pos.Y, ErrOccupied)
	}
	w.cells[w.index(e.Pos)] = &object{kind: e.Kind, born: w.tick}
	w.counts[e.Kind]++
	return nil
}

func (w *World) FuelStation() grid.Point { return w.fuel }

func (w *World) Step(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick++
	for i, o := range w.cells {
		if o != nil && o.kind.Work() && w.tick-o.born >= w.cfg.Lifetime {
			w.cells[i] = nil
			w.counts[o.kind]--
		}
	}
	w.spawn(grid.KindTile, w.cfg.TileRate)
	w.spawn(grid.KindHole, w.cfg.HoleRate)
	return w.tick, nil
}

func (w *World) spawn(kind grid.Kind, rate float64) {
	if rate <= 0 {
		return
	}
	n := int(rate)
	if w.rng.Float64() < rate-float64(n) {
		n++
	}
	for ; n > 0; n-- {
		p, ok := w.randomFreeCell()
		if !ok {
			return
		}
		w.cells[w.index(p)] = &object{kind: kind, born: w.tick}
		w.counts[kind]++
	}
}

func (w *World) Sense(_ context.Context, agentID int) (agent.Perception, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.agents[agentID]
	if !ok {
		return agent.Perception{}, fmt.Errorf("agent %d: %w", agentID, ports.ErrNotFound)
	}
	p := agent.Perception{Tick: w.tick, Self: a.pos, Fuel: a.fuel, Carried: a.carried}
	view := w.bounds.Square(a.pos, w.cfg.SensorRange)
	view.Each(func(q grid.Point) {
		if o := w.cells[w.index(q)]; o != nil {
			p.Sighting.Entities = append(p.Sighting.Entities, grid.Entity{Kind: o.kind, Pos: q})
		}
	})
	for id, other := range w.agents {
		if id != agentID && view.Contains(other.pos) {
			p.Sighting.Agents = append(p.Sighting.Agents, memory.AgentSighting{ID: id, Pos: other.pos})
		}
	}
	sort.Slice(p.Sighting.Agents, func(i, j int) bool { return p.Sighting.Agents[i].ID < p.Sighting.Agents[j].ID })
	if o := w.cells[w.index(a.pos)]; o != nil {
		e := grid.Entity{Kind: o.kind, Pos: a.pos}
		p.Here = mode.Cell{
			Entity:     &e,
			CanPickup:  o.kind == grid.KindTile && a.carried < w.cfg.Capacity,
			CanPutdown: o.kind == grid.KindHole && a.carried > 0,
		}
	}
	return p, nil
}

// Apply executes one intent. Moves cost one unit of fuel; an agent with
// an empty tank stays where it is. Acts that do not apply to the agent's
// cell are no-ops.
func (w *World) Apply(_ context.Context, agentID int, intent agent.Intent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.agents[agentID]
	if !ok {
		return fmt.Errorf("agent %d: %w", agentID, ports.ErrNotFound)
	}
	here := w.cells[w.index(a.pos)]
	switch intent.Action {
	case agent.ActionMove:
		if intent.Direction == grid.Stay || a.fuel < 1 {
			return nil
		}
		target := a.pos.Add(intent.Direction.Delta())
		if !w.passable(target) {
			return &ports.MoveBlockedError{AgentID: agentID, Target: target}
		}
		a.pos = target
		a.fuel--
	case agent.ActionPickup:
		if here != nil && here.kind == grid.KindTile && a.carried < w.cfg.Capacity {
			w.cells[w.index(a.pos)] = nil
			w.counts[grid.KindTile]--
			a.carried++
		}
	case agent.ActionPutdown:
		if here != nil && here.kind == grid.KindHole && a.carried > 0 {
			w.cells[w.index(a.pos)] = nil
			w.counts[grid.KindHole]--
			a.carried--
			w.score++
		}
	case agent.ActionRefuel:
		if a.pos == w.fuel {
			a.fuel = w.cfg.MaxFuel
		}
	}
	return nil
}

func (w *World) Stats(_ context.Context) (ports.WorldStats, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ports.WorldStats{
		Tick:      w.tick,
		Score:     w.score,
		Tiles:     w.counts[grid.KindTile],
		Holes:     w.counts[grid.KindHole],
		Obstacles: w.counts[grid.KindObstacle],
	}, nil
}

func (w *World) index(p grid.Point) int { return p.Y*w.cfg.Width + p.X }

// passable reports whether an agent may step onto p. Tiles, holes and the
// fuel station can be stood on.
func (w *World) passable(p grid.Point) bool {
	if !w.bounds.Contains(p) {
		return false
	}
	if o := w.cells[w.index(p)]; o != nil && o.kind == grid.KindObstacle {
		return false
	}
	for _, other := range w.agents {
		if other.pos == p {
			return false
		}
	}
	return true
}

func (w *World) free(p grid.Point) bool {
	return w.passable(p) && w.cells[w.index(p)] == nil
}

func (w *World) randomFreeCell() (grid.Point, bool) {
	for try := 0; try < 64; try++ {
		p := grid.Point{X: w.rng.IntN(w.cfg.Width), Y: w.rng.IntN(w.cfg.Height)}
		if w.free(p) {
			return p, true
		}
	}
	return grid.Point{}, false
}

func (w *World) freeCellNear(c grid.Point) grid.Point {
	for r := 0; r < w.cfg.Width+w.cfg.Height; r++ {
		found, ok := grid.Point{}, false
		w.bounds.Square(c, r).Each(func(p grid.Point) {
			if !ok && w.free(p) {
				found, ok = p, true
			}
		})
		if ok {
			return found
		}
	}
	return c
}

func tileSeed(x, y int, seed uint64) int {
	v := x*73856093 ^ y*19349663 ^ int(seed%1000003)*83492791
	if v < 0 {
		v = -v
	}
	return v
}
