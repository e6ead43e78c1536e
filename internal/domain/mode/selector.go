package mode

import (
	"tileworld/internal/domain/contract"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
)

type Params struct {
	FuelTolerance float64
	HardFuelLimit float64
	// RefuelMark is the fuel level below which an agent standing on the
	// station refuels on the spot.
	RefuelMark  float64
	Capacity    int
	AllowAssist bool
}

func DefaultParams(maxFuel float64) Params {
	return Params{
		FuelTolerance: 0.8,
		HardFuelLimit: 50,
		RefuelMark:    0.75 * maxFuel,
		Capacity:      3,
		AllowAssist:   true,
	}
}

// Cell is the environment's ground truth for the agent's own cell.
type Cell struct {
	Entity     *grid.Entity
	CanPickup  bool
	CanPutdown bool
}

type View struct {
	Self    grid.Point
	Fuel    float64
	Carried int
	Here    Cell
	Memory  *memory.Memory
	Board   contract.Board
	Anchors []grid.Point
}

// Decision is exactly one mode and one goal cell. Reactive decisions act on
// the current cell instead of moving. Claim, when set, must be broadcast as
// a goal claim this tick.
type Decision struct {
	Mode     Mode         `json:"mode"`
	Goal     grid.Point   `json:"goal"`
	Reactive bool         `json:"reactive"`
	Claim    *grid.Entity `json:"claim,omitempty"`
}

type Selector struct {
	params Params
	coord  *contract.Coordinator
}

func NewSelector(p Params, coord *contract.Coordinator) *Selector {
	return &Selector{params: p, coord: coord}
}

func (s *Selector) Params() Params { return s.params }

func (s *Selector) Decide(v View) Decision {
	if d, ok := s.react(v); ok {
		return d
	}

	fuel, known := v.Memory.FuelStation()
	switch {
	case !known && v.Fuel <= s.params.HardFuelLimit:
		return Decision{Mode: Wait, Goal: v.Self}
	case !known:
		return s.explore(v)
	case float64(grid.Manhattan(v.Self, fuel)) >= v.Fuel*s.params.FuelTolerance,
		v.Fuel <= s.params.HardFuelLimit:
		return Decision{Mode: Refuel, Goal: fuel}
	}

	tiles := v.Board.Tiles.Candidates()
	holes := v.Board.Holes.Candidates()
	switch {
	case v.Carried == 0 && len(tiles) > 0:
		return Decision{Mode: Collect, Goal: tiles[0].Pos}
	case v.Carried > 0 && len(holes) > 0:
		if len(tiles) == 0 || v.Carried >= s.params.Capacity ||
			s.coord.Distance(v.Memory, v.Self, holes[0]) <= s.coord.Distance(v.Memory, v.Self, tiles[0]) {
			return Decision{Mode: Fill, Goal: holes[0].Pos}
		}
		return Decision{Mode: Collect, Goal: tiles[0].Pos}
	case v.Carried < s.params.Capacity && len(tiles) > 0:
		return Decision{Mode: Collect, Goal: tiles[0].Pos}
	}

	if s.params.AllowAssist {
		if v.Carried > 0 && len(v.Board.AssistHoles) > 0 {
			return assist(AssistFill, v.Board.AssistHoles[0])
		}
		if v.Carried < s.params.Capacity && len(v.Board.AssistTiles) > 0 {
			return assist(AssistCollect, v.Board.AssistTiles[0])
		}
	}
	return s.explore(v)
}

func assist(m Mode, e grid.Entity) Decision {
	return Decision{Mode: m, Goal: e.Pos, Claim: &e}
}

func (s *Selector) react(v View) (Decision, bool) {
	if v.Here.Entity == nil {
		return Decision{}, false
	}
	e := *v.Here.Entity
	switch {
	case e.Kind == grid.KindHole && v.Here.CanPutdown && v.Carried > 0:
		return Decision{Mode: ReactFill, Goal: v.Self, Reactive: true, Claim: &e}, true
	case e.Kind == grid.KindTile && v.Here.CanPickup && v.Carried < s.params.Capacity:
		return Decision{Mode: ReactCollect, Goal: v.Self, Reactive: true, Claim: &e}, true
	case e.Kind == grid.KindFuelStation && v.Fuel < s.params.RefuelMark:
		return Decision{Mode: Refuel, Goal: v.Self, Reactive: true}, true
	}
	return Decision{}, false
}

func (s *Selector) explore(v View) Decision {
	return Decision{Mode: Explore, Goal: ExploreTarget(v.Memory, v.Self, v.Anchors)}
}

// ExploreTarget picks the stalest anchor, preferring the closer one on a
// tie. A blocked anchor is swapped for its best unblocked neighbour.
func ExploreTarget(mem *memory.Memory, self grid.Point, anchors []grid.Point) grid.Point {
	if len(anchors) == 0 {
		return self
	}
	best := anchors[0]
	bestScore := mem.ExplorationScoreOf(best)
	for _, a := range anchors[1:] {
		score := mem.ExplorationScoreOf(a)
		if score > bestScore || (score == bestScore && grid.Manhattan(self, a) < grid.Manhattan(self, best)) {
			best, bestScore = a, score
		}
	}
	if !mem.IsBlocked(best) {
		return best
	}

	alt, altScore, found := best, 0.0, false
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			p := grid.Point{X: best.X + dx, Y: best.Y + dy}
			if p == best || !mem.InBounds(p) || mem.IsBlocked(p) {
				continue
			}
			score := mem.ExplorationScoreOf(p)
			if !found || score > altScore {
				alt, altScore, found = p, score, true
			}
		}
	}
	return alt
}
