// Package planner plans paths over an agent's remembered map.
package planner

import (
	"container/heap"

	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
)

// AStar finds shortest 4-connected paths avoiding remembered obstacles and
// agents sighted this tick. Unknown cells are assumed free. It is not
// safe for concurrent use; each agent owns one.
type AStar struct {
	Memory *memory.Memory
	// Origin reports where the agent stands when a plan is generated.
	Origin func() grid.Point
	// MaxExpand bounds the search; zero means the whole map.
	MaxExpand int

	goals []grid.Point
	path  []grid.Direction
}

func NewAStar(mem *memory.Memory, origin func() grid.Point) *AStar {
	return &AStar{Memory: mem, Origin: origin}
}

func (a *AStar) SetGoals(goals []grid.Point) {
	a.goals = append(a.goals[:0], goals...)
	a.path = nil
}

func (a *AStar) ClearGoals() {
	a.goals = a.goals[:0]
	a.path = nil
}

func (a *AStar) HasPlan() bool { return len(a.path) > 0 }

func (a *AStar) Execute() grid.Direction {
	if len(a.path) == 0 {
		return grid.Stay
	}
	d := a.path[0]
	a.path = a.path[1:]
	return d
}

// GeneratePlan searches from Origin to the nearest goal. A goal equal to
// the origin yields no plan: there is nothing to execute.
func (a *AStar) GeneratePlan() bool {
	a.path = nil
	if len(a.goals) == 0 || a.Origin == nil {
		return false
	}
	start := a.Origin()
	p := a.Memory.Params()
	width := p.Width
	idx := func(q grid.Point) int { return q.Y*width + q.X }

	isGoal := make(map[grid.Point]bool, len(a.goals))
	for _, g := range a.goals {
		if a.Memory.InBounds(g) && !a.Memory.IsBlocked(g) {
			isGoal[g] = true
		}
	}
	if len(isGoal) == 0 || isGoal[start] {
		return false
	}
	occupied := map[grid.Point]bool{}
	for _, n := range a.Memory.Neighbours() {
		occupied[n.Pos] = true
	}

	h := func(q grid.Point) float64 {
		best := -1
		for g := range isGoal {
			if d := grid.Manhattan(q, g); best < 0 || d < best {
				best = d
			}
		}
		return float64(best)
	}

	limit := a.MaxExpand
	if limit <= 0 {
		limit = p.Width * p.Height
	}
	gScore := map[int]float64{idx(start): 0}
	cameFrom := map[int]grid.Direction{}
	closed := map[int]bool{}
	open := &queue{}
	heap.Push(open, &item{pos: start, priority: h(start)})

	for expanded := 0; open.Len() > 0 && expanded < limit; {
		cur := heap.Pop(open).(*item).pos
		ci := idx(cur)
		if closed[ci] {
			continue
		}
		closed[ci] = true
		expanded++
		if isGoal[cur] {
			a.path = a.reconstruct(start, cur, cameFrom, idx)
			return len(a.path) > 0
		}
		for _, d := range grid.Moves {
			next := cur.Add(d.Delta())
			if !a.Memory.InBounds(next) || a.Memory.IsBlocked(next) {
				continue
			}
			if occupied[next] && !isGoal[next] {
				continue
			}
			ni := idx(next)
			tentative := gScore[ci] + 1
			if old, ok := gScore[ni]; ok && tentative >= old {
				continue
			}
			gScore[ni] = tentative
			cameFrom[ni] = d
			heap.Push(open, &item{pos: next, priority: tentative + h(next)})
		}
	}
	return false
}

func (a *AStar) reconstruct(start, end grid.Point, cameFrom map[int]grid.Direction, idx func(grid.Point) int) []grid.Direction {
	var rev []grid.Direction
	for cur := end; cur != start; {
		d := cameFrom[idx(cur)]
		rev = append(rev, d)
		back := d.Delta()
		cur = grid.Point{X: cur.X - back.X, Y: cur.Y - back.Y}
	}
	path := make([]grid.Direction, len(rev))
	for i, d := range rev {
		path[len(rev)-1-i] = d
	}
	return path
}

type item struct {
	pos      grid.Point
	priority float64
	index    int
}

type queue []*item

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool { return q[i].priority < q[j].priority }

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	it := x.(*item)
	it.index = len(*q)
	*q = append(*q, it)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}
