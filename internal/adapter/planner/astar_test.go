package planner

import (
	"testing"

	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
)

func newMemory(t *testing.T, w, h int) *memory.Memory {
	t.Helper()
	p, err := memory.NewParams(w, h, 10, 100)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	return memory.New(p)
}

func walk(start grid.Point, path []grid.Direction) grid.Point {
	for _, d := range path {
		start = start.Add(d.Delta())
	}
	return start
}

func TestAStar_StraightLine(t *testing.T) {
	mem := newMemory(t, 5, 5)
	start := grid.Point{X: 0, Y: 0}
	a := NewAStar(mem, func() grid.Point { return start })
	a.SetGoals([]grid.Point{{X: 3, Y: 0}})
	if !a.GeneratePlan() || !a.HasPlan() {
		t.Fatalf("expected a plan")
	}
	if got := a.path; len(got) != 3 || walk(start, got) != (grid.Point{X: 3, Y: 0}) {
		t.Fatalf("unexpected path %v", got)
	}
	if d := a.Execute(); d != grid.East {
		t.Fatalf("expected first step east, got %v", d)
	}
	if len(a.path) != 2 {
		t.Fatalf("Execute should consume one step")
	}
}

func TestAStar_DetoursAroundRememberedObstacles(t *testing.T) {
	mem := newMemory(t, 5, 5)
	var wall []grid.Entity
	for y := 0; y < 4; y++ {
		wall = append(wall, grid.Entity{Kind: grid.KindObstacle, Pos: grid.Point{X: 2, Y: y}})
	}
	mem.UpdateFromSensing(1, grid.Point{X: 2, Y: 2}, memory.Sighting{Entities: wall})

	start := grid.Point{X: 0, Y: 0}
	a := NewAStar(mem, func() grid.Point { return start })
	a.SetGoals([]grid.Point{{X: 4, Y: 0}})
	if !a.GeneratePlan() {
		t.Fatalf("expected a detour plan")
	}
	path := a.path
	if len(path) != 12 || walk(start, path) != (grid.Point{X: 4, Y: 0}) {
		t.Fatalf("expected 12-step detour through row 4, got %d steps %v", len(path), path)
	}
}

func TestAStar_NoPlan(t *testing.T) {
	mem := newMemory(t, 3, 3)
	mem.UpdateFromSensing(1, grid.Point{X: 1, Y: 1}, memory.Sighting{Entities: []grid.Entity{
		{Kind: grid.KindObstacle, Pos: grid.Point{X: 1, Y: 0}},
		{Kind: grid.KindObstacle, Pos: grid.Point{X: 0, Y: 1}},
		{Kind: grid.KindObstacle, Pos: grid.Point{X: 2, Y: 2}},
	}})
	start := grid.Point{X: 0, Y: 0}
	a := NewAStar(mem, func() grid.Point { return start })

	a.SetGoals([]grid.Point{{X: 2, Y: 2}})
	if a.GeneratePlan() {
		t.Fatalf("blocked goal should have no plan")
	}
	a.SetGoals([]grid.Point{{X: 1, Y: 1}})
	if a.GeneratePlan() || a.HasPlan() {
		t.Fatalf("walled-in start should have no plan")
	}
	a.SetGoals([]grid.Point{start})
	if a.GeneratePlan() {
		t.Fatalf("goal at origin should have nothing to execute")
	}
	a.ClearGoals()
	if a.GeneratePlan() || a.Execute() != grid.Stay {
		t.Fatalf("cleared planner should stay")
	}
}

func TestAStar_AvoidsSightedAgents(t *testing.T) {
	mem := newMemory(t, 3, 2)
	mem.UpdateFromSensing(1, grid.Point{X: 0, Y: 0}, memory.Sighting{Agents: []memory.AgentSighting{{ID: 2, Pos: grid.Point{X: 1, Y: 0}}}})
	start := grid.Point{X: 0, Y: 0}
	a := NewAStar(mem, func() grid.Point { return start })
	a.SetGoals([]grid.Point{{X: 2, Y: 0}})
	if !a.GeneratePlan() {
		t.Fatalf("expected a plan around the agent")
	}
	if d := a.Execute(); d != grid.South {
		t.Fatalf("expected to step around agent 2, got %v", d)
	}
}

func TestAStar_SearchLimitCountsClosedCellsOnly(t *testing.T) {
	mem := newMemory(t, 5, 5)
	var wall []grid.Entity
	for y := 0; y < 4; y++ {
		wall = append(wall, grid.Entity{Kind: grid.KindObstacle, Pos: grid.Point{X: 2, Y: y}})
	}
	mem.UpdateFromSensing(1, grid.Point{X: 2, Y: 2}, memory.Sighting{Entities: wall})

	start := grid.Point{X: 0, Y: 0}
	a := NewAStar(mem, func() grid.Point { return start })
	// Exactly the free cells: re-queued cells must not use up the budget.
	a.MaxExpand = 5*5 - len(wall)
	a.SetGoals([]grid.Point{{X: 4, Y: 0}})
	if !a.GeneratePlan() {
		t.Fatalf("expected a plan within %d expansions", a.MaxExpand)
	}
	if len(a.path) != 12 {
		t.Fatalf("expected 12-step detour, got %d", len(a.path))
	}
}
