package agent

import (
	"testing"

	"tileworld/internal/domain/contract"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
	"tileworld/internal/domain/mode"
)

type stubPlanner struct {
	// reachable reports whether a plan to goal exists; nil means always.
	reachable func(goal grid.Point) bool
	dir       grid.Direction
	goals     []grid.Point
	has       bool
	generated int
}

func (p *stubPlanner) SetGoals(goals []grid.Point) { p.goals = append([]grid.Point(nil), goals...) }
func (p *stubPlanner) ClearGoals()                 { p.goals = nil; p.has = false }
func (p *stubPlanner) HasPlan() bool               { return p.has }
func (p *stubPlanner) Execute() grid.Direction     { return p.dir }

func (p *stubPlanner) GeneratePlan() bool {
	p.generated++
	p.has = len(p.goals) > 0 && (p.reachable == nil || p.reachable(p.goals[0]))
	return p.has
}

func newParams(t *testing.T, w, h, r int) memory.Params {
	t.Helper()
	p, err := memory.NewParams(w, h, r, 100)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	return p
}

func newHybridAgent(t *testing.T, id int, params memory.Params, planner Planner, population int) *Agent {
	t.Helper()
	coord := contract.New(contract.DefaultParams())
	sel := mode.NewSelector(mode.DefaultParams(500), coord)
	return New(id, memory.New(params), planner, NewHybrid(coord, sel), Options{Population: population, Seed: 7})
}
