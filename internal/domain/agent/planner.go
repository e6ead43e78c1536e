package agent

import "tileworld/internal/domain/grid"

// Planner turns goal cells into single-step directions. Implementations
// keep their own plan between GeneratePlan and Execute.
type Planner interface {
	SetGoals(goals []grid.Point)
	ClearGoals()
	GeneratePlan() bool
	HasPlan() bool
	// Execute consumes and returns the next step of the current plan.
	Execute() grid.Direction
}
