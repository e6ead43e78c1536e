package agent

import (
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
	"tileworld/internal/domain/message"
	"tileworld/internal/domain/mode"
)

// Perception is the environment's per-tick report for one agent.
type Perception struct {
	Tick     int64           `json:"tick"`
	Self     grid.Point      `json:"self"`
	Fuel     float64         `json:"fuel"`
	Carried  int             `json:"carried"`
	Sighting memory.Sighting `json:"-"`
	Here     mode.Cell       `json:"-"`
}

// Outcome is what an agent produced in its decide phase.
type Outcome struct {
	Intent   Intent            `json:"intent"`
	Decision mode.Decision     `json:"decision"`
	Messages []message.Message `json:"-"`
	// Fallback names the recovery used when no plan existed, empty otherwise.
	Fallback string `json:"fallback,omitempty"`
}
