package ports

import (
	"context"

	"tileworld/internal/domain/agent"
	"tileworld/internal/domain/message"
)

type WorldStats struct {
	Tick      int64 `json:"tick"`
	Score     int   `json:"score"`
	Tiles     int   `json:"tiles"`
	Holes     int   `json:"holes"`
	Obstacles int   `json:"obstacles"`
}

// Environment is the simulated world the agents live in. Sense may be
// called concurrently; Step and Apply are called from one goroutine.
type Environment interface {
	Dimensions() (width, height int)
	// Step advances the world clock, ages and spawns objects and returns
	// the new tick.
	Step(ctx context.Context) (int64, error)
	Sense(ctx context.Context, agentID int) (agent.Perception, error)
	// Apply executes intent. A move into an occupied cell returns a
	// *MoveBlockedError and leaves the agent in place.
	Apply(ctx context.Context, agentID int, intent agent.Intent) error
	Stats(ctx context.Context) (WorldStats, error)
}

// Mailbox is the single-tick broadcast buffer. Post is safe for concurrent
// use. Read returns copies, so readers never share payloads.
type Mailbox interface {
	Reset(tick int64)
	Post(ctx context.Context, msgs ...message.Message) error
	Read(ctx context.Context, agentID int) ([]message.Message, error)
}

// AgentRegistry gives read access to live agents between ticks.
type AgentRegistry interface {
	WithAgents(ctx context.Context, fn func(agents []*agent.Agent) error) error
}
