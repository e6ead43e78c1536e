package ports

import (
	"context"
	"time"

	"tileworld/internal/domain/agent"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
	"tileworld/internal/domain/mode"
)

type AgentTick struct {
	AgentID  int           `json:"agent_id"`
	Position grid.Point    `json:"position"`
	Fuel     float64       `json:"fuel"`
	Carried  int           `json:"carried"`
	Zone     int           `json:"zone"`
	Mode     mode.Mode     `json:"mode"`
	Goal     grid.Point    `json:"goal"`
	Intent   agent.Intent  `json:"intent"`
	Fallback string        `json:"fallback,omitempty"`
	Blocked  bool          `json:"blocked,omitempty"`
	Claimed  []grid.Entity `json:"claimed,omitempty"`
}

type TickSummary struct {
	RunID     string        `json:"run_id"`
	Tick      int64         `json:"tick"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Score     int           `json:"score"`
	Messages  int           `json:"messages"`
	Claims    int           `json:"claims"`
	Contracts int           `json:"contracts"`
	Agents    []AgentTick   `json:"agents"`
}

type Checkpoint struct {
	RunID     string          `json:"run_id"`
	AgentID   int             `json:"agent_id"`
	Tick      int64           `json:"tick"`
	Position  grid.Point      `json:"position"`
	Fuel      float64         `json:"fuel"`
	Carried   int             `json:"carried"`
	Zone      int             `json:"zone"`
	Memory    memory.Snapshot `json:"memory"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CheckpointRepository interface {
	Save(ctx context.Context, cp Checkpoint) error
	Get(ctx context.Context, runID string, agentID int) (Checkpoint, error)
}

type TickRepository interface {
	Append(ctx context.Context, summary TickSummary) error
	ListRecent(ctx context.Context, runID string, limit int) ([]TickSummary, error)
}

// TickSink receives every finished tick. Sinks are best effort: a failing
// sink is logged and skipped.
type TickSink interface {
	Publish(ctx context.Context, summary TickSummary) error
}

type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
