package memory

import (
	"sync"

	"tileworld/internal/app/ports"
)

type checkpointKey struct {
	runID   string
	agentID int
}

// Store backs the in-memory repositories when no database is configured.
type Store struct {
	tx sync.Mutex

	mu          sync.RWMutex
	checkpoints map[checkpointKey]ports.Checkpoint
	ticks       map[string][]ports.TickSummary
	// MaxTicks bounds the ticks kept per run; zero keeps everything.
	MaxTicks int
}

func NewStore() *Store {
	return &Store{
		checkpoints: make(map[checkpointKey]ports.Checkpoint),
		ticks:       make(map[string][]ports.TickSummary),
	}
}
