package memory

import (
	"context"

	"tileworld/internal/app/ports"
)

type CheckpointRepo struct {
	store *Store
}

func NewCheckpointRepo(store *Store) CheckpointRepo {
	return CheckpointRepo{store: store}
}

func (r CheckpointRepo) Save(_ context.Context, cp ports.Checkpoint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.checkpoints[checkpointKey{cp.RunID, cp.AgentID}] = cp
	return nil
}

func (r CheckpointRepo) Get(_ context.Context, runID string, agentID int) (ports.Checkpoint, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	cp, ok := r.store.checkpoints[checkpointKey{runID, agentID}]
	if !ok {
		return ports.Checkpoint{}, ports.ErrNotFound
	}
	return cp, nil
}
