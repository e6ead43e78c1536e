package memory

import (
	"context"

	"tileworld/internal/app/ports"
)

type TickRepo struct {
	store *Store
}

func NewTickRepo(store *Store) TickRepo {
	return TickRepo{store: store}
}

func (r TickRepo) Append(_ context.Context, s ports.TickSummary) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	run := r.store.ticks[s.RunID]
	if n := len(run); n > 0 && run[n-1].Tick >= s.Tick {
		return ports.ErrConflict
	}
	run = append(run, s)
	if keep := r.store.MaxTicks; keep > 0 && len(run) > keep {
		run = append(run[:0:0], run[len(run)-keep:]...)
	}
	r.store.ticks[s.RunID] = run
	return nil
}

func (r TickRepo) ListRecent(_ context.Context, runID string, limit int) ([]ports.TickSummary, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	run := r.store.ticks[runID]
	if limit > 0 && len(run) > limit {
		run = run[len(run)-limit:]
	}
	return append([]ports.TickSummary(nil), run...), nil
}
