package tick

import (
	"context"
	"log"
	"sync"
	"time"

	"tileworld/internal/domain/agent"
)

// Runner serialises ticks and gives readers a consistent view of the
// agents between them.
type Runner struct {
	mu     sync.RWMutex
	uc     UseCase
	logger *log.Logger
	last   Response
	ran    bool
}

func NewRunner(uc UseCase) *Runner {
	logger := uc.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{uc: uc, logger: logger}
}

func (r *Runner) Step(ctx context.Context) (Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.uc.Execute(ctx, Request{})
	if err != nil {
		return Response{}, err
	}
	r.last, r.ran = out, true
	return out, nil
}

// Last returns the most recent successful tick.
func (r *Runner) Last() (Response, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.ran
}

func (r *Runner) WithAgents(_ context.Context, fn func(agents []*agent.Agent) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(r.uc.Agents)
}

// Run steps every interval until ctx is done or maxTicks ticks have run.
// Zero maxTicks runs forever. Failed ticks are logged and retried on the
// next interval.
func (r *Runner) Run(ctx context.Context, interval time.Duration, maxTicks int64) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	var done int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		out, err := r.Step(ctx)
		if err != nil {
			r.logger.Printf("tick failed: %v", err)
			continue
		}
		done++
		if maxTicks > 0 && done >= maxTicks {
			r.logger.Printf("run %s finished after %d ticks, score %d", r.uc.RunID, out.Summary.Tick, out.Summary.Score)
			return nil
		}
	}
}
