package inmemory

import (
	"sync"

	"tileworld/internal/app/ports"
)

type Snapshot struct {
	TickTotal     uint64            `json:"tick_total"`
	TickFailure   uint64            `json:"tick_failure"`
	LastTick      int64             `json:"last_tick"`
	Score         int               `json:"score"`
	Messages      uint64            `json:"messages"`
	Claims        uint64            `json:"claims"`
	Contracts     uint64            `json:"contracts"`
	MoveConflicts uint64            `json:"move_conflicts"`
	ByMode        map[string]uint64 `json:"by_mode"`
	ByFallback    map[string]uint64 `json:"by_fallback"`
	AvgTickMillis float64           `json:"avg_tick_ms"`
}

type Recorder struct {
	mu         sync.Mutex
	ticks      uint64
	failure    uint64
	lastTick   int64
	score      int
	messages   uint64
	claims     uint64
	contracts  uint64
	conflicts  uint64
	byMode     map[string]uint64
	byFallback map[string]uint64
	totalNanos int64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byMode:     map[string]uint64{},
		byFallback: map[string]uint64{},
	}
}

func (r *Recorder) RecordTick(s ports.TickSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
	r.lastTick = s.Tick
	r.score = s.Score
	r.messages += uint64(s.Messages)
	r.claims += uint64(s.Claims)
	r.contracts += uint64(s.Contracts)
	r.totalNanos += int64(s.Duration)
	for _, row := range s.Agents {
		r.byMode[row.Mode.String()]++
		if row.Fallback != "" {
			r.byFallback[row.Fallback]++
		}
		if row.Blocked {
			r.conflicts++
		}
	}
}

func (r *Recorder) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		TickTotal:     r.ticks,
		TickFailure:   r.failure,
		LastTick:      r.lastTick,
		Score:         r.score,
		Messages:      r.messages,
		Claims:        r.claims,
		Contracts:     r.contracts,
		MoveConflicts: r.conflicts,
		ByMode:        make(map[string]uint64, len(r.byMode)),
		ByFallback:    make(map[string]uint64, len(r.byFallback)),
	}
	if r.ticks > 0 {
		out.AvgTickMillis = float64(r.totalNanos) / float64(r.ticks) / 1e6
	}
	for k, v := range r.byMode {
		out.ByMode[k] = v
	}
	for k, v := range r.byFallback {
		out.ByFallback[k] = v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
