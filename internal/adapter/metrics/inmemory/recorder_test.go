package inmemory

import (
	"testing"
	"time"

	"tileworld/internal/app/ports"
	"tileworld/internal/domain/mode"
)

func TestRecorderSnapshot(t *testing.T) {
	r := NewRecorder()
	r.RecordTick(ports.TickSummary{Tick: 1, Score: 0, Messages: 4, Duration: 2 * time.Millisecond, Agents: []ports.AgentTick{
		{AgentID: 1, Mode: mode.Explore},
		{AgentID: 2, Mode: mode.Explore, Fallback: "stay"},
	}})
	r.RecordTick(ports.TickSummary{Tick: 2, Score: 1, Messages: 6, Claims: 1, Contracts: 2, Duration: 4 * time.Millisecond, Agents: []ports.AgentTick{
		{AgentID: 1, Mode: mode.Collect, Blocked: true},
		{AgentID: 2, Mode: mode.Explore},
	}})
	r.RecordFailure()

	s := r.Snapshot()
	if s.TickTotal != 2 || s.TickFailure != 1 {
		t.Fatalf("expected 2 ticks and 1 failure, got %d/%d", s.TickTotal, s.TickFailure)
	}
	if s.LastTick != 2 || s.Score != 1 {
		t.Fatalf("expected last tick 2 score 1, got %d/%d", s.LastTick, s.Score)
	}
	if s.Messages != 10 || s.Claims != 1 || s.Contracts != 2 {
		t.Fatalf("unexpected message counters %+v", s)
	}
	if s.ByMode["explore"] != 3 || s.ByMode["collect"] != 1 {
		t.Fatalf("unexpected mode counts %v", s.ByMode)
	}
	if s.ByFallback["stay"] != 1 || s.MoveConflicts != 1 {
		t.Fatalf("expected one stay fallback and one conflict, got %v/%d", s.ByFallback, s.MoveConflicts)
	}
	if s.AvgTickMillis != 3 {
		t.Fatalf("expected avg 3ms, got %v", s.AvgTickMillis)
	}
}
