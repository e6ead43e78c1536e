package ticklog

import (
	"context"
	"testing"
	"time"

	"tileworld/internal/app/ports"
	"tileworld/internal/domain/mode"
)

func TestWriter_RotatesHourlyAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "run-1")
	clock := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }
	ctx := context.Background()

	for tick := int64(1); tick <= 2; tick++ {
		s := ports.TickSummary{RunID: "run-1", Tick: tick, Agents: []ports.AgentTick{{AgentID: 1, Mode: mode.Refuel}}}
		if err := w.Publish(ctx, s); err != nil {
			t.Fatalf("publish %d: %v", tick, err)
		}
	}
	first := clock
	clock = clock.Add(2 * time.Minute)
	if err := w.Publish(ctx, ports.TickSummary{RunID: "run-1", Tick: 3}); err != nil {
		t.Fatalf("publish 3: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadFile(w.Path(first))
	if err != nil {
		t.Fatalf("read first hour: %v", err)
	}
	if len(got) != 2 || got[1].Tick != 2 || got[0].Agents[0].Mode != mode.Refuel {
		t.Fatalf("unexpected first hour %+v", got)
	}
	got, err = ReadFile(w.Path(clock))
	if err != nil || len(got) != 1 || got[0].Tick != 3 {
		t.Fatalf("expected tick 3 in second hour, got %+v err=%v", got, err)
	}
}
