package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tileworld/internal/app/ports"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/mode"
)

func TestIndex_QueueDropStats(t *testing.T) {
	ix := &Index{ch: make(chan ports.TickSummary, 1)}
	_ = ix.Publish(context.Background(), ports.TickSummary{Tick: 1})
	_ = ix.Publish(context.Background(), ports.TickSummary{Tick: 2})

	st := ix.Stats()
	if st.Dropped != 1 {
		t.Fatalf("Dropped=%d want=1", st.Dropped)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestIndex_WritesTicksAndClaims(t *testing.T) {
	ix, err := Open(filepath.Join(t.TempDir(), "index.sqlite"), 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	tile := grid.Entity{Kind: grid.KindTile, Pos: grid.Point{X: 3, Y: 4}}
	for tick := int64(1); tick <= 2; tick++ {
		s := ports.TickSummary{RunID: "r", Tick: tick, StartedAt: time.Now(), Agents: []ports.AgentTick{
			{AgentID: 1, Mode: mode.Collect, Claimed: []grid.Entity{tile}},
			{AgentID: 2, Mode: mode.Explore},
		}}
		if err := ix.Publish(ctx, s); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	ix.drain()
	defer ix.db.Close()

	if st := ix.Stats(); st.Written != 2 || st.Dropped != 0 {
		t.Fatalf("expected 2 written, got %+v", st)
	}
	counts, err := ix.ModeCounts(ctx, "r")
	if err != nil {
		t.Fatalf("ModeCounts: %v", err)
	}
	if counts["collect"] != 2 || counts["explore"] != 2 {
		t.Fatalf("unexpected mode counts %v", counts)
	}
	who, err := ix.ClaimsAt(ctx, "r", 3, 4)
	if err != nil || len(who) != 2 || who[0] != 1 {
		t.Fatalf("expected two claims by agent 1, got %v err=%v", who, err)
	}
}

func TestIndex_PublishDuringCloseDoesNotPanic(t *testing.T) {
	ix, err := Open(filepath.Join(t.TempDir(), "index.sqlite"), 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	start := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			<-start
			for i := 0; i < 200; i++ {
				if err := ix.Publish(ctx, ports.TickSummary{RunID: "r", Tick: int64(g*1000 + i)}); err != nil {
					t.Errorf("Publish: %v", err)
					return
				}
			}
		}(g)
	}
	close(start)
	if err := ix.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	wg.Wait()

	if err := ix.Publish(ctx, ports.TickSummary{RunID: "r", Tick: 1}); err != nil {
		t.Fatalf("Publish after Close: %v", err)
	}
	if err := ix.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
