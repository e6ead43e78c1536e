package memory

import (
	"context"
	"errors"
	"testing"

	"tileworld/internal/app/ports"
)

func TestTickRepo_AppendRejectsOldTicksAndTrims(t *testing.T) {
	store := NewStore()
	store.MaxTicks = 3
	repo := NewTickRepo(store)
	ctx := context.Background()

	for tick := int64(1); tick <= 5; tick++ {
		if err := repo.Append(ctx, ports.TickSummary{RunID: "r", Tick: tick}); err != nil {
			t.Fatalf("append %d: %v", tick, err)
		}
	}
	if err := repo.Append(ctx, ports.TickSummary{RunID: "r", Tick: 5}); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, err := repo.ListRecent(ctx, "r", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Tick != 4 || got[1].Tick != 5 {
		t.Fatalf("expected ticks 4,5, got %+v", got)
	}
	all, _ := repo.ListRecent(ctx, "r", 0)
	if len(all) != 3 || all[0].Tick != 3 {
		t.Fatalf("expected trimmed history 3..5, got %+v", all)
	}
}

func TestCheckpointRepo_GetMissing(t *testing.T) {
	store := NewStore()
	repo := NewCheckpointRepo(store)
	tx := NewTxManager(store)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "r", 1); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		return repo.Save(ctx, ports.Checkpoint{RunID: "r", AgentID: 1, Tick: 9})
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Get(ctx, "r", 1)
	if err != nil || got.Tick != 9 {
		t.Fatalf("expected tick 9 checkpoint, got %+v err=%v", got, err)
	}
}
