package mailbox

import (
	"context"
	"sync"
	"testing"

	"tileworld/internal/adapter/wire"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/message"
)

func newMailbox(t *testing.T) *Mailbox {
	t.Helper()
	codec, err := wire.NewCodec()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	t.Cleanup(func() { _ = codec.Close() })
	return New(codec)
}

func TestMailbox_ReadersGetIndependentCopies(t *testing.T) {
	mb := newMailbox(t)
	ctx := context.Background()
	mb.Reset(1)
	claim := message.GoalClaim{Entities: []grid.Entity{{Kind: grid.KindTile, Pos: grid.Point{X: 1, Y: 1}}}}
	if err := mb.Post(ctx, message.NewBroadcast(1, claim)); err != nil {
		t.Fatalf("Post: %v", err)
	}

	a, err := mb.Read(ctx, 2)
	if err != nil || len(a) != 1 {
		t.Fatalf("expected one message, got %d err=%v", len(a), err)
	}
	a[0].Payload.(message.GoalClaim).Entities[0].Pos.X = 9

	b, _ := mb.Read(ctx, 3)
	if got := b[0].Payload.(message.GoalClaim).Entities[0].Pos.X; got != 1 {
		t.Fatalf("reader saw another reader's mutation: x=%d", got)
	}
	if claim.Entities[0].Pos.X != 1 {
		t.Fatalf("sender's payload was mutated")
	}
}

func TestMailbox_AddressingAndReset(t *testing.T) {
	mb := newMailbox(t)
	ctx := context.Background()
	mb.Reset(1)
	direct := message.Message{Sender: 1, Receiver: 2, Payload: message.GoalClaim{}}
	if err := mb.Post(ctx, direct, message.NewBroadcast(1, message.GoalClaim{})); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if got, _ := mb.Read(ctx, 2); len(got) != 2 {
		t.Fatalf("receiver 2 expected 2 messages, got %d", len(got))
	}
	if got, _ := mb.Read(ctx, 3); len(got) != 1 {
		t.Fatalf("receiver 3 expected only the broadcast, got %d", len(got))
	}
	if len(mb.items) != 2 {
		t.Fatalf("expected 2 encoded messages, got %d", len(mb.items))
	}

	mb.Reset(2)
	if got, _ := mb.Read(ctx, 2); len(got) != 0 {
		t.Fatalf("expected empty mailbox after reset, got %d", len(got))
	}
}

func TestMailbox_ConcurrentPost(t *testing.T) {
	mb := newMailbox(t)
	ctx := context.Background()
	mb.Reset(1)
	var wg sync.WaitGroup
	for id := 1; id <= 8; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = mb.Post(ctx, message.NewBroadcast(id, message.GoalClaim{}))
		}(id)
	}
	wg.Wait()
	if got, _ := mb.Read(ctx, 1); len(got) != 8 {
		t.Fatalf("expected 8 messages, got %d", len(got))
	}
}
