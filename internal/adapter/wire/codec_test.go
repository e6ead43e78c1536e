package wire

import (
	"bytes"
	"errors"
	"testing"

	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
	"tileworld/internal/domain/message"
)

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec()
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCodec_AgentSnapshotIsCompressed(t *testing.T) {
	c := newCodec(t)
	fs := grid.Point{X: 4, Y: 4}
	snap := memory.Snapshot{Width: 10, Height: 10, Tick: 7, FuelStation: &fs, Percepts: []memory.Percept{
		{Entity: grid.Entity{Kind: grid.KindTile, Pos: grid.Point{X: 1, Y: 2}}, ObservedAt: 7},
		{Entity: grid.Entity{Kind: grid.KindFuelStation, Pos: fs}, ObservedAt: 3},
	}}
	b, err := c.Encode(message.NewBroadcast(3, message.AgentSnapshot{Position: grid.Point{X: 1, Y: 1}, Memory: snap}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if bytes.Contains(b, []byte("observed_at")) {
		t.Fatalf("expected snapshot body to be compressed, got %s", b)
	}

	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p, ok := got.Payload.(message.AgentSnapshot)
	if !ok || got.Sender != 3 || got.Receiver != message.Broadcast {
		t.Fatalf("unexpected message %+v", got)
	}
	if len(p.Memory.Percepts) != 2 || p.Memory.Percepts[0].Entity.Kind != grid.KindTile || *p.Memory.FuelStation != fs {
		t.Fatalf("snapshot did not survive the wire: %+v", p.Memory)
	}
}

func TestCodec_ContractKindMustMatchType(t *testing.T) {
	c := newCodec(t)
	b, err := c.Encode(message.NewBroadcast(1, message.Contract{Kind: grid.KindHole, ZoneID: 2, Entities: []grid.Entity{{Kind: grid.KindHole, Pos: grid.Point{X: 5, Y: 5}}}}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Type() != message.TypeContractHole || got.Payload.(message.Contract).ZoneID != 2 {
		t.Fatalf("unexpected contract %+v", got)
	}

	forged := bytes.Replace(b, []byte(`"contract_hole"`), []byte(`"contract_tile"`), 1)
	if _, err := c.Decode(forged); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType for mismatched contract, got %v", err)
	}
}

func TestCodec_RejectsUnknownType(t *testing.T) {
	c := newCodec(t)
	if _, err := c.Decode([]byte(`{"type":"gossip","sender":1,"receiver":0}`)); err == nil {
		t.Fatalf("expected unknown type name to fail")
	}
	if _, err := c.Encode(message.Message{Sender: 1}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType for nil payload, got %v", err)
	}
}
