package message

import (
	"encoding/json"
	"testing"

	"tileworld/internal/domain/grid"
)

func TestContractTypeFollowsKind(t *testing.T) {
	if got := (Contract{Kind: grid.KindTile}).Type(); got != TypeContractTile {
		t.Fatalf("expected contract_tile, got %s", got)
	}
	if got := (Contract{Kind: grid.KindHole}).Type(); got != TypeContractHole {
		t.Fatalf("expected contract_hole, got %s", got)
	}
	if _, ok := ContractType(grid.KindObstacle); ok {
		t.Fatalf("obstacles are not auctionable")
	}
}

func TestBroadcastReachesEveryone(t *testing.T) {
	m := NewBroadcast(3, GoalClaim{})
	if !m.For(1) || !m.For(3) {
		t.Fatalf("broadcast must be readable by every agent")
	}
	direct := Message{Sender: 3, Receiver: 2, Payload: GoalClaim{}}
	if direct.For(1) || !direct.For(2) {
		t.Fatalf("direct message routed wrong")
	}
	if m.Type() != TypeGoalInfo {
		t.Fatalf("expected goal_info, got %s", m.Type())
	}
}

func TestTypeText(t *testing.T) {
	b, err := json.Marshal(TypeContractHole)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"contract_hole"` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var got Type
	if err := json.Unmarshal(b, &got); err != nil || got != TypeContractHole {
		t.Fatalf("unmarshal: %v %v", got, err)
	}
	if err := json.Unmarshal([]byte(`"shout"`), &got); err == nil {
		t.Fatalf("expected unknown type to fail")
	}
}
