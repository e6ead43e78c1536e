package replay

import (
	"context"
	"errors"
	"testing"

	"tileworld/internal/app/ports"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/mode"
)

func TestUseCase_ReconstructsLatestRowPerAgent(t *testing.T) {
	repo := fakeRepo{ticks: []ports.TickSummary{
		{RunID: "r", Tick: 1, Agents: []ports.AgentTick{
			{AgentID: 1, Position: grid.Point{X: 1, Y: 1}, Mode: mode.Explore},
			{AgentID: 2, Position: grid.Point{X: 8, Y: 8}, Mode: mode.Explore},
		}},
		{RunID: "r", Tick: 2, Agents: []ports.AgentTick{
			{AgentID: 1, Position: grid.Point{X: 2, Y: 1}, Mode: mode.Collect},
		}},
	}}

	uc := UseCase{Ticks: repo}
	out, err := uc.Execute(context.Background(), Request{RunID: "r", Limit: 10})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(out.Ticks) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(out.Ticks))
	}
	if got := out.Latest[1]; got.Mode != mode.Collect || got.Position.X != 2 {
		t.Fatalf("expected agent 1 latest from tick 2, got %+v", got)
	}
	if got := out.Latest[2]; got.Position.X != 8 {
		t.Fatalf("expected agent 2 latest from tick 1, got %+v", got)
	}
}

func TestUseCase_FiltersWindowAndAgent(t *testing.T) {
	repo := fakeRepo{ticks: []ports.TickSummary{
		{Tick: 1, Agents: []ports.AgentTick{{AgentID: 1}, {AgentID: 2}}},
		{Tick: 2, Agents: []ports.AgentTick{{AgentID: 1}, {AgentID: 2}}},
		{Tick: 3, Agents: []ports.AgentTick{{AgentID: 1}}},
	}}
	uc := UseCase{Ticks: repo}

	out, err := uc.Execute(context.Background(), Request{RunID: "r", AgentID: 2, FromTick: 2})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(out.Ticks) != 1 || out.Ticks[0].Tick != 2 || len(out.Ticks[0].Agents) != 1 {
		t.Fatalf("expected only agent 2 on tick 2, got %+v", out.Ticks)
	}
	if _, ok := out.Latest[1]; ok {
		t.Fatalf("agent filter leaked other agents")
	}
	if repo.ticks[1].Agents[0].AgentID != 1 {
		t.Fatalf("filter mutated the repository rows")
	}
}

func TestUseCase_RejectsInvalidRequest(t *testing.T) {
	uc := UseCase{Ticks: fakeRepo{}}
	for _, req := range []Request{{RunID: " "}, {RunID: "r", Limit: -1}, {RunID: "r", AgentID: -3}} {
		if _, err := uc.Execute(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}
}

type fakeRepo struct {
	ticks []ports.TickSummary
}

func (r fakeRepo) Append(_ context.Context, _ ports.TickSummary) error {
	return nil
}

func (r fakeRepo) ListRecent(_ context.Context, _ string, _ int) ([]ports.TickSummary, error) {
	return r.ticks, nil
}
