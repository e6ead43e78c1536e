package replay

import (
	"context"
	"errors"
	"strings"

	"tileworld/internal/app/ports"
)

var ErrInvalidRequest = errors.New("invalid replay request")

const DefaultLimit = 50

type UseCase struct {
	Ticks ports.TickRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	req.RunID = strings.TrimSpace(req.RunID)
	if req.RunID == "" || req.Limit < 0 || req.AgentID < 0 {
		return Response{}, ErrInvalidRequest
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	ticks, err := u.Ticks.ListRecent(ctx, req.RunID, req.Limit)
	if err != nil {
		return Response{}, err
	}
	ticks = filterByTickWindow(ticks, req.FromTick, req.ToTick)
	if req.AgentID > 0 {
		ticks = filterByAgent(ticks, req.AgentID)
	}
	return Response{Ticks: ticks, Latest: reconstruct(ticks)}, nil
}

func filterByTickWindow(ticks []ports.TickSummary, from, to int64) []ports.TickSummary {
	if from <= 0 && to <= 0 {
		return ticks
	}
	out := make([]ports.TickSummary, 0, len(ticks))
	for _, t := range ticks {
		if from > 0 && t.Tick < from {
			continue
		}
		if to > 0 && t.Tick > to {
			continue
		}
		out = append(out, t)
	}
	return out
}

func filterByAgent(ticks []ports.TickSummary, agentID int) []ports.TickSummary {
	out := make([]ports.TickSummary, 0, len(ticks))
	for _, t := range ticks {
		rows := make([]ports.AgentTick, 0, 1)
		for _, row := range t.Agents {
			if row.AgentID == agentID {
				rows = append(rows, row)
			}
		}
		if len(rows) == 0 {
			continue
		}
		t.Agents = rows
		out = append(out, t)
	}
	return out
}

// reconstruct returns each agent's row from the newest tick it appears in.
func reconstruct(ticks []ports.TickSummary) map[int]ports.AgentTick {
	latest := map[int]ports.AgentTick{}
	newest := map[int]int64{}
	for _, t := range ticks {
		for _, row := range t.Agents {
			if seen, ok := newest[row.AgentID]; ok && seen > t.Tick {
				continue
			}
			latest[row.AgentID] = row
			newest[row.AgentID] = t.Tick
		}
	}
	return latest
}
