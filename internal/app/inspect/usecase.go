package inspect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tileworld/internal/app/ports"
	"tileworld/internal/domain/agent"
	"tileworld/internal/domain/grid"
)

var ErrInvalidRequest = errors.New("invalid inspect request")

type UseCase struct {
	Registry    ports.AgentRegistry
	Checkpoints ports.CheckpointRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	if req.AgentID < 0 {
		return Response{}, ErrInvalidRequest
	}
	var out Response
	err := u.Registry.WithAgents(ctx, func(agents []*agent.Agent) error {
		for _, a := range agents {
			if req.AgentID != 0 && a.ID != req.AgentID {
				continue
			}
			out.Agents = append(out.Agents, view(a, req.IncludeMemory))
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	if req.AgentID != 0 && len(out.Agents) == 0 {
		return Response{}, fmt.Errorf("agent %d: %w", req.AgentID, ports.ErrNotFound)
	}
	return out, nil
}

// Zones returns the partition as agreed by the first agent that has one.
func (u UseCase) Zones(ctx context.Context) (ZonesResponse, error) {
	var out ZonesResponse
	err := u.Registry.WithAgents(ctx, func(agents []*agent.Agent) error {
		for _, a := range agents {
			if assign, ok := a.Assignment(); ok {
				out = ZonesResponse{Partitioned: true, Assignment: assign}
				return nil
			}
		}
		return nil
	})
	return out, err
}

// Checkpoint returns the last saved checkpoint of one agent in a run.
func (u UseCase) Checkpoint(ctx context.Context, req CheckpointRequest) (ports.Checkpoint, error) {
	runID := strings.TrimSpace(req.RunID)
	if runID == "" || req.AgentID <= 0 {
		return ports.Checkpoint{}, ErrInvalidRequest
	}
	if u.Checkpoints == nil {
		return ports.Checkpoint{}, fmt.Errorf("checkpoints: %w", ports.ErrNotFound)
	}
	cp, err := u.Checkpoints.Get(ctx, runID, req.AgentID)
	if err != nil {
		return ports.Checkpoint{}, fmt.Errorf("checkpoint of agent %d in run %s: %w", req.AgentID, runID, err)
	}
	return cp, nil
}

func view(a *agent.Agent, withMemory bool) AgentView {
	p := a.Perception()
	v := AgentView{
		ID:       a.ID,
		Strategy: a.Strategy.Name(),
		Tick:     p.Tick,
		Position: p.Self,
		Fuel:     p.Fuel,
		Carried:  p.Carried,
		Zone:     a.Zone(),
		Known:    map[string]int{},
		Last:     a.Last(),
	}
	if fs, ok := a.Memory.FuelStation(); ok {
		v.FuelStation = &fs
	}
	for kind, n := range a.Memory.Count() {
		if n > 0 {
			v.Known[grid.Kind(kind).String()] = n
		}
	}
	if h, ok := a.Strategy.(*agent.Hybrid); ok {
		b := h.Board()
		v.Board = &b
	}
	if withMemory {
		snap := a.Memory.Snapshot()
		v.Memory = &snap
	}
	return v
}
