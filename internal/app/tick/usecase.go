package tick

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"tileworld/internal/app/ports"
	"tileworld/internal/domain/agent"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/message"
)

var ErrNoAgents = errors.New("no agents to step")

// UseCase advances the world by one tick. Every agent senses and
// broadcasts before any agent reads the mailbox; the decide phase then runs
// in agent order so claims made while deciding reach later agents.
type UseCase struct {
	World       ports.Environment
	Mailbox     ports.Mailbox
	Agents      []*agent.Agent
	TxManager   ports.TxManager
	Checkpoints ports.CheckpointRepository
	Ticks       ports.TickRepository
	Sinks       []ports.TickSink
	Metrics     ports.TickMetrics
	Logger      *log.Logger
	RunID       string
	// CheckpointEvery saves agent memories every n ticks; zero disables.
	CheckpointEvery int64
	Now             func() time.Time
}

func (u UseCase) Execute(ctx context.Context, _ Request) (Response, error) {
	if len(u.Agents) == 0 {
		return Response{}, ErrNoAgents
	}
	nowFn := u.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	logger := u.Logger
	if logger == nil {
		logger = log.Default()
	}
	started := nowFn()

	tick, err := u.World.Step(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("step world: %w", err)
	}
	u.Mailbox.Reset(tick)

	perceptions := make([]agent.Perception, len(u.Agents))
	sent := make([][]message.Message, len(u.Agents))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range u.Agents {
		g.Go(func() error {
			p, err := u.World.Sense(gctx, a.ID)
			if err != nil {
				return fmt.Errorf("sense agent %d: %w", a.ID, err)
			}
			a.Sense(p)
			msgs := a.Communicate(p)
			perceptions[i], sent[i] = p, msgs
			return u.Mailbox.Post(gctx, msgs...)
		})
	}
	if err := g.Wait(); err != nil {
		return Response{}, err
	}

	summary := ports.TickSummary{RunID: u.RunID, Tick: tick, StartedAt: started}
	for i := range sent {
		countMessages(&summary, sent[i])
	}

	for i, a := range u.Agents {
		p := perceptions[i]
		inbox, err := u.Mailbox.Read(ctx, a.ID)
		if err != nil {
			return Response{}, fmt.Errorf("read mailbox for agent %d: %w", a.ID, err)
		}
		out := a.Decide(p, inbox)
		if len(out.Messages) > 0 {
			if err := u.Mailbox.Post(ctx, out.Messages...); err != nil {
				return Response{}, fmt.Errorf("post claims for agent %d: %w", a.ID, err)
			}
			countMessages(&summary, out.Messages)
		}
		if out.Fallback != "" {
			logger.Printf("agent %d: no plan to (%d,%d) in %s, fallback %s", a.ID, out.Decision.Goal.X, out.Decision.Goal.Y, out.Decision.Mode, out.Fallback)
		}

		row := ports.AgentTick{
			AgentID:  a.ID,
			Position: p.Self,
			Fuel:     p.Fuel,
			Carried:  p.Carried,
			Zone:     a.Zone().ID,
			Mode:     out.Decision.Mode,
			Goal:     out.Decision.Goal,
			Intent:   out.Intent,
			Fallback: out.Fallback,
		}
		row.Claimed = claimedIn(sent[i])
		if c := out.Decision.Claim; c != nil && !slices.Contains(row.Claimed, *c) {
			row.Claimed = append(row.Claimed, *c)
		}

		err = u.World.Apply(ctx, a.ID, out.Intent)
		var blocked *ports.MoveBlockedError
		switch {
		case errors.As(err, &blocked):
			logger.Printf("agent %d: %v, staying put", a.ID, err)
			row.Blocked = true
		case err != nil:
			return Response{}, fmt.Errorf("apply intent for agent %d: %w", a.ID, err)
		}
		summary.Agents = append(summary.Agents, row)
	}

	stats, err := u.World.Stats(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("world stats: %w", err)
	}
	summary.Score = stats.Score
	summary.Duration = nowFn().Sub(started)

	if err := u.persist(ctx, summary, perceptions); err != nil {
		if u.Metrics != nil {
			u.Metrics.RecordFailure()
		}
		return Response{}, err
	}
	for _, sink := range u.Sinks {
		if err := sink.Publish(ctx, summary); err != nil {
			logger.Printf("tick %d: sink %T: %v", tick, sink, err)
		}
	}
	if u.Metrics != nil {
		u.Metrics.RecordTick(summary)
	}
	return Response{Summary: summary}, nil
}

func (u UseCase) persist(ctx context.Context, summary ports.TickSummary, perceptions []agent.Perception) error {
	checkpoint := u.Checkpoints != nil && u.CheckpointEvery > 0 && summary.Tick%u.CheckpointEvery == 0
	if u.Ticks == nil && !checkpoint {
		return nil
	}
	run := func(ctx context.Context) error {
		if u.Ticks != nil {
			if err := u.Ticks.Append(ctx, summary); err != nil {
				return fmt.Errorf("append tick %d: %w", summary.Tick, err)
			}
		}
		if !checkpoint {
			return nil
		}
		for i, a := range u.Agents {
			p := perceptions[i]
			cp := ports.Checkpoint{
				RunID:     u.RunID,
				AgentID:   a.ID,
				Tick:      summary.Tick,
				Position:  p.Self,
				Fuel:      p.Fuel,
				Carried:   p.Carried,
				Zone:      a.Zone().ID,
				Memory:    a.Memory.Snapshot(),
				UpdatedAt: summary.StartedAt,
			}
			if err := u.Checkpoints.Save(ctx, cp); err != nil {
				return fmt.Errorf("checkpoint agent %d: %w", a.ID, err)
			}
		}
		return nil
	}
	if u.TxManager == nil {
		return run(ctx)
	}
	return u.TxManager.RunInTx(ctx, run)
}

// claimedIn lists the entities claimed by the goal claims in msgs.
func claimedIn(msgs []message.Message) []grid.Entity {
	var out []grid.Entity
	for _, m := range msgs {
		if c, ok := m.Payload.(message.GoalClaim); ok {
			out = append(out, c.Entities...)
		}
	}
	return out
}

func countMessages(s *ports.TickSummary, msgs []message.Message) {
	for _, m := range msgs {
		s.Messages++
		switch m.Type() {
		case message.TypeGoalInfo:
			s.Claims++
		case message.TypeContractTile, message.TypeContractHole:
			s.Contracts++
		}
	}
}
