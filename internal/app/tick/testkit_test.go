package tick

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"

	"tileworld/internal/app/ports"
	"tileworld/internal/domain/agent"
	"tileworld/internal/domain/contract"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
	"tileworld/internal/domain/message"
	"tileworld/internal/domain/mode"
)

type fakeWorld struct {
	mu       sync.Mutex
	tick     int64
	pos      map[int]grid.Point
	objects  []grid.Entity
	blockFor map[int]bool
	applied  map[int]agent.Intent
}

func newFakeWorld(pos map[int]grid.Point) *fakeWorld {
	return &fakeWorld{pos: pos, blockFor: map[int]bool{}, applied: map[int]agent.Intent{}}
}

func (w *fakeWorld) Dimensions() (int, int) { return 10, 10 }

func (w *fakeWorld) Step(context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick++
	return w.tick, nil
}

func (w *fakeWorld) Sense(_ context.Context, id int) (agent.Perception, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	self, ok := w.pos[id]
	if !ok {
		return agent.Perception{}, ports.ErrNotFound
	}
	var seen []grid.Entity
	for _, e := range w.objects {
		if grid.Manhattan(self, e.Pos) <= 4 {
			seen = append(seen, e)
		}
	}
	return agent.Perception{Tick: w.tick, Self: self, Fuel: 400, Sighting: memory.Sighting{Entities: seen}}, nil
}

func (w *fakeWorld) Apply(_ context.Context, id int, in agent.Intent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.applied[id] = in
	if in.Action != agent.ActionMove {
		return nil
	}
	target := w.pos[id].Add(in.Direction.Delta())
	if w.blockFor[id] {
		return &ports.MoveBlockedError{AgentID: id, Target: target}
	}
	w.pos[id] = target
	return nil
}

func (w *fakeWorld) Stats(context.Context) (ports.WorldStats, error) {
	return ports.WorldStats{Tick: w.tick, Score: 7}, nil
}

// recordingMailbox logs every operation in order.
type recordingMailbox struct {
	mu   sync.Mutex
	msgs []message.Message
	ops  []string
}

func (m *recordingMailbox) Reset(int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = nil
}

func (m *recordingMailbox) Post(_ context.Context, msgs ...message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.ops = append(m.ops, fmt.Sprintf("post:%d", msg.Sender))
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *recordingMailbox) Read(_ context.Context, id int) ([]message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, fmt.Sprintf("read:%d", id))
	return append([]message.Message(nil), m.msgs...), nil
}

type stubPlanner struct {
	goals []grid.Point
	has   bool
}

func (p *stubPlanner) SetGoals(g []grid.Point) { p.goals = g }
func (p *stubPlanner) ClearGoals()             { p.goals, p.has = nil, false }
func (p *stubPlanner) GeneratePlan() bool      { p.has = len(p.goals) > 0; return p.has }
func (p *stubPlanner) HasPlan() bool           { return p.has }
func (p *stubPlanner) Execute() grid.Direction { return grid.East }

func newAgents(t *testing.T, ids ...int) []*agent.Agent {
	t.Helper()
	params, err := memory.NewParams(10, 10, 2, 50)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	out := make([]*agent.Agent, 0, len(ids))
	for _, id := range ids {
		coord := contract.New(contract.DefaultParams())
		sel := mode.NewSelector(mode.DefaultParams(500), coord)
		out = append(out, agent.New(id, memory.New(params), &stubPlanner{}, agent.NewHybrid(coord, sel), agent.Options{Seed: 1}))
	}
	return out
}

type fakeTicks struct {
	appended []ports.TickSummary
	err      error
}

func (r *fakeTicks) Append(_ context.Context, s ports.TickSummary) error {
	if r.err != nil {
		return r.err
	}
	r.appended = append(r.appended, s)
	return nil
}

func (r *fakeTicks) ListRecent(context.Context, string, int) ([]ports.TickSummary, error) {
	return r.appended, nil
}

type fakeCheckpoints struct {
	saved []ports.Checkpoint
}

func (r *fakeCheckpoints) Save(_ context.Context, cp ports.Checkpoint) error {
	r.saved = append(r.saved, cp)
	return nil
}

func (r *fakeCheckpoints) Get(context.Context, string, int) (ports.Checkpoint, error) {
	return ports.Checkpoint{}, ports.ErrNotFound
}

type countingTx struct{ calls int }

func (tx *countingTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.calls++
	return fn(ctx)
}

type failingSink struct{}

func (failingSink) Publish(context.Context, ports.TickSummary) error {
	return errors.New("sink down")
}

type captureSink struct{ got []ports.TickSummary }

func (s *captureSink) Publish(_ context.Context, summary ports.TickSummary) error {
	s.got = append(s.got, summary)
	return nil
}

type fakeMetrics struct {
	ticks    int
	failures int
}

func (m *fakeMetrics) RecordTick(ports.TickSummary) { m.ticks++ }
func (m *fakeMetrics) RecordFailure()               { m.failures++ }

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }
