// Package sqlite keeps a queryable secondary index of ticks and claims.
// Writes are queued to a single writer goroutine and dropped when the
// queue is full; the tick archive remains the source of truth.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tileworld/internal/app/ports"
)

type Index struct {
	db *sql.DB

	// mu orders Publish against the channel close in Close.
	mu     sync.RWMutex
	ch     chan ports.TickSummary
	wg     sync.WaitGroup
	once   sync.Once
	closed bool

	dropped atomic.Uint64
	written atomic.Uint64
}

type Stats struct {
	Written       uint64 `json:"written"`
	Dropped       uint64 `json:"dropped"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
}

func Open(path string, queue int) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if queue <= 0 {
		queue = 4096
	}
	ix := &Index{db: db, ch: make(chan ports.TickSummary, queue)}
	ix.wg.Add(1)
	go func() {
		defer ix.wg.Done()
		ix.loop()
	}()
	return ix, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			score INTEGER NOT NULL,
			messages INTEGER NOT NULL,
			claims INTEGER NOT NULL,
			contracts INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS agent_ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			agent_id INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			fuel REAL NOT NULL,
			zone_id INTEGER NOT NULL,
			mode TEXT NOT NULL,
			fallback TEXT NOT NULL,
			blocked INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick, agent_id)
		);`,
		`CREATE TABLE IF NOT EXISTS claims (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			agent_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS claims_by_cell ON claims(run_id, x, y);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init sqlite index: %w", err)
		}
	}
	return nil
}

// Publish queues s for indexing. It never blocks the tick.
func (ix *Index) Publish(_ context.Context, s ports.TickSummary) error {
	if ix == nil {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil
	}
	select {
	case ix.ch <- s:
	default:
		ix.dropped.Add(1)
	}
	return nil
}

func (ix *Index) Close() error {
	var err error
	ix.once.Do(func() {
		ix.drain()
		err = ix.db.Close()
	})
	return err
}

// drain stops accepting ticks and waits for the writer to flush the queue.
func (ix *Index) drain() {
	ix.mu.Lock()
	ix.closed = true
	close(ix.ch)
	ix.mu.Unlock()
	ix.wg.Wait()
}

func (ix *Index) Stats() Stats {
	return Stats{
		Written:       ix.written.Load(),
		Dropped:       ix.dropped.Load(),
		QueueDepth:    len(ix.ch),
		QueueCapacity: cap(ix.ch),
	}
}

func (ix *Index) StatsAny() any {
	return ix.Stats()
}

func (ix *Index) loop() {
	ctx := context.Background()
	for s := range ix.ch {
		if err := ix.write(ctx, s); err != nil {
			ix.dropped.Add(1)
			continue
		}
		ix.written.Add(1)
	}
}

func (ix *Index) write(ctx context.Context, s ports.TickSummary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO ticks(run_id,tick,started_at,duration_ns,score,messages,claims,contracts,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`,
		s.RunID, s.Tick, s.StartedAt.UTC().Format(time.RFC3339Nano), int64(s.Duration), s.Score, s.Messages, s.Claims, s.Contracts, string(raw),
	); err != nil {
		return err
	}
	for _, row := range s.Agents {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO agent_ticks(run_id,tick,agent_id,x,y,fuel,zone_id,mode,fallback,blocked) VALUES(?,?,?,?,?,?,?,?,?,?)`,
			s.RunID, s.Tick, row.AgentID, row.Position.X, row.Position.Y, row.Fuel, row.Zone, row.Mode.String(), row.Fallback, row.Blocked,
		); err != nil {
			return err
		}
		for _, e := range row.Claimed {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO claims(run_id,tick,agent_id,kind,x,y) VALUES(?,?,?,?,?,?)`,
				s.RunID, s.Tick, row.AgentID, e.Kind.String(), e.Pos.X, e.Pos.Y,
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// ModeCounts returns how many agent-ticks of a run were spent in each mode.
func (ix *Index) ModeCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT mode, COUNT(*) FROM agent_ticks WHERE run_id = ? GROUP BY mode`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var m string
		var n int
		if err := rows.Scan(&m, &n); err != nil {
			return nil, err
		}
		out[m] = n
	}
	return out, rows.Err()
}

// ClaimsAt returns the agents that claimed the cell (x,y), oldest first.
func (ix *Index) ClaimsAt(ctx context.Context, runID string, x, y int) ([]int, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT agent_id FROM claims WHERE run_id = ? AND x = ? AND y = ? ORDER BY tick, agent_id`, runID, x, y)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
