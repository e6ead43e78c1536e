package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/google/uuid"

	"tileworld/db/migrations"
	httpadapter "tileworld/internal/adapter/http"
	sqliteindex "tileworld/internal/adapter/index/sqlite"
	"tileworld/internal/adapter/mailbox"
	metricsinmem "tileworld/internal/adapter/metrics/inmemory"
	"tileworld/internal/adapter/observer"
	"tileworld/internal/adapter/planner"
	gormrepo "tileworld/internal/adapter/repo/gorm"
	memrepo "tileworld/internal/adapter/repo/memory"
	"tileworld/internal/adapter/ticklog"
	"tileworld/internal/adapter/wire"
	worldruntime "tileworld/internal/adapter/world/runtime"
	"tileworld/internal/app/inspect"
	"tileworld/internal/app/ports"
	"tileworld/internal/app/replay"
	"tileworld/internal/app/tick"
	"tileworld/internal/config"
	"tileworld/internal/domain/agent"
	"tileworld/internal/domain/contract"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
	"tileworld/internal/domain/mode"
)

type repos struct {
	checkpoints ports.CheckpointRepository
	ticks       ports.TickRepository
	tx          ports.TxManager
}

func main() {
	configPath := flag.String("config", os.Getenv("TILEWORLD_CONFIG"), "path to a YAML config file")
	resume := flag.String("resume", "", "run id whose checkpoints seed agent memories")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *resume != "" {
		cfg.Persistence.ResumeRun = *resume
	}
	runID := uuid.NewString()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := mustBuildRepos(ctx, cfg)
	var restored map[int]memory.Snapshot
	wc := worldConfig(cfg)
	if from := cfg.Persistence.ResumeRun; from != "" {
		restored, wc.StartTick, err = loadCheckpoints(ctx, store.checkpoints, from, cfg.Agents.Count)
		if err != nil {
			log.Fatalf("resume run %s: %v", from, err)
		}
		log.Printf("resuming %d agent memories from run %s at tick %d", len(restored), from, wc.StartTick)
	}

	env, err := worldruntime.NewWorld(wc)
	if err != nil {
		log.Fatalf("build world: %v", err)
	}
	agents, err := buildAgents(cfg, restored)
	if err != nil {
		log.Fatalf("build agents: %v", err)
	}

	codec, err := wire.NewCodec()
	if err != nil {
		log.Fatalf("wire codec: %v", err)
	}
	defer codec.Close()

	sinks, closers, index := buildSinks(cfg, runID)
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Printf("close sink: %v", err)
			}
		}
	}()
	hub := observer.NewHub(nil)
	sinks = append(sinks, hub)
	kpiRecorder := metricsinmem.NewRecorder()

	runner := tick.NewRunner(tick.UseCase{
		World:           env,
		Mailbox:         mailbox.New(codec),
		Agents:          agents,
		TxManager:       store.tx,
		Checkpoints:     store.checkpoints,
		Ticks:           store.ticks,
		Sinks:           sinks,
		Metrics:         kpiRecorder,
		RunID:           runID,
		CheckpointEvery: cfg.Persistence.CheckpointEvery,
		Now:             time.Now,
	})

	h := httpadapter.Handler{
		InspectUC: inspect.UseCase{Registry: runner, Checkpoints: store.checkpoints},
		ReplayUC:  replay.UseCase{Ticks: store.ticks},
		RunID:     runID,
		KPI:       kpiRecorder,
		Observer:  hub,
	}
	if index != nil {
		h.Index = index
	}
	if cfg.Server.Manual {
		h.Stepper = runner
	}

	s := server.Default(server.WithHostPorts(cfg.Server.HTTPAddr))
	h.RegisterRoutes(s)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub.WSHandler())
	ws := &http.Server{Addr: cfg.Server.WSAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := ws.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("observer listener: %v", err)
		}
	}()

	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		if cfg.Server.Manual {
			<-ctx.Done()
			return
		}
		interval := time.Duration(cfg.Server.TickMS) * time.Millisecond
		if err := runner.Run(ctx, interval, cfg.Server.MaxTicks); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("runner stopped: %v", err)
		}
	}()

	log.Printf("tileworld run %s: %d agents on %dx%d, api %s, observer %s/ws", runID, cfg.Agents.Count, cfg.World.Width, cfg.World.Height, cfg.Server.HTTPAddr, cfg.Server.WSAddr)
	// Spin blocks until SIGINT or SIGTERM and shuts the api down itself.
	s.Spin()

	stop()
	<-runnerDone
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Shutdown(shutdownCtx); err != nil {
		log.Printf("observer shutdown: %v", err)
	}
}

func worldConfig(cfg config.Config) worldruntime.Config {
	return worldruntime.Config{
		Width:       cfg.World.Width,
		Height:      cfg.World.Height,
		Seed:        cfg.World.Seed,
		Agents:      cfg.Agents.Count,
		SensorRange: cfg.World.SensorRange,
		Lifetime:    int64(cfg.World.Lifetime),
		MaxFuel:     cfg.Agents.MaxFuel,
		Capacity:    cfg.Agents.Capacity,
		TileRate:    cfg.World.TileRate,
		HoleRate:    cfg.World.HoleRate,
		ObstaclePct: cfg.World.ObstaclePct,
	}
}

// buildAgents creates agents 1..N, matching the ids the world places. An
// agent with a restored snapshot starts from that memory.
func buildAgents(cfg config.Config, restored map[int]memory.Snapshot) ([]*agent.Agent, error) {
	params, err := memory.NewParams(cfg.World.Width, cfg.World.Height, cfg.World.SensorRange, cfg.World.Lifetime)
	if err != nil {
		return nil, err
	}
	out := make([]*agent.Agent, 0, cfg.Agents.Count)
	for id := 1; id <= cfg.Agents.Count; id++ {
		strategy, err := buildStrategy(cfg, cfg.StrategyFor(id))
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", id, err)
		}
		mem := memory.New(params)
		if snap, ok := restored[id]; ok {
			mem = memory.Restore(params, snap)
		}
		astar := planner.NewAStar(mem, nil)
		a := agent.New(id, mem, astar, strategy, agent.Options{
			Population: cfg.Agents.Count,
			Seed:       cfg.World.Seed,
		})
		astar.Origin = func() grid.Point { return a.Perception().Self }
		out = append(out, a)
	}
	return out, nil
}

// loadCheckpoints reads the last checkpoint of agents 1..n in runID and the
// latest tick among them. Agents without a checkpoint are skipped.
func loadCheckpoints(ctx context.Context, repo ports.CheckpointRepository, runID string, n int) (map[int]memory.Snapshot, int64, error) {
	out := map[int]memory.Snapshot{}
	var last int64
	for id := 1; id <= n; id++ {
		cp, err := repo.Get(ctx, runID, id)
		if errors.Is(err, ports.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("agent %d: %w", id, err)
		}
		out[id] = cp.Memory
		last = max(last, cp.Tick, cp.Memory.Tick)
	}
	return out, last, nil
}

func buildStrategy(cfg config.Config, name string) (agent.Strategy, error) {
	switch name {
	case config.StrategyHybrid:
		coord := contract.New(contract.Params{
			Capacity:              cfg.Agents.Capacity,
			AnnounceCount:         cfg.Protocol.AnnounceCount,
			MaxAssistZoneDistance: cfg.Protocol.MaxAssistZoneDistance,
			LifetimeThreshold:     cfg.Protocol.LifetimeThreshold,
			TSPHeuristic:          cfg.Protocol.TSPHeuristic,
		})
		mp := mode.DefaultParams(cfg.Agents.MaxFuel)
		mp.FuelTolerance = cfg.Protocol.FuelTolerance
		mp.HardFuelLimit = cfg.Protocol.HardFuelLimit
		mp.Capacity = cfg.Agents.Capacity
		mp.AllowAssist = cfg.Protocol.AllowAssist
		return agent.NewHybrid(coord, mode.NewSelector(mp, coord)), nil
	case config.StrategyGreedy:
		return agent.NewGreedy(cfg.Agents.Capacity, cfg.Protocol.GreedyRefuelLevel, cfg.Protocol.Recency), nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", config.ErrInvalidConfig, name)
	}
}

func mustBuildRepos(ctx context.Context, cfg config.Config) repos {
	dsn := cfg.Persistence.DBDSN
	if dsn == "" {
		store := memrepo.NewStore()
		store.MaxTicks = cfg.Persistence.MemoryTicks
		log.Println("TILEWORLD_DB_DSN not set, keeping ticks and checkpoints in memory")
		return repos{
			checkpoints: memrepo.NewCheckpointRepo(store),
			ticks:       memrepo.NewTickRepo(store),
			tx:          memrepo.NewTxManager(store),
		}
	}
	db, err := gormrepo.OpenPostgres(dsn)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gormrepo.ApplyMigrations(ctx, db, migrations.FS); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}
	return repos{
		checkpoints: gormrepo.NewCheckpointRepo(db),
		ticks:       gormrepo.NewTickRepo(db),
		tx:          gormrepo.NewTxManager(db),
	}
}

// buildSinks opens the optional tick archive and sqlite index. A sink that
// fails to open is logged and left out. The index is also returned for the
// query routes.
func buildSinks(cfg config.Config, runID string) ([]ports.TickSink, []io.Closer, *sqliteindex.Index) {
	var sinks []ports.TickSink
	var closers []io.Closer
	var index *sqliteindex.Index
	if dir := cfg.Persistence.TickLogDir; dir != "" {
		w := ticklog.NewWriter(dir, runID)
		sinks = append(sinks, w)
		closers = append(closers, w)
	}
	if path := cfg.Persistence.SQLitePath; path != "" {
		ix, err := sqliteindex.Open(path, 256)
		if err != nil {
			log.Printf("open tick index %s: %v", path, err)
		} else {
			sinks = append(sinks, ix)
			closers = append(closers, ix)
			index = ix
		}
	}
	return sinks, closers, index
}
