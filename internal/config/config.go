// Package config loads the simulation settings from YAML, applies
// TILEWORLD_* environment overrides and validates the result.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

//go:embed schema.json
var schemaJSON string

const (
	StrategyHybrid = "hybrid"
	StrategyGreedy = "greedy"
)

type Config struct {
	World       World       `yaml:"world" json:"world"`
	Agents      Agents      `yaml:"agents" json:"agents"`
	Protocol    Protocol    `yaml:"protocol" json:"protocol"`
	Server      Server      `yaml:"server" json:"server"`
	Persistence Persistence `yaml:"persistence" json:"persistence"`
}

type World struct {
	Width       int     `yaml:"width" json:"width"`
	Height      int     `yaml:"height" json:"height"`
	Seed        uint64  `yaml:"seed" json:"seed"`
	SensorRange int     `yaml:"sensor_range" json:"sensor_range"`
	Lifetime    int     `yaml:"lifetime" json:"lifetime"`
	TileRate    float64 `yaml:"tile_rate" json:"tile_rate"`
	HoleRate    float64 `yaml:"hole_rate" json:"hole_rate"`
	ObstaclePct int     `yaml:"obstacle_pct" json:"obstacle_pct"`
}

type Agents struct {
	Count    int     `yaml:"count" json:"count"`
	MaxFuel  float64 `yaml:"max_fuel" json:"max_fuel"`
	Capacity int     `yaml:"capacity" json:"capacity"`
	Strategy string  `yaml:"strategy" json:"strategy"`
	// Overrides picks a strategy per agent id.
	Overrides map[int]string `yaml:"overrides" json:"overrides,omitempty"`
}

type Protocol struct {
	FuelTolerance         float64 `yaml:"fuel_tolerance" json:"fuel_tolerance"`
	HardFuelLimit         float64 `yaml:"hard_fuel_limit" json:"hard_fuel_limit"`
	AnnounceCount         int     `yaml:"announce_count" json:"announce_count"`
	MaxAssistZoneDistance int     `yaml:"max_assist_zone_distance" json:"max_assist_zone_distance"`
	LifetimeThreshold     float64 `yaml:"lifetime_threshold" json:"lifetime_threshold"`
	TSPHeuristic          bool    `yaml:"tsp_heuristic" json:"tsp_heuristic"`
	AllowAssist           bool    `yaml:"allow_assist" json:"allow_assist"`
	// Recency bounds how stale a percept the greedy strategy still chases.
	Recency int64 `yaml:"recency" json:"recency"`
	// GreedyRefuelLevel is the fuel below which a greedy agent heads home.
	GreedyRefuelLevel float64 `yaml:"greedy_refuel_level" json:"greedy_refuel_level"`
}

type Server struct {
	HTTPAddr string `yaml:"http_addr" json:"http_addr"`
	WSAddr   string `yaml:"ws_addr" json:"ws_addr"`
	TickMS   int    `yaml:"tick_ms" json:"tick_ms"`
	// MaxTicks stops the run after that many ticks; zero runs forever.
	MaxTicks int64 `yaml:"max_ticks" json:"max_ticks"`
	// Manual disables the tick loop; ticks come from POST /api/tick.
	Manual bool `yaml:"manual" json:"manual"`
}

type Persistence struct {
	DBDSN           string `yaml:"db_dsn" json:"db_dsn"`
	SQLitePath      string `yaml:"sqlite_path" json:"sqlite_path"`
	TickLogDir      string `yaml:"ticklog_dir" json:"ticklog_dir"`
	CheckpointEvery int64  `yaml:"checkpoint_every" json:"checkpoint_every"`
	// MemoryTicks bounds the in-memory tick history when no database is set.
	MemoryTicks int `yaml:"memory_ticks" json:"memory_ticks"`
	// ResumeRun seeds agent memories from the checkpoints of an earlier run.
	ResumeRun string `yaml:"resume_run" json:"resume_run"`
}

func DefaultConfig() Config {
	return Config{
		World: World{
			Width:       50,
			Height:      50,
			Seed:        1,
			SensorRange: 3,
			Lifetime:    100,
			TileRate:    0.6,
			HoleRate:    0.6,
			ObstaclePct: 5,
		},
		Agents: Agents{
			Count:    5,
			MaxFuel:  500,
			Capacity: 3,
			Strategy: StrategyHybrid,
		},
		Protocol: Protocol{
			FuelTolerance:         0.8,
			HardFuelLimit:         50,
			AnnounceCount:         1,
			MaxAssistZoneDistance: 1,
			LifetimeThreshold:     1.0,
			AllowAssist:           true,
			Recency:               100,
			GreedyRefuelLevel:     100,
		},
		Server: Server{
			HTTPAddr: ":8080",
			WSAddr:   ":8081",
			TickMS:   200,
		},
		Persistence: Persistence{
			CheckpointEvery: 50,
			MemoryTicks:     1000,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. An empty path loads the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	ApplyEnv(&cfg, os.Getenv)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from TILEWORLD_* variables. Malformed numbers are
// ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }
	intEnv := func(key string, fallback int) int {
		n, err := strconv.Atoi(env(key))
		if err != nil {
			return fallback
		}
		return n
	}

	cfg.Agents.Count = intEnv("TILEWORLD_AGENTS", cfg.Agents.Count)
	if v, err := strconv.ParseUint(env("TILEWORLD_SEED"), 10, 64); err == nil {
		cfg.World.Seed = v
	}
	cfg.Server.TickMS = intEnv("TILEWORLD_TICK_MS", cfg.Server.TickMS)
	cfg.Server.MaxTicks = int64(intEnv("TILEWORLD_MAX_TICKS", int(cfg.Server.MaxTicks)))
	if v := env("TILEWORLD_STRATEGY"); v != "" {
		cfg.Agents.Strategy = v
	}
	if v := env("TILEWORLD_HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := env("TILEWORLD_WS_ADDR"); v != "" {
		cfg.Server.WSAddr = v
	}
	if v := env("TILEWORLD_DB_DSN"); v != "" {
		cfg.Persistence.DBDSN = v
	}
	if v := env("TILEWORLD_SQLITE_PATH"); v != "" {
		cfg.Persistence.SQLitePath = v
	}
	if v := env("TILEWORLD_TICKLOG_DIR"); v != "" {
		cfg.Persistence.TickLogDir = v
	}
	if v := env("TILEWORLD_RESUME_RUN"); v != "" {
		cfg.Persistence.ResumeRun = v
	}
}

// Validate checks cfg against the embedded schema and the rules a schema
// cannot express.
func Validate(cfg Config) error {
	schema, err := jsonschema.CompileString("config.schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if longer := max(cfg.World.Width, cfg.World.Height); cfg.Agents.Count > longer {
		return fmt.Errorf("%w: %d agents cannot split a map whose longer side is %d", ErrInvalidConfig, cfg.Agents.Count, longer)
	}
	if cfg.Protocol.GreedyRefuelLevel > cfg.Agents.MaxFuel {
		return fmt.Errorf("%w: greedy refuel level %.0f exceeds max fuel %.0f", ErrInvalidConfig, cfg.Protocol.GreedyRefuelLevel, cfg.Agents.MaxFuel)
	}
	if cfg.Protocol.HardFuelLimit >= cfg.Agents.MaxFuel {
		return fmt.Errorf("%w: hard fuel limit %.0f must be below max fuel %.0f", ErrInvalidConfig, cfg.Protocol.HardFuelLimit, cfg.Agents.MaxFuel)
	}
	for id, s := range cfg.Agents.Overrides {
		if id < 1 || id > cfg.Agents.Count {
			return fmt.Errorf("%w: strategy override for unknown agent %d", ErrInvalidConfig, id)
		}
		if s != StrategyHybrid && s != StrategyGreedy {
			return fmt.Errorf("%w: agent %d: unknown strategy %q", ErrInvalidConfig, id, s)
		}
	}
	return nil
}

// StrategyFor returns the strategy name configured for agent id.
func (c Config) StrategyFor(id int) string {
	if s, ok := c.Agents.Overrides[id]; ok {
		return s
	}
	return c.Agents.Strategy
}
