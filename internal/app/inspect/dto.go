package inspect

import (
	"tileworld/internal/domain/agent"
	"tileworld/internal/domain/contract"
	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
	"tileworld/internal/domain/zone"
)

type CheckpointRequest struct {
	RunID   string
	AgentID int
}

type Request struct {
	// AgentID selects one agent; zero lists all.
	AgentID       int
	IncludeMemory bool
}

type AgentView struct {
	ID          int              `json:"id"`
	Strategy    string           `json:"strategy"`
	Tick        int64            `json:"tick"`
	Position    grid.Point       `json:"position"`
	Fuel        float64          `json:"fuel"`
	Carried     int              `json:"carried"`
	Zone        zone.Zone        `json:"zone"`
	FuelStation *grid.Point      `json:"fuel_station,omitempty"`
	Known       map[string]int   `json:"known"`
	Last        agent.Outcome    `json:"last"`
	Board       *contract.Board  `json:"board,omitempty"`
	Memory      *memory.Snapshot `json:"memory,omitempty"`
}

type Response struct {
	Agents []AgentView `json:"agents"`
}

type ZonesResponse struct {
	Partitioned bool            `json:"partitioned"`
	Assignment  zone.Assignment `json:"assignment"`
}
