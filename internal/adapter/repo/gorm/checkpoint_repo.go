package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tileworld/internal/adapter/repo/gorm/model"
	"tileworld/internal/app/ports"
	"tileworld/internal/domain/grid"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckpointRepo struct {
	db *gorm.DB
}

func NewCheckpointRepo(db *gorm.DB) CheckpointRepo {
	return CheckpointRepo{db: db}
}

// Save upserts the agent's checkpoint; only the newest tick per agent and run is kept.
func (r CheckpointRepo) Save(ctx context.Context, cp ports.Checkpoint) error {
	mem, err := json.Marshal(cp.Memory)
	if err != nil {
		return fmt.Errorf("encode memory snapshot: %w", err)
	}
	row := model.AgentCheckpoint{
		RunID:     cp.RunID,
		AgentID:   int32(cp.AgentID),
		Tick:      cp.Tick,
		X:         int32(cp.Position.X),
		Y:         int32(cp.Position.Y),
		Fuel:      cp.Fuel,
		Carried:   int32(cp.Carried),
		ZoneID:    int32(cp.Zone),
		Memory:    mem,
		UpdatedAt: cp.UpdatedAt,
	}
	return getDBFromCtx(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "agent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tick", "x", "y", "fuel", "carried", "zone_id", "memory", "updated_at"}),
	}).Create(&row).Error
}

func (r CheckpointRepo) Get(ctx context.Context, runID string, agentID int) (ports.Checkpoint, error) {
	var row model.AgentCheckpoint
	err := getDBFromCtx(ctx, r.db).
		Where("run_id = ? AND agent_id = ?", runID, agentID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Checkpoint{}, ports.ErrNotFound
		}
		return ports.Checkpoint{}, err
	}
	cp := ports.Checkpoint{
		RunID:     row.RunID,
		AgentID:   int(row.AgentID),
		Tick:      row.Tick,
		Position:  grid.Point{X: int(row.X), Y: int(row.Y)},
		Fuel:      row.Fuel,
		Carried:   int(row.Carried),
		Zone:      int(row.ZoneID),
		UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Memory, &cp.Memory); err != nil {
		return ports.Checkpoint{}, fmt.Errorf("decode memory snapshot: %w", err)
	}
	return cp, nil
}
