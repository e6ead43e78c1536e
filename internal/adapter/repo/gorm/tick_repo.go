package gormrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tileworld/internal/adapter/repo/gorm/model"
	"tileworld/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TickRepo struct {
	db *gorm.DB
}

func NewTickRepo(db *gorm.DB) TickRepo {
	return TickRepo{db: db}
}

func (r TickRepo) Append(ctx context.Context, s ports.TickSummary) error {
	agents, err := json.Marshal(s.Agents)
	if err != nil {
		return fmt.Errorf("encode agent rows: %w", err)
	}
	row := model.TickSummary{
		RunID:      s.RunID,
		Tick:       s.Tick,
		StartedAt:  s.StartedAt,
		DurationNs: int64(s.Duration),
		Score:      int32(s.Score),
		Messages:   int32(s.Messages),
		Claims:     int32(s.Claims),
		Contracts:  int32(s.Contracts),
		Agents:     agents,
	}
	if err := getDBFromCtx(ctx, r.db).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.ErrConflict
		}
		return err
	}
	return nil
}

// ListRecent returns up to limit of the newest ticks of a run in tick order.
func (r TickRepo) ListRecent(ctx context.Context, runID string, limit int) ([]ports.TickSummary, error) {
	rows := []model.TickSummary{}
	query := getDBFromCtx(ctx, r.db).
		Where(&model.TickSummary{RunID: runID}).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "tick"}, Desc: true}},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]ports.TickSummary, len(rows))
	for i, row := range rows {
		s := ports.TickSummary{
			RunID:     row.RunID,
			Tick:      row.Tick,
			StartedAt: row.StartedAt,
			Duration:  time.Duration(row.DurationNs),
			Score:     int(row.Score),
			Messages:  int(row.Messages),
			Claims:    int(row.Claims),
			Contracts: int(row.Contracts),
		}
		if len(row.Agents) > 0 {
			if err := json.Unmarshal(row.Agents, &s.Agents); err != nil {
				return nil, fmt.Errorf("decode agent rows of tick %d: %w", row.Tick, err)
			}
		}
		out[len(rows)-1-i] = s
	}
	return out, nil
}
