package repository

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/netbill/internal/scheduler/domain"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) domain.RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Insert(ctx context.Context, run *domain.RunRecord) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Close finalizes a running record. A record that is no longer running is
// left untouched and ErrRunNotOpen is returned.
func (r *runRepository) Close(ctx context.Context, run *domain.RunRecord) error {
	res := r.db.WithContext(ctx).
		Model(&domain.RunRecord{}).
		Where("id = ? AND status = ?", run.ID, domain.RunStatusRunning).
		Updates(map[string]any{
			"status":      run.Status,
			"finished_at": run.FinishedAt,
			"duration_ms": run.DurationMs,
			"result":      run.Result,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRunNotOpen
	}
	return nil
}

func (r *runRepository) List(ctx context.Context, filter domain.ListRunsFilter) ([]domain.RunRecord, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}

	query := r.db.WithContext(ctx).Model(&domain.RunRecord{})
	if job := strings.TrimSpace(filter.Job); job != "" {
		query = query.Where("job = ?", job)
	}

	var runs []domain.RunRecord
	if err := query.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// CloseInterrupted marks records left running by a previous process as failed.
func (r *runRepository) CloseInterrupted(ctx context.Context, at time.Time, result string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.RunRecord{}).
		Where("status = ?", domain.RunStatusRunning).
		Updates(map[string]any{
			"status":      domain.RunStatusError,
			"finished_at": at,
			"result":      result,
		})
	return res.RowsAffected, res.Error
}

func (r *runRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status <> ? AND started_at < ?", domain.RunStatusRunning, cutoff).
		Delete(&domain.RunRecord{})
	return res.RowsAffected, res.Error
}
