package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/subscriber/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) WithTrx(tx *gorm.DB) domain.Repository {
	return &repo{db: tx}
}

func (r *repo) ListExpiredActive(ctx context.Context, today time.Time) ([]domain.Subscriber, error) {
	if today.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	var items []domain.Subscriber
	err := r.db.WithContext(ctx).
		Where("status = ? AND expiry_date < ?", domain.StatusActive, today.UTC()).
		Order("expiry_date ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkIsolated(ctx context.Context, id snowflake.ID, now time.Time) (bool, error) {
	now = now.UTC()
	res := r.db.WithContext(ctx).
		Model(&domain.Subscriber{}).
		Where("id = ? AND status = ?", id, domain.StatusActive).
		Updates(map[string]any{
			"status":      domain.StatusIsolated,
			"isolated_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
