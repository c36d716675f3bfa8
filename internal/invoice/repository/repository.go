package repository

import (
	"context"
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/invoice/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *repo) ListPendingDueOn(ctx context.Context, date time.Time) ([]domain.Invoice, error) {
	start := date.UTC()
	end := start.AddDate(0, 0, 1)

	var items []domain.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date >= ? AND due_date < ?", domain.InvoiceStatusPending, start, end).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) AppendSentOffset(ctx context.Context, id snowflake.ID, offset int, now time.Time) (bool, error) {
	var appended bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv domain.Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&inv).Error; err != nil {
			return err
		}
		if inv.ReminderSent(offset) {
			return nil
		}

		offsets := append(slices.Clone(inv.SentReminderOffsets), offset)
		if err := tx.Model(&domain.Invoice{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"sent_reminder_offsets": datatypes.JSONSlice[int](offsets),
				"updated_at":            now.UTC(),
			}).Error; err != nil {
			return err
		}
		appended = true
		return nil
	})
	return appended, err
}
