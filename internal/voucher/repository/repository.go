package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	"github.com/smallbiznis/netbill/internal/voucher/domain"
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

func (r *repo) ListWaiting(ctx context.Context, afterID snowflake.ID, limit int) ([]domain.Voucher, error) {
	if limit <= 0 {
		limit = 500
	}
	var items []domain.Voucher
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Agent").
		Where("status = ? AND id > ?", domain.StatusWaiting, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Activate(ctx context.Context, id snowflake.ID, firstLoginAt, expiresAt, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Voucher{}).
		Where("id = ? AND status = ? AND first_login_at IS NULL", id, domain.StatusWaiting).
		Updates(map[string]any{
			"status":         domain.StatusActive,
			"first_login_at": firstLoginAt.UTC(),
			"expires_at":     expiresAt.UTC(),
			"updated_at":     now.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListUnledgered(ctx context.Context, afterID snowflake.ID, limit int) ([]domain.Voucher, error) {
	if limit <= 0 {
		limit = 500
	}
	reference := "CAST(? AS TEXT) || vouchers.code"
	if r.db.Dialector.Name() == "mysql" {
		reference = "CONCAT(?, vouchers.code)"
	}
	var items []domain.Voucher
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Agent").
		Where("status IN ? AND first_login_at IS NOT NULL AND id > ?",
			[]domain.Status{domain.StatusActive, domain.StatusExpired}, afterID).
		Where("(order_id IS NULL OR order_id = '')").
		Where("(NOT EXISTS (SELECT 1 FROM ledger_entries WHERE ledger_entries.reference = "+reference+")"+
			" OR (vouchers.origin = ? AND vouchers.agent_id IS NOT NULL"+
			" AND NOT EXISTS (SELECT 1 FROM agent_sale_records WHERE agent_sale_records.voucher_code = vouchers.code)))",
			ledgerdomain.VoucherReference(""), domain.OriginAgent).
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindExpiredActiveVouchers(ctx context.Context, now time.Time) ([]domain.Voucher, error) {
	var items []domain.Voucher
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", domain.StatusActive, now.UTC()).
		Order("expires_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkExpired(ctx context.Context, id snowflake.ID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Voucher{}).
		Where("id = ? AND status = ?", id, domain.StatusActive).
		Updates(map[string]any{
			"status":     domain.StatusExpired,
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindExpiredWithOpenSessions(ctx context.Context, since time.Time) ([]domain.Voucher, error) {
	var items []domain.Voucher
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at >= ?", domain.StatusExpired, since.UTC()).
		Where("EXISTS (SELECT 1 FROM radacct WHERE radacct.username = vouchers.code AND radacct.acctstoptime IS NULL)").
		Order("expires_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
