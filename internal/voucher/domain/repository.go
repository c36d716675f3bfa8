package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTrx(tx *gorm.DB) Repository

	// ListWaiting pages WAITING vouchers by id, with profile and agent loaded.
	ListWaiting(ctx context.Context, afterID snowflake.ID, limit int) ([]Voucher, error)

	// Activate moves a WAITING voucher to ACTIVE. It reports false when the
	// voucher was no longer WAITING or already had a first login.
	Activate(ctx context.Context, id snowflake.ID, firstLoginAt, expiresAt, now time.Time) (bool, error)

	// ListUnledgered pages activated, reconciler-ledgered vouchers whose
	// income entry or agent sale record is missing.
	ListUnledgered(ctx context.Context, afterID snowflake.ID, limit int) ([]Voucher, error)

	// FindExpiredActiveVouchers returns ACTIVE vouchers with expires_at
	// strictly before now. now must come from the application clock.
	FindExpiredActiveVouchers(ctx context.Context, now time.Time) ([]Voucher, error)

	MarkExpired(ctx context.Context, id snowflake.ID, now time.Time) (bool, error)

	// FindExpiredWithOpenSessions returns EXPIRED vouchers, expired at or
	// after since, that still have an accounting session without a stop time.
	FindExpiredWithOpenSessions(ctx context.Context, since time.Time) ([]Voucher, error)
}
