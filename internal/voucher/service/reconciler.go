package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	aaadomain "github.com/smallbiznis/netbill/internal/aaa/domain"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	obslogger "github.com/smallbiznis/netbill/internal/observability/logger"
	"github.com/smallbiznis/netbill/internal/voucher/domain"
	"github.com/smallbiznis/netbill/pkg/workpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	waitingPageSize = 500
	// Expired vouchers are re-checked for lingering sessions for this long.
	lingeringSessionWindow = time.Hour
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Config       config.Config
	Vouchers     domain.Repository
	AAA          aaadomain.Store
	Disconnector aaadomain.Disconnector
	Ledger       ledgerdomain.Service
}

type Reconciler struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	loc          *time.Location
	workers      int
	vouchers     domain.Repository
	aaa          aaadomain.Store
	disconnector aaadomain.Disconnector
	ledger       ledgerdomain.Service
}

func NewReconciler(p Params) *Reconciler {
	return &Reconciler{
		db:           p.DB,
		log:          p.Log.Named("voucher.reconciler"),
		clock:        p.Clock,
		loc:          p.Config.Location(),
		workers:      p.Config.Scheduler.Workers,
		vouchers:     p.Vouchers,
		aaa:          p.AAA,
		disconnector: p.Disconnector,
		ledger:       p.Ledger,
	}
}

// ReconcileVouchers promotes WAITING vouchers that have logged in, posts
// their ledger entries, expires ACTIVE vouchers past their validity and
// forces any expired sessions off the network. Postings that failed on an
// earlier run are retried first. Promotion always finishes before the
// expiry sweep. Per-voucher failures are counted, not returned.
func (r *Reconciler) ReconcileVouchers(ctx context.Context) (domain.ReconcileResult, error) {
	var result domain.ReconcileResult

	if err := r.retryUnledgered(ctx, &result); err != nil {
		return result, fmt.Errorf("retry unledgered vouchers: %w", err)
	}

	if err := r.promoteWaiting(ctx, &result); err != nil {
		return result, fmt.Errorf("promote waiting vouchers: %w", err)
	}

	now := r.clock.Now()
	expired, err := r.expireActive(ctx, now, &result)
	if err != nil {
		return result, fmt.Errorf("expire active vouchers: %w", err)
	}

	lingering, err := r.vouchers.FindExpiredWithOpenSessions(ctx, now.Add(-lingeringSessionWindow))
	if err != nil {
		obslogger.ItemFailed(ctx, r.log, "find_lingering_sessions", err)
	}
	r.disconnect(ctx, mergeCodes(expired, lingering), &result)

	return result, nil
}

func (r *Reconciler) promoteWaiting(ctx context.Context, result *domain.ReconcileResult) error {
	var afterID snowflake.ID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := r.vouchers.ListWaiting(ctx, afterID, waitingPageSize)
		if err != nil {
			return err
		}
		for _, v := range page {
			result.Examined++
			r.promote(ctx, v, result)
		}
		if len(page) < waitingPageSize {
			return nil
		}
		afterID = page[len(page)-1].ID
	}
}

// retryUnledgered reposts activations whose ledger write failed after the
// voucher had already moved to ACTIVE.
func (r *Reconciler) retryUnledgered(ctx context.Context, result *domain.ReconcileResult) error {
	var afterID snowflake.ID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := r.vouchers.ListUnledgered(ctx, afterID, waitingPageSize)
		if err != nil {
			return err
		}
		for _, v := range page {
			if v.Profile == nil || v.FirstLoginAt == nil {
				result.LedgerFailed++
				obslogger.ItemFailed(ctx, r.log, "load_profile", domain.ErrProfileMissing, zap.String("voucher_code", v.Code))
				continue
			}
			if r.post(ctx, v, *v.FirstLoginAt, result) {
				result.LedgerRetried++
			}
		}
		if len(page) < waitingPageSize {
			return nil
		}
		afterID = page[len(page)-1].ID
	}
}

func (r *Reconciler) promote(ctx context.Context, v domain.Voucher, result *domain.ReconcileResult) {
	fields := []zap.Field{zap.String("voucher_code", v.Code)}

	firstLogin, found, err := r.aaa.EarliestSessionStart(ctx, v.Code)
	if err != nil {
		result.Failed++
		obslogger.ItemFailed(ctx, r.log, "earliest_session", err, fields...)
		return
	}
	if !found {
		return
	}
	if v.Profile == nil {
		result.Failed++
		obslogger.ItemFailed(ctx, r.log, "load_profile", domain.ErrProfileMissing, fields...)
		return
	}

	expiresAt, err := domain.ComputeExpiry(firstLogin, v.Profile.ValidityValue, v.Profile.ValidityUnit, r.loc)
	if err != nil {
		result.Failed++
		obslogger.ItemFailed(ctx, r.log, "compute_expiry", err, fields...)
		return
	}

	activated, err := r.vouchers.Activate(ctx, v.ID, firstLogin, expiresAt, r.clock.Now())
	if err != nil {
		result.Failed++
		obslogger.ItemFailed(ctx, r.log, "activate", err, fields...)
		return
	}
	if !activated {
		return
	}
	result.Synced++
	obslogger.WithContext(ctx, r.log).Info("voucher.activated",
		zap.String("voucher_code", v.Code),
		zap.Time("first_login_at", firstLogin),
		zap.Time("expires_at", expiresAt),
	)

	if v.LedgeredHere() {
		r.post(ctx, v, firstLogin, result)
	}
}

func (r *Reconciler) post(ctx context.Context, v domain.Voucher, firstLogin time.Time, result *domain.ReconcileResult) bool {
	if _, err := r.ledger.PostVoucherActivation(ctx, activationOf(v, firstLogin)); err != nil {
		result.LedgerFailed++
		obslogger.ItemFailed(ctx, r.log, "post_ledger", err, zap.String("voucher_code", v.Code))
		return false
	}
	return true
}

func activationOf(v domain.Voucher, firstLogin time.Time) ledgerdomain.VoucherActivation {
	activation := ledgerdomain.VoucherActivation{
		Code:        v.Code,
		ProfileName: v.Profile.Name,
		CostPrice:   v.Profile.CostPrice,
		ActivatedAt: firstLogin,
	}
	if v.SoldByAgent() {
		sale := &ledgerdomain.AgentSale{
			AgentID:    *v.AgentID,
			Commission: v.Profile.Commission,
		}
		if v.Agent != nil {
			sale.AgentName = v.Agent.Name
		}
		activation.Agent = sale
	}
	return activation
}

// expireActive removes the credentials of every voucher past its expiry and
// flips it to EXPIRED, one transaction per voucher.
func (r *Reconciler) expireActive(ctx context.Context, now time.Time, result *domain.ReconcileResult) ([]string, error) {
	items, err := r.vouchers.FindExpiredActiveVouchers(ctx, now)
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(items))
	for _, v := range items {
		if err := ctx.Err(); err != nil {
			return codes, err
		}
		var expired bool
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := r.aaa.WithTrx(tx).PurgeCredentials(ctx, v.Code); err != nil {
				return fmt.Errorf("purge credentials: %w", err)
			}
			ok, err := r.vouchers.WithTrx(tx).MarkExpired(ctx, v.ID, now)
			if err != nil {
				return fmt.Errorf("mark expired: %w", err)
			}
			expired = ok
			return nil
		})
		if err != nil {
			result.Failed++
			obslogger.ItemFailed(ctx, r.log, "expire", err, zap.String("voucher_code", v.Code))
			continue
		}
		if !expired {
			continue
		}
		result.Expired++
		codes = append(codes, v.Code)
	}
	return codes, nil
}

func (r *Reconciler) disconnect(ctx context.Context, codes []string, result *domain.ReconcileResult) {
	if len(codes) == 0 || r.disconnector == nil {
		return
	}

	var mu sync.Mutex
	err := workpool.ForEach(ctx, r.workers, codes, func(ctx context.Context, code string) {
		res, err := r.disconnector.Disconnect(ctx, code)
		if err == nil {
			if res.Disconnected > 0 {
				obslogger.WithContext(ctx, r.log).Info("voucher.disconnected",
					zap.String("voucher_code", code),
					zap.Int("sessions", res.Disconnected),
				)
			}
			return
		}
		mu.Lock()
		result.DisconnectFailed++
		mu.Unlock()
		obslogger.ItemFailed(ctx, r.log, "disconnect", err, zap.String("voucher_code", code))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		obslogger.ItemFailed(ctx, r.log, "disconnect", err)
	}
}

func mergeCodes(expired []string, lingering []domain.Voucher) []string {
	seen := make(map[string]struct{}, len(expired)+len(lingering))
	out := make([]string, 0, len(expired)+len(lingering))
	for _, code := range expired {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	for _, v := range lingering {
		if _, ok := seen[v.Code]; ok {
			continue
		}
		seen[v.Code] = struct{}{}
		out = append(out, v.Code)
	}
	return out
}
