package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/clock"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	obslogger "github.com/smallbiznis/netbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/netbill/internal/observability/metrics"
	dbutil "github.com/smallbiznis/netbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("ledger.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) PostVoucherActivation(ctx context.Context, a ledgerdomain.VoucherActivation) (ledgerdomain.PostResult, error) {
	var result ledgerdomain.PostResult

	code := strings.TrimSpace(a.Code)
	if code == "" {
		return result, ledgerdomain.ErrInvalidVoucherCode
	}
	if a.CostPrice < 0 {
		return result, ledgerdomain.ErrInvalidAmount
	}
	if a.ActivatedAt.IsZero() {
		return result, ledgerdomain.ErrInvalidOccurredAt
	}
	if a.Agent != nil && (a.Agent.AgentID == 0 || a.Agent.Commission < 0) {
		return result, ledgerdomain.ErrInvalidAgent
	}

	income := ledgerdomain.LedgerEntry{
		Category:    ledgerdomain.CategoryVoucherSale,
		Direction:   ledgerdomain.DirectionIncome,
		Amount:      a.CostPrice,
		Description: fmt.Sprintf("Voucher sale %s (%s)", code, a.ProfileName),
		Reference:   ledgerdomain.VoucherReference(code),
		OccurredAt:  a.ActivatedAt.UTC(),
	}
	// All legs commit together, so an existing income entry means the
	// activation is fully booked.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posted, err := s.postOnce(ctx, tx, income)
		if err != nil {
			return fmt.Errorf("post %s: %w", income.Reference, err)
		}
		result.IncomePosted = posted

		if a.Agent == nil {
			return nil
		}
		recorded, err := s.recordAgentSale(ctx, tx, code, a)
		if err != nil {
			return fmt.Errorf("record agent sale: %w", err)
		}
		result.SaleRecorded = recorded

		if a.Agent.Commission == 0 {
			return nil
		}
		agentID := a.Agent.AgentID
		commission := ledgerdomain.LedgerEntry{
			Category:    ledgerdomain.CategoryAgentCommission,
			Direction:   ledgerdomain.DirectionExpense,
			Amount:      a.Agent.Commission,
			Description: fmt.Sprintf("Agent commission %s for %s", code, a.Agent.AgentName),
			Reference:   ledgerdomain.CommissionReference(code),
			AgentID:     &agentID,
			OccurredAt:  a.ActivatedAt.UTC(),
		}
		posted, err = s.postOnce(ctx, tx, commission)
		if err != nil {
			return fmt.Errorf("post %s: %w", commission.Reference, err)
		}
		result.CommissionPosted = posted
		return nil
	})
	if err != nil {
		return ledgerdomain.PostResult{}, err
	}
	return result, nil
}

// postOnce inserts entry unless its reference already exists. The lookup
// runs every time; the conflict clause covers a concurrent writer that
// inserted between the lookup and the insert.
func (s *Service) postOnce(ctx context.Context, db *gorm.DB, entry ledgerdomain.LedgerEntry) (bool, error) {
	var existing int64
	if err := db.WithContext(ctx).
		Model(&ledgerdomain.LedgerEntry{}).
		Where("reference = ?", entry.Reference).
		Count(&existing).Error; err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	entry.ID = s.genID.Generate()
	entry.CreatedAt = s.clock.Now()
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "reference"}}, DoNothing: true}).
		Create(&entry)
	if res.Error != nil {
		if dbutil.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	s.metrics.RecordLedgerEntry(ctx, string(entry.Category))
	obslogger.WithContext(ctx, s.log).Info("ledger.entry.posted",
		zap.String("reference", entry.Reference),
		zap.String("category", string(entry.Category)),
		zap.String("direction", string(entry.Direction)),
		zap.Int64("amount", entry.Amount),
	)
	return true, nil
}

func (s *Service) recordAgentSale(ctx context.Context, tx *gorm.DB, code string, a ledgerdomain.VoucherActivation) (bool, error) {
	record := ledgerdomain.AgentSaleRecord{
		ID:          s.genID.Generate(),
		VoucherCode: code,
		AgentID:     a.Agent.AgentID,
		Commission:  a.Agent.Commission,
		SoldAt:      a.ActivatedAt.UTC(),
		CreatedAt:   s.clock.Now(),
	}
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "voucher_code"}}, DoNothing: true}).
		Create(&record)
	if res.Error != nil {
		if dbutil.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
