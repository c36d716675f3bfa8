package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidVoucherCode = errors.New("invalid_voucher_code")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidOccurredAt  = errors.New("invalid_occurred_at")
	ErrInvalidAgent       = errors.New("invalid_agent")
)

// AgentSale is present when the voucher was issued through an agent.
type AgentSale struct {
	AgentID    snowflake.ID
	AgentName  string
	Commission int64
}

// VoucherActivation describes a voucher that just moved to ACTIVE.
type VoucherActivation struct {
	Code        string
	ProfileName string
	CostPrice   int64
	ActivatedAt time.Time
	Agent       *AgentSale
}

type PostResult struct {
	IncomePosted     bool
	CommissionPosted bool
	SaleRecorded     bool
}

type Service interface {
	// PostVoucherActivation posts the income leg and, for agent vouchers,
	// the commission leg. Repeated calls for the same code are no-ops.
	PostVoucherActivation(ctx context.Context, activation VoucherActivation) (PostResult, error)
}
