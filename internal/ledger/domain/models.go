package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

type Category string

const (
	CategoryVoucherSale     Category = "voucher_sale"
	CategoryAgentCommission Category = "agent_commission"
)

const (
	voucherReferencePrefix    = "VOUCHER-"
	commissionReferencePrefix = "COMMISSION-"
)

// LedgerEntry is a single posting. Reference is the idempotency key: at
// most one row exists per reference.
type LedgerEntry struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	Category    Category      `gorm:"type:varchar(32);not null;index" json:"category"`
	Direction   Direction     `gorm:"type:varchar(16);not null" json:"direction"`
	Amount      int64         `gorm:"not null" json:"amount"`
	Description string        `gorm:"type:text" json:"description"`
	Reference   string        `gorm:"type:varchar(128);not null;uniqueIndex" json:"reference"`
	AgentID     *snowflake.ID `json:"agent_id,omitempty"`
	OccurredAt  time.Time     `gorm:"not null;index" json:"occurred_at"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// AgentSaleRecord is written once per voucher sold through an agent.
type AgentSaleRecord struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	VoucherCode string       `gorm:"type:varchar(64);not null;uniqueIndex" json:"voucher_code"`
	AgentID     snowflake.ID `gorm:"not null;index" json:"agent_id"`
	Commission  int64        `gorm:"not null" json:"commission"`
	SoldAt      time.Time    `gorm:"not null" json:"sold_at"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (AgentSaleRecord) TableName() string { return "agent_sale_records" }

func VoucherReference(code string) string {
	return voucherReferencePrefix + code
}

func CommissionReference(code string) string {
	return commissionReferencePrefix + code
}
