package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusWaiting Status = "WAITING"
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
)

// Origin records how a voucher was issued. It is set at issuance and
// decides whether an agent commission is owed.
type Origin string

const (
	OriginSelfService Origin = "self_service"
	OriginManual      Origin = "manual"
	OriginAgent       Origin = "agent"
)

type ValidityUnit string

const (
	UnitMinutes ValidityUnit = "MINUTES"
	UnitHours   ValidityUnit = "HOURS"
	UnitDays    ValidityUnit = "DAYS"
	UnitMonths  ValidityUnit = "MONTHS"
)

type Profile struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"type:varchar(64);not null" json:"name"`
	ValidityValue int          `gorm:"not null" json:"validity_value"`
	ValidityUnit  ValidityUnit `gorm:"type:varchar(16);not null" json:"validity_unit"`
	Price         int64        `gorm:"not null;default:0" json:"price"`
	CostPrice     int64        `gorm:"not null;default:0" json:"cost_price"`
	Commission    int64        `gorm:"not null;default:0" json:"commission"`
	GroupName     string       `gorm:"type:varchar(64)" json:"group_name"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (Profile) TableName() string { return "voucher_profiles" }

type Agent struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(128);not null" json:"name"`
	Phone     string       `gorm:"type:varchar(32)" json:"phone"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Agent) TableName() string { return "agents" }

// Voucher is a prepaid access code; Code doubles as the RADIUS username.
// FirstLoginAt and ExpiresAt are written together, once, on activation.
type Voucher struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	Code         string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	ProfileID    snowflake.ID  `gorm:"not null;index" json:"profile_id"`
	Profile      *Profile      `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	Status       Status        `gorm:"type:varchar(16);not null;index:idx_vouchers_status_expires,priority:1" json:"status"`
	Origin       Origin        `gorm:"type:varchar(16);not null;default:'manual'" json:"origin"`
	AgentID      *snowflake.ID `gorm:"index" json:"agent_id,omitempty"`
	Agent        *Agent        `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	BatchCode    *string       `gorm:"type:varchar(64)" json:"batch_code,omitempty"`
	OrderID      *string       `gorm:"type:varchar(64)" json:"order_id,omitempty"`
	FirstLoginAt *time.Time    `json:"first_login_at,omitempty"`
	ExpiresAt    *time.Time    `gorm:"index:idx_vouchers_status_expires,priority:2" json:"expires_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (Voucher) TableName() string { return "vouchers" }

// LedgeredHere reports whether activation income is posted by the
// reconciler. Order-linked vouchers are booked by the payment flow.
func (v Voucher) LedgeredHere() bool {
	return v.OrderID == nil || *v.OrderID == ""
}

// SoldByAgent reports whether the voucher carries an agent attribution.
func (v Voucher) SoldByAgent() bool {
	return v.Origin == OriginAgent && v.AgentID != nil && *v.AgentID != 0
}
