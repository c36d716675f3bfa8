// Package domain contains the invoice fields the reminder dispatcher needs.
// Invoices are issued by the billing console.
package domain

import (
	"context"
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "PENDING"
	InvoiceStatusPaid     InvoiceStatus = "PAID"
	InvoiceStatusOverdue  InvoiceStatus = "OVERDUE"
	InvoiceStatusCanceled InvoiceStatus = "CANCELED"
)

// Invoice is a subscriber bill. DueDate is a calendar date at 00:00 UTC.
// SentReminderOffsets lists the reminder offsets already delivered.
type Invoice struct {
	ID                  snowflake.ID             `gorm:"primaryKey" json:"id"`
	Number              string                   `gorm:"type:varchar(64);not null;uniqueIndex" json:"number"`
	SubscriberID        *snowflake.ID            `gorm:"index" json:"subscriber_id,omitempty"`
	CustomerName        string                   `gorm:"type:varchar(128);not null;default:''" json:"customer_name"`
	Phone               string                   `gorm:"type:varchar(32);not null;default:''" json:"phone"`
	Amount              int64                    `gorm:"not null;default:0" json:"amount"`
	Status              InvoiceStatus            `gorm:"type:varchar(16);not null;default:'PENDING';index:idx_invoices_status_due,priority:1" json:"status"`
	DueDate             time.Time                `gorm:"type:date;not null;index:idx_invoices_status_due,priority:2" json:"due_date"`
	SentReminderOffsets datatypes.JSONSlice[int] `json:"sent_reminder_offsets"`
	PaidAt              *time.Time               `json:"paid_at,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// ReminderSent reports whether the reminder for offset was already delivered.
func (i Invoice) ReminderSent(offset int) bool {
	return slices.Contains(i.SentReminderOffsets, offset)
}

type Repository interface {
	WithTrx(tx *gorm.DB) Repository

	// ListPendingDueOn returns PENDING invoices due on the given date.
	ListPendingDueOn(ctx context.Context, date time.Time) ([]Invoice, error)

	// AppendSentOffset records a delivered reminder. It reports false when
	// the offset was already recorded.
	AppendSentOffset(ctx context.Context, id snowflake.ID, offset int, now time.Time) (bool, error)
}
