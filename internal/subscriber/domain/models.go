package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusIsolated Status = "isolated"
	StatusBlocked  Status = "blocked"
)

var ErrInvalidDate = errors.New("invalid_date")

// Subscriber is a postpaid PPPoE customer. Username is its RADIUS identity.
// ExpiryDate is a calendar date kept at 00:00 UTC.
type Subscriber struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(128);not null" json:"name"`
	Username    string       `gorm:"type:varchar(64);not null;uniqueIndex" json:"username"`
	Password    string       `gorm:"type:varchar(128);not null;default:''" json:"-"`
	Phone       string       `gorm:"type:varchar(32)" json:"phone"`
	ProfileName string       `gorm:"type:varchar(64)" json:"profile_name"`
	Status      Status       `gorm:"type:varchar(16);not null;index:idx_subscribers_status_expiry,priority:1" json:"status"`
	ExpiryDate  time.Time    `gorm:"type:date;not null;index:idx_subscribers_status_expiry,priority:2" json:"expiry_date"`
	IsolatedAt  *time.Time   `json:"isolated_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Subscriber) TableName() string { return "subscribers" }

type Repository interface {
	WithTrx(tx *gorm.DB) Repository

	// ListExpiredActive returns active subscribers whose expiry date is
	// strictly before today. today is a date from clock.DateOf.
	ListExpiredActive(ctx context.Context, today time.Time) ([]Subscriber, error)

	// MarkIsolated flips an active subscriber to isolated. It reports false
	// when the subscriber was no longer active.
	MarkIsolated(ctx context.Context, id snowflake.ID, now time.Time) (bool, error)
}

// IsolationResult counts one isolator pass. Isolated only counts
// subscribers whose sessions were also dropped; DisconnectFailed ones are
// already isolated in the AAA tables but may still be online.
type IsolationResult struct {
	Selected         int `json:"selected"`
	Isolated         int `json:"isolated"`
	Failed           int `json:"failed"`
	DisconnectFailed int `json:"disconnect_failed"`
}

func (r IsolationResult) Summary() string {
	return fmt.Sprintf("selected=%d isolated=%d failed=%d disconnect_failed=%d",
		r.Selected, r.Isolated, r.Failed, r.DisconnectFailed)
}

type Isolator interface {
	IsolateExpiredSubscribers(ctx context.Context) (IsolationResult, error)
}
