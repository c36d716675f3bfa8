package domain

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SettingsID is the primary key of the single reminder_settings row.
const SettingsID = 1

// Settings is the admin-editable reminder configuration. Hour is in the
// business timezone. Offsets are days relative to the due date, negative
// before it.
type Settings struct {
	ID        uint                     `gorm:"primaryKey" json:"id"`
	Enabled   bool                     `gorm:"not null" json:"enabled"`
	Hour      int                      `gorm:"not null" json:"hour"`
	Offsets   datatypes.JSONSlice[int] `json:"offsets"`
	Template  string                   `gorm:"type:text;not null;default:''" json:"template"`
	UpdatedAt time.Time                `json:"updated_at"`
}

func (Settings) TableName() string { return "reminder_settings" }

type SettingsRepository interface {
	// Get returns the settings row and false when none was saved yet.
	Get(ctx context.Context) (Settings, bool, error)
	Save(ctx context.Context, s Settings) error
}

type DispatchResult struct {
	Ran     bool `json:"ran"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	Skipped int  `json:"skipped"`
}

func (r DispatchResult) Summary() string {
	if !r.Ran {
		return "not scheduled for this hour"
	}
	return fmt.Sprintf("sent=%d failed=%d skipped=%d", r.Sent, r.Failed, r.Skipped)
}

type Dispatcher interface {
	DispatchInvoiceReminders(ctx context.Context) (DispatchResult, error)
}
