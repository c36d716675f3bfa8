package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrEmptyUsername = errors.New("aaa_empty_username")
	ErrInvalidGroup  = errors.New("aaa_invalid_group")
	ErrNoSecret      = errors.New("aaa_nas_secret_missing")
)

// Store is the slice of the RADIUS schema the jobs touch. Accounting rows
// are read-only; only credential, reply and group rows are mutated.
type Store interface {
	WithTrx(tx *gorm.DB) Store

	// EarliestSessionStart returns the first acctstarttime recorded for
	// username, in UTC. ok is false when no record exists.
	EarliestSessionStart(ctx context.Context, username string) (start time.Time, ok bool, err error)
	OpenSessions(ctx context.Context, username string) ([]Session, error)

	// PurgeCredentials removes radcheck, radreply and radusergroup rows.
	PurgeCredentials(ctx context.Context, username string) (int64, error)

	// Isolate upserts the password, swaps group membership to req.Group and
	// drops the static IP reply. Running it twice yields the same rows.
	Isolate(ctx context.Context, req IsolateRequest) error

	NASSecret(ctx context.Context, nasAddress string) (string, bool, error)
}

type DisconnectResult struct {
	Username     string
	Sessions     int
	Disconnected int
	Detail       string
}

// Disconnector forces live sessions of a user off the network. Users with
// no open session succeed with Sessions == 0.
type Disconnector interface {
	Disconnect(ctx context.Context, username string) (DisconnectResult, error)
}
