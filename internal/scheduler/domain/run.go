package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// RunRecord is the audit row written for every executed (not skipped) tick.
// It is inserted as running and mutated exactly once to close it.
type RunRecord struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Job        string       `gorm:"type:varchar(64);not null;index:idx_job_runs_job_started,priority:1" json:"job"`
	Status     RunStatus    `gorm:"type:varchar(16);not null;index" json:"status"`
	StartedAt  time.Time    `gorm:"not null;index:idx_job_runs_job_started,priority:2" json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	DurationMs int64        `gorm:"not null;default:0" json:"duration_ms"`
	Result     string       `gorm:"type:text" json:"result"`
}

func (RunRecord) TableName() string { return "job_runs" }

type ListRunsFilter struct {
	Job   string
	Limit int
}

type RunRepository interface {
	Insert(ctx context.Context, run *RunRecord) error
	Close(ctx context.Context, run *RunRecord) error
	List(ctx context.Context, filter ListRunsFilter) ([]RunRecord, error)
	CloseInterrupted(ctx context.Context, at time.Time, result string) (int64, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	ErrJobRunning    = errors.New("job_already_running")
	ErrUnknownJob    = errors.New("unknown_job")
	ErrDuplicateJob  = errors.New("job_already_registered")
	ErrRunNotOpen    = errors.New("run_not_open")
	ErrInvalidConfig = errors.New("invalid_scheduler_config")
)
