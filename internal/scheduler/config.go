package scheduler

import (
	"time"

	"github.com/smallbiznis/netbill/internal/config"
)

const (
	JobVoucherReconcile  = "voucher_reconcile"
	JobSubscriberIsolate = "subscriber_isolate"
	JobReminderDispatch  = "reminder_dispatch"
	JobRunRetention      = "run_retention"
)

// Config controls trigger specs and run limits.
type Config struct {
	Location      *time.Location
	VoucherSpec   string
	IsolateSpec   string
	ReminderSpec  string
	RetentionSpec string
	JobTimeout    time.Duration
	RunRetention  time.Duration
	EnabledJobs   []string
}

func DefaultConfig() Config {
	return Config{
		Location:      time.UTC,
		VoucherSpec:   "@every 1m",
		IsolateSpec:   "@every 1h",
		ReminderSpec:  "0 * * * *",
		RetentionSpec: "0 3 * * *",
		JobTimeout:    10 * time.Minute,
		RunRetention:  30 * 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Location == nil {
		c.Location = defaults.Location
	}
	if c.VoucherSpec == "" {
		c.VoucherSpec = defaults.VoucherSpec
	}
	if c.IsolateSpec == "" {
		c.IsolateSpec = defaults.IsolateSpec
	}
	if c.ReminderSpec == "" {
		c.ReminderSpec = defaults.ReminderSpec
	}
	if c.RetentionSpec == "" {
		c.RetentionSpec = defaults.RetentionSpec
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.RunRetention <= 0 {
		c.RunRetention = defaults.RunRetention
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Location:      cfg.Location(),
		VoucherSpec:   cfg.Scheduler.VoucherSpec,
		IsolateSpec:   cfg.Scheduler.IsolateSpec,
		ReminderSpec:  cfg.Scheduler.ReminderSpec,
		RetentionSpec: cfg.Scheduler.RetentionSpec,
		JobTimeout:    cfg.Scheduler.JobTimeout,
		RunRetention:  cfg.Scheduler.RunRetention,
		EnabledJobs:   cfg.Scheduler.EnabledJobs,
	}.withDefaults()
}
