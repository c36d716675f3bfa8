package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/netbill/internal/clock"
	obsmetrics "github.com/smallbiznis/netbill/internal/observability/metrics"
	"github.com/smallbiznis/netbill/internal/observability/tracing"
	"github.com/smallbiznis/netbill/internal/scheduler/domain"
	"github.com/smallbiznis/netbill/internal/scheduler/guard"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// JobFunc is a job body. The summary ends up in the run record.
type JobFunc func(ctx context.Context) (summary string, err error)

const interruptedResult = "interrupted: process stopped before the run finished"

type Params struct {
	fx.In

	Runs   domain.RunRepository
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Guard  *guard.SingleFlight `optional:"true"`
	Config Config              `optional:"true"`
}

type job struct {
	name    string
	spec    string
	fn      JobFunc
	entryID cron.EntryID
}

type Scheduler struct {
	runs  domain.RunRepository
	log   *zap.Logger
	cfg   Config
	genID *snowflake.Node
	clock clock.Clock
	guard *guard.SingleFlight
	cron  *cron.Cron

	mu   sync.RWMutex
	jobs map[string]*job

	baseCtx context.Context
	cancel  context.CancelFunc
}

func New(p Params) (*Scheduler, error) {
	if p.Runs == nil || p.Log == nil || p.GenID == nil || p.Clock == nil {
		return nil, domain.ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	g := p.Guard
	if g == nil {
		g = guard.NewSingleFlight()
	}
	log := p.Log.Named("scheduler").With(zap.String("component", "scheduler"))

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runs:  p.Runs,
		log:   log,
		cfg:   cfg,
		genID: p.GenID,
		clock: p.Clock,
		guard: g,
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cronLogger{log: log.Sugar()}),
		),
		jobs:    make(map[string]*job),
		baseCtx: baseCtx,
		cancel:  cancel,
	}, nil
}

// Register binds fn to a trigger spec ("@every 1m", "@hourly", "0 7 * * *").
// Specs are evaluated in the business timezone. A job excluded by
// EnabledJobs is still registered for Trigger but never fires on its own.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return domain.ErrInvalidConfig
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateJob, name)
	}

	j := &job{name: name, spec: spec, fn: fn}
	if s.isJobEnabled(name) {
		entryID, err := s.cron.AddFunc(spec, func() { s.fire(name) })
		if err != nil {
			return fmt.Errorf("register %s with spec %q: %w", name, spec, err)
		}
		j.entryID = entryID
	}
	s.jobs[name] = j

	s.log.Info("scheduler.job.registered",
		zap.String("job", name),
		zap.String("spec", spec),
		zap.Bool("scheduled", j.entryID != 0),
	)
	return nil
}

// Running reports whether a run of name is in flight in this process.
func (s *Scheduler) Running(name string) bool {
	return s.guard.Held(name)
}

// Jobs returns registered job names in lexical order.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start closes run records orphaned by a previous process and starts the triggers.
func (s *Scheduler) Start(ctx context.Context) error {
	closed, err := s.runs.CloseInterrupted(ctx, s.clock.Now(), interruptedResult)
	if err != nil {
		return fmt.Errorf("close interrupted runs: %w", err)
	}
	if closed > 0 {
		s.log.Warn("scheduler.runs.interrupted", zap.Int64("count", closed))
	}
	s.cron.Start()
	s.log.Info("scheduler.started", zap.Strings("jobs", s.Jobs()))
	return nil
}

// Stop halts the triggers and waits for in-flight runs until ctx expires,
// after which running jobs are cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler.stop.timeout")
	}
	s.cancel()
	return nil
}

// Trigger runs a job now through the same guard and run ledger as a
// scheduled tick. It returns ErrJobRunning when the job is in flight.
// A failing job is reported through the returned record, not as an error.
func (s *Scheduler) Trigger(ctx context.Context, name string) (domain.RunRecord, error) {
	return s.execute(ctx, name)
}

// Runs lists recent run records.
func (s *Scheduler) Runs(ctx context.Context, filter domain.ListRunsFilter) ([]domain.RunRecord, error) {
	return s.runs.List(ctx, filter)
}

func (s *Scheduler) fire(name string) {
	_, err := s.execute(s.baseCtx, name)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrJobRunning):
		s.log.Debug("scheduler.job.skipped", zap.String("job", name))
	default:
		s.log.Error("scheduler.job.fire_failed", zap.String("job", name), zap.Error(err))
	}
}

func (s *Scheduler) execute(ctx context.Context, name string) (domain.RunRecord, error) {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrUnknownJob, name)
	}

	release, acquired := s.guard.TryAcquire(name)
	if !acquired {
		obsmetrics.Scheduler().IncJobSkipped(name)
		return domain.RunRecord{}, domain.ErrJobRunning
	}
	defer release()

	return s.runJob(ctx, j)
}

func (s *Scheduler) runJob(parent context.Context, j *job) (domain.RunRecord, error) {
	schedMetrics := obsmetrics.Scheduler()
	start := s.clock.Now()
	run := domain.RunRecord{
		ID:        s.genID.Generate(),
		Job:       j.name,
		Status:    domain.RunStatusRunning,
		StartedAt: start,
	}
	if err := s.runs.Insert(parent, &run); err != nil {
		schedMetrics.IncJobError(j.name, err)
		return domain.RunRecord{}, fmt.Errorf("open run record for %s: %w", j.name, err)
	}

	ctx, jr := s.ensureJobRun(parent, j.name, run.ID, start)
	ctx, span := tracing.StartJobSpan(ctx, j.name, run.ID.String())
	s.logJobStart(ctx, jr)

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	summary, err := invoke(jobCtx, j.fn)
	cancel()

	finished := s.clock.Now()
	duration := finished.Sub(start)
	run.FinishedAt = &finished
	run.DurationMs = duration.Milliseconds()
	run.Status = domain.RunStatusSuccess
	run.Result = summary
	if err != nil {
		run.Status = domain.RunStatusError
		run.Result = joinResult(summary, err)
		jr.AddErrors(1)
		if errors.Is(err, context.DeadlineExceeded) {
			schedMetrics.IncJobTimeout(j.name)
		}
		schedMetrics.IncJobError(j.name, err)
		s.logSchedulerError(ctx, "scheduler.job.failed", err)
	} else {
		schedMetrics.MarkJobSuccess(j.name, finished)
	}
	schedMetrics.IncJobRun(j.name, string(run.Status))
	schedMetrics.ObserveJobDuration(j.name, duration)
	tracing.EndJobSpan(span, err)

	// The parent may already be cancelled on shutdown; the record must still close.
	closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(parent), 10*time.Second)
	defer closeCancel()
	if closeErr := s.runs.Close(closeCtx, &run); closeErr != nil {
		s.logSchedulerError(ctx, "scheduler.run.close_failed", closeErr)
	}

	s.logJobFinish(ctx, jr, string(run.Status), duration, run.Result)
	return run, nil
}

func invoke(ctx context.Context, fn JobFunc) (summary string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", obsmetrics.ErrJobPanicked, r)
		}
	}()
	return fn(ctx)
}

func joinResult(summary string, err error) string {
	if summary == "" {
		return err.Error()
	}
	return summary + "; error: " + err.Error()
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), name) {
			return true
		}
	}
	return false
}
