package scheduler

import (
	"context"
	"fmt"

	obsmetrics "github.com/smallbiznis/netbill/internal/observability/metrics"
	reminderdomain "github.com/smallbiznis/netbill/internal/reminder/domain"
	subscriberdomain "github.com/smallbiznis/netbill/internal/subscriber/domain"
	voucherdomain "github.com/smallbiznis/netbill/internal/voucher/domain"
	"go.uber.org/fx"
)

type JobParams struct {
	fx.In

	Scheduler   *Scheduler
	Config      Config
	Vouchers    voucherdomain.Reconciler
	Subscribers subscriberdomain.Isolator
	Reminders   reminderdomain.Dispatcher
}

// RegisterJobs binds the reconciliation jobs to their triggers.
func RegisterJobs(p JobParams) error {
	jobs := []struct {
		name string
		spec string
		fn   JobFunc
	}{
		{JobVoucherReconcile, p.Config.VoucherSpec, voucherJob(p.Vouchers)},
		{JobSubscriberIsolate, p.Config.IsolateSpec, isolateJob(p.Subscribers)},
		{JobReminderDispatch, p.Config.ReminderSpec, reminderJob(p.Reminders)},
		{JobRunRetention, p.Config.RetentionSpec, p.Scheduler.retentionJob()},
	}
	for _, j := range jobs {
		if err := p.Scheduler.Register(j.name, j.spec, j.fn); err != nil {
			return err
		}
	}
	return nil
}

func voucherJob(r voucherdomain.Reconciler) JobFunc {
	return func(ctx context.Context) (string, error) {
		res, err := r.ReconcileVouchers(ctx)
		recordItems(ctx, JobVoucherReconcile, res.Processed(), res.Errors(), 0)
		return res.Summary(), err
	}
}

func isolateJob(i subscriberdomain.Isolator) JobFunc {
	return func(ctx context.Context) (string, error) {
		res, err := i.IsolateExpiredSubscribers(ctx)
		recordItems(ctx, JobSubscriberIsolate, res.Isolated, res.Failed+res.DisconnectFailed, 0)
		return res.Summary(), err
	}
}

func reminderJob(d reminderdomain.Dispatcher) JobFunc {
	return func(ctx context.Context) (string, error) {
		res, err := d.DispatchInvoiceReminders(ctx)
		recordItems(ctx, JobReminderDispatch, res.Sent, res.Failed, res.Skipped)
		return res.Summary(), err
	}
}

// retentionJob deletes finished run records older than RunRetention.
func (s *Scheduler) retentionJob() JobFunc {
	return func(ctx context.Context) (string, error) {
		cutoff := s.clock.Now().Add(-s.cfg.RunRetention)
		deleted, err := s.runs.DeleteFinishedBefore(ctx, cutoff)
		if err != nil {
			return "", fmt.Errorf("delete finished runs: %w", err)
		}
		recordItems(ctx, JobRunRetention, int(deleted), 0, 0)
		return fmt.Sprintf("deleted=%d cutoff=%s", deleted, cutoff.Format("2006-01-02T15:04:05Z")), nil
	}
}

func recordItems(ctx context.Context, job string, succeeded, failed, skipped int) {
	if run := jobRunFromContext(ctx); run != nil {
		run.AddProcessed(succeeded)
		run.AddErrors(failed)
	}
	m := obsmetrics.Scheduler()
	m.AddItems(job, obsmetrics.ItemOutcomeSucceeded, succeeded)
	m.AddItems(job, obsmetrics.ItemOutcomeFailed, failed)
	m.AddItems(job, obsmetrics.ItemOutcomeSkipped, skipped)
}
