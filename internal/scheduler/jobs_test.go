package scheduler

import (
	"context"
	"errors"
	"testing"

	reminderdomain "github.com/smallbiznis/netbill/internal/reminder/domain"
	"github.com/smallbiznis/netbill/internal/scheduler/domain"
	subscriberdomain "github.com/smallbiznis/netbill/internal/subscriber/domain"
	voucherdomain "github.com/smallbiznis/netbill/internal/voucher/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReconciler struct {
	result voucherdomain.ReconcileResult
	err    error
}

func (s stubReconciler) ReconcileVouchers(context.Context) (voucherdomain.ReconcileResult, error) {
	return s.result, s.err
}

type stubIsolator struct {
	result subscriberdomain.IsolationResult
}

func (s stubIsolator) IsolateExpiredSubscribers(context.Context) (subscriberdomain.IsolationResult, error) {
	return s.result, nil
}

type stubDispatcher struct{ result reminderdomain.DispatchResult }

func (s stubDispatcher) DispatchInvoiceReminders(context.Context) (reminderdomain.DispatchResult, error) {
	return s.result, nil
}

func TestRegisterJobsWiresEveryJob(t *testing.T) {
	h := newHarness(t, Config{})
	cfg := h.sched.cfg
	require.NoError(t, RegisterJobs(JobParams{
		Scheduler: h.sched,
		Config:    cfg,
		Vouchers: stubReconciler{result: voucherdomain.ReconcileResult{
			Examined: 4, Synced: 2, Expired: 1, LedgerFailed: 1,
		}},
		Subscribers: stubIsolator{result: subscriberdomain.IsolationResult{Selected: 1, Isolated: 1}},
		Reminders:   stubDispatcher{result: reminderdomain.DispatchResult{Ran: true, Sent: 2, Skipped: 3}},
	}))
	assert.Equal(t, []string{JobReminderDispatch, JobRunRetention, JobSubscriberIsolate, JobVoucherReconcile}, h.sched.Jobs())

	ctx := context.Background()
	run, err := h.sched.Trigger(ctx, JobVoucherReconcile)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Equal(t, "examined=4 synced=2 expired=1 ledger_failed=1 ledger_retried=0 disconnect_failed=0 failed=0", run.Result)
	assert.Equal(t, 3.0, getCounterValue(t, h.registry, "netbill_scheduler_items_processed_total",
		labelsFor(JobVoucherReconcile, map[string]string{"outcome": "succeeded"})))

	run, err = h.sched.Trigger(ctx, JobReminderDispatch)
	require.NoError(t, err)
	assert.Equal(t, "sent=2 failed=0 skipped=3", run.Result)

	run, err = h.sched.Trigger(ctx, JobSubscriberIsolate)
	require.NoError(t, err)
	assert.Equal(t, "selected=1 isolated=1 failed=0 disconnect_failed=0", run.Result)
}

func TestVoucherJobSurfacesListingFailure(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.sched.Register(JobVoucherReconcile, "@every 1m",
		voucherJob(stubReconciler{err: errors.New("promote waiting vouchers: db down")})))

	run, err := h.sched.Trigger(context.Background(), JobVoucherReconcile)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusError, run.Status)
	assert.Contains(t, run.Result, "db down")
}
