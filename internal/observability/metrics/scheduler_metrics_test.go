package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "panic", err: fmt.Errorf("%w: nil map", ErrJobPanicked), want: SchedulerJobReasonPanic},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "network", err: &net.OpError{Op: "read", Net: "udp", Err: errors.New("refused")}, want: SchedulerJobReasonNetwork},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsSchedulerErrorRetryable(t *testing.T) {
	if IsSchedulerErrorRetryable(fmt.Errorf("%w: boom", ErrJobPanicked)) {
		t.Fatalf("panics are not retryable")
	}
	if !IsSchedulerErrorRetryable(context.DeadlineExceeded) {
		t.Fatalf("deadline should be retryable")
	}
	if IsSchedulerErrorRetryable(gorm.ErrRecordNotFound) {
		t.Fatalf("record not found should not be retryable")
	}
}

func TestSchedulerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSchedulerMetrics(registry, Config{ServiceName: "netbill", Environment: "test"})

	m.AddItems("voucher_reconcile", ItemOutcomeSucceeded, 3)
	m.AddItems("voucher_reconcile", ItemOutcomeFailed, 0)
	m.IncJobRun("voucher_reconcile", "success")
	m.IncJobSkipped("voucher_reconcile")
	m.MarkJobSuccess("voucher_reconcile", time.Unix(1700000000, 0))

	if got := testutil.ToFloat64(m.itemsProcessed.WithLabelValues("voucher_reconcile", ItemOutcomeSucceeded)); got != 3 {
		t.Fatalf("expected 3 processed, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues("voucher_reconcile", "success")); got != 1 {
		t.Fatalf("expected 1 run, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobSkipped.WithLabelValues("voucher_reconcile")); got != 1 {
		t.Fatalf("expected 1 skip, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess.WithLabelValues("voucher_reconcile")); got != 1700000000 {
		t.Fatalf("unexpected last success %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *SchedulerMetrics
	m.IncJobRun("x", "success")
	m.IncJobError("x", errors.New("boom"))
	m.AddItems("x", ItemOutcomeFailed, 1)
}
