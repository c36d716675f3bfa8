package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/netbill/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsRunFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRun(context.Background(), "voucher_reconcile", "1234")
	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["job"] != "voucher_reconcile" || fields["run_id"] != "1234" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, ok := fields["trace_id"]; ok {
		t.Fatalf("trace_id must be omitted without a span")
	}
}

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM vouchers":                    "SELECT",
		"WITH x AS (SELECT 1) DELETE FROM radcheck": "DELETE",
		"  update vouchers set status = 'EXPIRED'":  "UPDATE",
		"PRAGMA foreign_keys = ON":                  "UNKNOWN",
	}
	for sql, want := range cases {
		if got := operationFromSQL(sql); got != want {
			t.Fatalf("operationFromSQL(%q) = %s, want %s", sql, got, want)
		}
	}
}
