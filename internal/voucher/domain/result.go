package domain

import (
	"context"
	"fmt"
)

// ReconcileResult counts what one reconciliation pass did.
type ReconcileResult struct {
	Examined         int `json:"examined"`
	Synced           int `json:"synced"`
	Expired          int `json:"expired"`
	LedgerFailed     int `json:"ledger_failed"`
	LedgerRetried    int `json:"ledger_retried"`
	DisconnectFailed int `json:"disconnect_failed"`
	Failed           int `json:"failed"`
}

func (r ReconcileResult) Summary() string {
	return fmt.Sprintf("examined=%d synced=%d expired=%d ledger_failed=%d ledger_retried=%d disconnect_failed=%d failed=%d",
		r.Examined, r.Synced, r.Expired, r.LedgerFailed, r.LedgerRetried, r.DisconnectFailed, r.Failed)
}

// Processed is the number of vouchers whose state or books changed.
func (r ReconcileResult) Processed() int {
	return r.Synced + r.Expired + r.LedgerRetried
}

// Errors is the number of per-item failures.
func (r ReconcileResult) Errors() int {
	return r.LedgerFailed + r.DisconnectFailed + r.Failed
}

type Reconciler interface {
	ReconcileVouchers(ctx context.Context) (ReconcileResult, error)
}
