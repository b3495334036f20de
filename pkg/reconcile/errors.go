// Package reconcile implements the transaction-to-ledger reconciliation
// engine: idempotency guarding, category mapping, account provisioning,
// double-entry construction, batch posting and sync orchestration.
package reconcile

import "fmt"

// markerPrefix tags every posted document with its source transaction so a
// later run can recognize it.
const markerPrefix = "SRC:"

// Marker returns the natural-key marker embedded in a posting document's
// note field.
func Marker(txnID string) string {
	return markerPrefix + txnID
}

// SkipError marks a single transaction that could not be reconciled. The
// transaction is excluded from the batch and the run continues.
type SkipError struct {
	TxnID  string
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped transaction %s: %s", e.TxnID, e.Reason)
}
