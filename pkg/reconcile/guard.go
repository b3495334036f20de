package reconcile

import (
	"context"
	"fmt"

	"github.com/Carlavier/ai-cfo-mvp/pkg/qbo"
)

// guardedDocs are the document types a source transaction may have been
// posted as.
var guardedDocs = []qbo.DocType{qbo.DocInvoice, qbo.DocBill, qbo.DocJournalEntry}

// Guard detects source transactions that were already posted. The ledger
// is the system of record, so the remote marker is the authoritative
// check; the local transaction row is only a cache, carried by the
// store's duplicate-insert signal. A local row without a remote marker
// therefore still allows the posting half to be retried.
type Guard struct {
	ledger LedgerAPI
}

// NewGuard creates an idempotency guard.
func NewGuard(ledger LedgerAPI) *Guard {
	return &Guard{ledger: ledger}
}

// AlreadyPosted reports whether any ledger document bears the marker for
// txnID.
func (g *Guard) AlreadyPosted(ctx context.Context, txnID string) (bool, error) {
	note := Marker(txnID)
	for _, doc := range guardedDocs {
		id, err := g.ledger.FindDocumentByNote(ctx, doc, note)
		if err != nil {
			return false, fmt.Errorf("marker lookup in %s: %w", doc, err)
		}
		if id != "" {
			return true, nil
		}
	}
	return false, nil
}
