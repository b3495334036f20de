package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/Carlavier/ai-cfo-mvp/pkg/qbo"
)

func TestAlreadyPostedFindsMarkerAcrossDocTypes(t *testing.T) {
	tests := []struct {
		name string
		doc  qbo.DocType
	}{
		{"invoice marker", qbo.DocInvoice},
		{"bill marker", qbo.DocBill},
		{"journal marker", qbo.DocJournalEntry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newFakeLedger()
			ledger.notes[string(tt.doc)+"/SRC:txn-1"] = "doc-9"
			guard := NewGuard(ledger)

			posted, err := guard.AlreadyPosted(context.Background(), "txn-1")
			if err != nil {
				t.Fatalf("AlreadyPosted failed: %v", err)
			}
			if !posted {
				t.Errorf("expected marker in %s to be found", tt.doc)
			}
		})
	}
}

func TestAlreadyPostedMiss(t *testing.T) {
	guard := NewGuard(newFakeLedger())

	posted, err := guard.AlreadyPosted(context.Background(), "txn-unknown")
	if err != nil {
		t.Fatalf("AlreadyPosted failed: %v", err)
	}
	if posted {
		t.Error("expected no marker for unseen transaction")
	}
}

func TestAlreadyPostedPropagatesLookupError(t *testing.T) {
	ledger := newFakeLedger()
	ledger.findErr = errors.New("boom")
	guard := NewGuard(ledger)

	if _, err := guard.AlreadyPosted(context.Background(), "txn-1"); err == nil {
		t.Fatal("expected error when the marker lookup fails")
	}
}
