package reconcile

import (
	"errors"
	"testing"

	"github.com/Carlavier/ai-cfo-mvp/pkg/plaid"
	"github.com/Carlavier/ai-cfo-mvp/pkg/qbo"
)

func refs() (bank, category, party, item *qbo.EntityRef) {
	bank = &qbo.EntityRef{ID: "1", Name: "Operating Checking"}
	category = &qbo.EntityRef{ID: "2", Name: "Travel"}
	party = &qbo.EntityRef{ID: "3", Name: "Acme Corp"}
	item = &qbo.EntityRef{ID: "4", Name: "Services"}
	return
}

func TestBuildDocumentInvoiceForInflow(t *testing.T) {
	bank, category, party, item := refs()
	txn := plaid.Transaction{TxnID: "txn-1", Amount: 1500, Date: "2026-08-01", MerchantName: "Acme Corp"}

	doc, err := BuildDocument(txn, Resolution{Bank: bank, Category: category, Party: party, Item: item})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}
	if doc.Type != qbo.DocInvoice {
		t.Fatalf("type = %s, want Invoice", doc.Type)
	}
	if doc.Invoice.PrivateNote != "SRC:txn-1" {
		t.Errorf("marker = %q, want SRC:txn-1", doc.Invoice.PrivateNote)
	}
	if doc.Invoice.CustomerRef.Value != "3" {
		t.Errorf("customer ref = %q, want 3", doc.Invoice.CustomerRef.Value)
	}
	if got := doc.Invoice.Line[0].Amount; got != 1500 {
		t.Errorf("line amount = %v, want 1500", got)
	}
}

func TestBuildDocumentBillForOutflow(t *testing.T) {
	bank, category, party, _ := refs()
	txn := plaid.Transaction{TxnID: "txn-2", Amount: -42.5, Date: "2026-08-02", MerchantName: "AWS"}

	doc, err := BuildDocument(txn, Resolution{Bank: bank, Category: category, Party: party})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}
	if doc.Type != qbo.DocBill {
		t.Fatalf("type = %s, want Bill", doc.Type)
	}
	if got := doc.Bill.Line[0].Amount; got != 42.5 {
		t.Errorf("line amount = %v, want 42.5 (absolute)", got)
	}
	if doc.Bill.Line[0].Expense.AccountRef.Value != "2" {
		t.Errorf("expense account = %q, want category account", doc.Bill.Line[0].Expense.AccountRef.Value)
	}
}

func TestBuildDocumentJournalWhenNoCounterparty(t *testing.T) {
	bank, category, _, _ := refs()
	txn := plaid.Transaction{TxnID: "txn-3", Amount: -10, Date: "2026-08-03"}

	doc, err := BuildDocument(txn, Resolution{Bank: bank, Category: category})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}
	if doc.Type != qbo.DocJournalEntry {
		t.Fatalf("type = %s, want JournalEntry", doc.Type)
	}
}

func TestBuildDocumentPlaceholderPartyFallsBackToJournal(t *testing.T) {
	bank, category, _, _ := refs()
	// Placeholder ref: name resolved but no ledger ID.
	placeholder := &qbo.EntityRef{Name: "Unknown Vendor"}
	txn := plaid.Transaction{TxnID: "txn-4", Amount: -99, Date: "2026-08-04"}

	doc, err := BuildDocument(txn, Resolution{Bank: bank, Category: category, Party: placeholder})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}
	if doc.Type != qbo.DocJournalEntry {
		t.Fatalf("type = %s, want JournalEntry for unresolved party", doc.Type)
	}
}

func TestBuildDocumentSkipsOnUnresolvedAccounts(t *testing.T) {
	_, category, _, _ := refs()
	txn := plaid.Transaction{TxnID: "txn-5", Amount: -10}

	_, err := BuildDocument(txn, Resolution{Category: category})
	if err == nil {
		t.Fatal("expected SkipError for missing bank account")
	}
	var skip *SkipError
	if !errors.As(err, &skip) || skip.TxnID != "txn-5" {
		t.Errorf("error = %v, want SkipError for txn-5", err)
	}
}

func TestBuildJournalEntryBalanced(t *testing.T) {
	bank, category, _, _ := refs()

	tests := []struct {
		name       string
		amount     float64
		wantDebit  string // account ID on the debit line
		wantCredit string
		wantAmount float64
	}{
		{"inflow debits bank", 1234.567, "1", "2", 1234.57},
		{"outflow debits category", -88.824, "2", "1", 88.82},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := plaid.Transaction{TxnID: "t", Amount: tt.amount, Date: "2026-08-01", MerchantName: "M"}
			je := BuildJournalEntry(txn, bank, category)

			if len(je.Line) != 2 {
				t.Fatalf("lines = %d, want 2", len(je.Line))
			}
			debit, credit := je.Line[0], je.Line[1]
			if debit.Detail.PostingType != "Debit" || credit.Detail.PostingType != "Credit" {
				t.Fatalf("posting types = %s/%s", debit.Detail.PostingType, credit.Detail.PostingType)
			}
			if debit.Amount != credit.Amount {
				t.Errorf("unbalanced entry: debit %v != credit %v", debit.Amount, credit.Amount)
			}
			if debit.Amount != tt.wantAmount {
				t.Errorf("amount = %v, want %v", debit.Amount, tt.wantAmount)
			}
			if debit.Detail.AccountRef.Value != tt.wantDebit {
				t.Errorf("debit account = %s, want %s", debit.Detail.AccountRef.Value, tt.wantDebit)
			}
			if credit.Detail.AccountRef.Value != tt.wantCredit {
				t.Errorf("credit account = %s, want %s", credit.Detail.AccountRef.Value, tt.wantCredit)
			}
		})
	}
}

func TestBuildJournalEntryDescriptionFallsBackToMarker(t *testing.T) {
	bank, category, _, _ := refs()
	txn := plaid.Transaction{TxnID: "txn-9", Amount: -5}

	je := BuildJournalEntry(txn, bank, category)
	if je.Line[0].Description != "SRC:txn-9" {
		t.Errorf("description = %q, want marker fallback", je.Line[0].Description)
	}
	if je.PrivateNote != "SRC:txn-9" {
		t.Errorf("note = %q, want SRC:txn-9", je.PrivateNote)
	}
}
