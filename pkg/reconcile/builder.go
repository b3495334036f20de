package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/Carlavier/ai-cfo-mvp/pkg/plaid"
	"github.com/Carlavier/ai-cfo-mvp/pkg/qbo"
)

// Resolution carries the ledger entities resolved for one transaction.
// Bank and Category are always required; Party is the customer (inflow)
// or vendor (outflow) and Item the service item for invoice lines.
type Resolution struct {
	Bank     *qbo.EntityRef
	Category *qbo.EntityRef
	Party    *qbo.EntityRef
	Item     *qbo.EntityRef
}

// PostingDocument is the tagged variant submitted to the ledger: a
// customer invoice for an inflow, a vendor bill for an outflow, or a
// balanced journal entry when no counterparty could be provisioned.
type PostingDocument struct {
	Type     qbo.DocType
	SourceID string
	Invoice  *qbo.Invoice
	Bill     *qbo.Bill
	Journal  *qbo.JournalEntry
}

// Marker returns the document's natural-key marker.
func (d *PostingDocument) Marker() string {
	return Marker(d.SourceID)
}

// BatchItem converts the document into a batch create operation. The
// marker doubles as the bId so per-item faults can be traced back to their
// source transaction.
func (d *PostingDocument) BatchItem() qbo.BatchItem {
	item := qbo.BatchItem{BID: d.Marker(), Operation: "create"}
	switch d.Type {
	case qbo.DocInvoice:
		item.Invoice = d.Invoice
	case qbo.DocBill:
		item.Bill = d.Bill
	case qbo.DocJournalEntry:
		item.JournalEntry = d.Journal
	}
	return item
}

// postingAmount is the absolute transaction amount rounded to 2 decimal
// places, used identically on both sides of every document.
func postingAmount(amount float64) float64 {
	return decimal.NewFromFloat(amount).Abs().Round(2).InexactFloat64()
}

// BuildDocument constructs the posting document for a reconciled
// transaction. It returns *SkipError when account resolution failed
// upstream; the caller logs and excludes the transaction rather than
// aborting the run.
func BuildDocument(txn plaid.Transaction, res Resolution) (*PostingDocument, error) {
	if !resolved(res.Bank) || !resolved(res.Category) {
		return nil, &SkipError{TxnID: txn.TxnID, Reason: "account resolution failed"}
	}

	doc := &PostingDocument{SourceID: txn.TxnID}
	amount := postingAmount(txn.Amount)

	switch {
	case txn.IsIncome() && resolved(res.Party) && resolved(res.Item):
		doc.Type = qbo.DocInvoice
		doc.Invoice = &qbo.Invoice{
			Line: []qbo.InvoiceLine{{
				DetailType: "SalesItemLineDetail",
				Amount:     amount,
				SalesItem: qbo.SalesItemDetail{
					ItemRef: qbo.Ref{Value: res.Item.ID, Name: res.Item.Name},
				},
			}},
			CustomerRef: qbo.Ref{Value: res.Party.ID, Name: res.Party.Name},
			TxnDate:     txn.Date,
			PrivateNote: doc.Marker(),
		}

	case !txn.IsIncome() && resolved(res.Party):
		doc.Type = qbo.DocBill
		doc.Bill = &qbo.Bill{
			Line: []qbo.BillLine{{
				DetailType: "AccountBasedExpenseLineDetail",
				Amount:     amount,
				Expense: qbo.ExpenseDetail{
					AccountRef: qbo.Ref{Value: res.Category.ID},
				},
			}},
			VendorRef:   qbo.Ref{Value: res.Party.ID, Name: res.Party.Name},
			TxnDate:     txn.Date,
			PrivateNote: doc.Marker(),
		}

	default:
		// No usable counterparty: post the bank/category double entry
		// directly.
		doc.Type = qbo.DocJournalEntry
		doc.Journal = BuildJournalEntry(txn, res.Bank, res.Category)
	}

	return doc, nil
}

// BuildJournalEntry constructs a balanced journal entry for a transaction.
// Sign rule: an inflow debits the bank account and credits the category
// account; an outflow debits the category account and credits the bank
// account. Both lines carry round(abs(amount), 2).
func BuildJournalEntry(txn plaid.Transaction, bank, category *qbo.EntityRef) *qbo.JournalEntry {
	debit, credit := category, bank
	if txn.IsIncome() {
		debit, credit = bank, category
	}

	desc := txn.Merchant()
	if desc == "" {
		desc = Marker(txn.TxnID)
	}
	amount := postingAmount(txn.Amount)

	return &qbo.JournalEntry{
		TxnDate:     txn.Date,
		PrivateNote: Marker(txn.TxnID),
		Line: []qbo.JournalLine{
			{
				Description: desc,
				Amount:      amount,
				DetailType:  "JournalEntryLineDetail",
				Detail: qbo.JournalDetail{
					PostingType: "Debit",
					AccountRef:  qbo.Ref{Value: debit.ID, Name: debit.Name},
				},
			},
			{
				Description: desc,
				Amount:      amount,
				DetailType:  "JournalEntryLineDetail",
				Detail: qbo.JournalDetail{
					PostingType: "Credit",
					AccountRef:  qbo.Ref{Value: credit.ID, Name: credit.Name},
				},
			},
		},
	}
}

func resolved(ref *qbo.EntityRef) bool {
	return ref != nil && ref.ID != ""
}
