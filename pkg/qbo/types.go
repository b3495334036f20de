// Package qbo provides a QuickBooks Online style ledger API client: entity
// lookup/creation, the query sub-language, and the 30-item batch endpoint.
package qbo

import "encoding/json"

// EntityKind identifies a ledger entity type together with the field the
// ledger enforces uniqueness on. Customer and Vendor are unique by
// DisplayName while Item and Account are unique by Name; collapsing the
// two breaks both lookup queries and create payloads.
type EntityKind struct {
	Name     string // entity name in queries and responses, e.g. "Customer"
	Endpoint string // REST path segment, e.g. "customer"
	KeyField string // uniqueness field: "DisplayName" or "Name"
}

var (
	KindCustomer = EntityKind{Name: "Customer", Endpoint: "customer", KeyField: "DisplayName"}
	KindVendor   = EntityKind{Name: "Vendor", Endpoint: "vendor", KeyField: "DisplayName"}
	KindItem     = EntityKind{Name: "Item", Endpoint: "item", KeyField: "Name"}
	KindAccount  = EntityKind{Name: "Account", Endpoint: "account", KeyField: "Name"}
)

// EntityRef is a resolved ledger entity. A zero ID marks a placeholder for
// an entity that could not be provisioned.
type EntityRef struct {
	ID             string
	Name           string
	AccountType    string
	AccountSubType string
}

// Tokens carries the OAuth state required to reach one realm.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	RealmID      string
}

// Valid reports whether the token set is usable.
func (t Tokens) Valid() bool {
	return t.AccessToken != "" && t.RealmID != ""
}

// DocType identifies a posting document entity.
type DocType string

const (
	DocInvoice      DocType = "Invoice"
	DocBill         DocType = "Bill"
	DocJournalEntry DocType = "JournalEntry"
)

// Ref is a value/name reference pair used throughout ledger payloads.
type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// Invoice is a customer invoice create payload.
type Invoice struct {
	Line        []InvoiceLine `json:"Line"`
	CustomerRef Ref           `json:"CustomerRef"`
	TxnDate     string        `json:"TxnDate"`
	PrivateNote string        `json:"PrivateNote"`
}

// InvoiceLine is a sales item line.
type InvoiceLine struct {
	DetailType string         `json:"DetailType"`
	Amount     float64        `json:"Amount"`
	SalesItem  SalesItemDetail `json:"SalesItemLineDetail"`
}

// SalesItemDetail references the service item being sold.
type SalesItemDetail struct {
	ItemRef Ref `json:"ItemRef"`
}

// Bill is a vendor bill create payload.
type Bill struct {
	Line        []BillLine `json:"Line"`
	VendorRef   Ref        `json:"VendorRef"`
	TxnDate     string     `json:"TxnDate"`
	PrivateNote string     `json:"PrivateNote"`
}

// BillLine is an account-based expense line.
type BillLine struct {
	DetailType string        `json:"DetailType"`
	Amount     float64       `json:"Amount"`
	Expense    ExpenseDetail `json:"AccountBasedExpenseLineDetail"`
}

// ExpenseDetail references the expense account charged.
type ExpenseDetail struct {
	AccountRef Ref `json:"AccountRef"`
}

// JournalEntry is a balanced journal entry create payload.
type JournalEntry struct {
	Line        []JournalLine `json:"Line"`
	TxnDate     string        `json:"TxnDate"`
	PrivateNote string        `json:"PrivateNote"`
}

// JournalLine is one debit or credit line.
type JournalLine struct {
	Description string        `json:"Description,omitempty"`
	Amount      float64       `json:"Amount"`
	DetailType  string        `json:"DetailType"`
	Detail      JournalDetail `json:"JournalEntryLineDetail"`
}

// JournalDetail carries the posting side and account.
type JournalDetail struct {
	PostingType string `json:"PostingType"` // Debit or Credit
	AccountRef  Ref    `json:"AccountRef"`
}

// BatchItem is one operation inside a batch request. Exactly one of the
// document fields is set, matching its bId's document type.
type BatchItem struct {
	BID          string        `json:"bId"`
	Operation    string        `json:"operation"`
	Invoice      *Invoice      `json:"Invoice,omitempty"`
	Bill         *Bill         `json:"Bill,omitempty"`
	JournalEntry *JournalEntry `json:"JournalEntry,omitempty"`
}

// BatchItemResponse is the per-item result of a batch submission.
type BatchItemResponse struct {
	BID   string `json:"bId"`
	Fault *Fault `json:"Fault,omitempty"`
}

// Faulted reports whether this item failed.
func (r BatchItemResponse) Faulted() bool {
	return r.Fault != nil
}

// BatchResponse is the ledger's response to a batch request.
type BatchResponse struct {
	Items []BatchItemResponse `json:"BatchItemResponse"`
}

// Fault is a structured ledger error.
type Fault struct {
	Type   string       `json:"type,omitempty"`
	Errors []FaultError `json:"Error"`
}

// FaultError is one entry in a fault.
type FaultError struct {
	Code    string `json:"code"`
	Message string `json:"Message"`
	Detail  string `json:"Detail,omitempty"`
}

// Code returns the first fault code, or "".
func (f *Fault) Code() string {
	if f == nil || len(f.Errors) == 0 {
		return ""
	}
	return f.Errors[0].Code
}

// queryResponse mirrors the ledger's QueryResponse envelope. Entity arrays
// are keyed by entity name, so the payload is decoded generically.
type queryResponse struct {
	QueryResponse map[string]json.RawMessage `json:"QueryResponse"`
}

type entityRow struct {
	ID             string `json:"Id"`
	Name           string `json:"Name,omitempty"`
	DisplayName    string `json:"DisplayName,omitempty"`
	AccountType    string `json:"AccountType,omitempty"`
	AccountSubType string `json:"AccountSubType,omitempty"`
	PrivateNote    string `json:"PrivateNote,omitempty"`
}
