// Package seed generates deterministic synthetic banking and ledger data.
// It backs the degraded path: when an upstream integration is unavailable
// the orchestrator seeds from here so reporting stays populated.
package seed

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/Carlavier/ai-cfo-mvp/pkg/store"
)

// SeedStore is the storage surface the seeder writes through.
type SeedStore interface {
	SaveAccount(a store.BankAccount) (int64, error)
	SaveTransaction(t store.Transaction) (int64, error)
	SaveInvoice(inv store.Invoice) error
	SaveBill(b store.Bill) error
}

var incomeMerchants = []string{
	"Stripe Payout", "Shopify Payout", "Client Payment", "Interest",
}

var expenseMerchants = []struct {
	Name     string
	Category string
	Min, Max float64
}{
	{"AWS", "Cloud Services", 50, 800},
	{"Google Cloud", "Cloud Services", 30, 500},
	{"Figma", "Software", 15, 75},
	{"Slack", "Software", 10, 100},
	{"OpenAI", "Software", 20, 200},
	{"Payroll", "Payroll", 1000, 3000},
	{"Office Rent", "Rent", 800, 2500},
	{"Uber", "Travel", 10, 120},
	{"Restaurant", "Food and Drink", 15, 250},
	{"Supplies", "Office Supplies", 10, 300},
}

var invoiceCustomers = []string{
	"Acme Corp", "Globex Inc", "Initech", "Umbrella LLC",
	"Wayne Enterprises", "Stark Industries", "Hooli", "Pied Piper",
}

var billVendors = []string{
	"AWS", "Google Cloud", "WeWork", "Staples", "Deloitte",
	"Comcast Business", "State Farm", "ADP", "Salesforce", "Zoom",
}

// Seeder writes deterministic mock data keyed by company. Two runs for
// the same company produce identical identifiers, so re-seeding after a
// repeated outage stays idempotent against the store's unique indexes.
type Seeder struct {
	store SeedStore
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Seeder.
func New(s SeedStore, log *slog.Logger) *Seeder {
	if log == nil {
		log = slog.Default()
	}
	return &Seeder{store: s, log: log, now: time.Now}
}

// SeedBanking writes two bank accounts and thirty days of transactions
// for the company. All randomness derives from the company id.
func (s *Seeder) SeedBanking(companyID int64) (accounts, txns int, err error) {
	rng := rand.New(rand.NewSource(companyID))

	checkingID, err := s.store.SaveAccount(store.BankAccount{
		CompanyID:        companyID,
		PlaidAccountID:   fmt.Sprintf("mock-checking-%d", companyID),
		Name:             "Operating Checking",
		InstitutionName:  "Mock Bank",
		Type:             "depository",
		Subtype:          "checking",
		CurrentBalance:   75000,
		AvailableBalance: 74000,
		Mask:             "1234",
	})
	if err != nil {
		return accounts, txns, fmt.Errorf("seeding checking account: %w", err)
	}
	accounts++

	_, err = s.store.SaveAccount(store.BankAccount{
		CompanyID:        companyID,
		PlaidAccountID:   fmt.Sprintf("mock-savings-%d", companyID),
		Name:             "Reserve Savings",
		InstitutionName:  "Mock Bank",
		Type:             "depository",
		Subtype:          "savings",
		CurrentBalance:   25000,
		AvailableBalance: 25000,
		Mask:             "9876",
	})
	if err != nil {
		return accounts, txns, fmt.Errorf("seeding savings account: %w", err)
	}
	accounts++

	today := s.now()
	for day := 0; day < 30; day++ {
		date := today.AddDate(0, 0, -day).Format("2006-01-02")

		for i := 0; i < rng.Intn(3); i++ {
			amount := 200 + rng.Float64()*4800
			if err := s.saveTxn(rng, checkingID, date, amount,
				incomeMerchants[rng.Intn(len(incomeMerchants))], "Transfer"); err != nil {
				return accounts, txns, err
			}
			txns++
		}

		for i := 0; i < 2+rng.Intn(4); i++ {
			m := expenseMerchants[rng.Intn(len(expenseMerchants))]
			amount := m.Min + rng.Float64()*(m.Max-m.Min)
			if err := s.saveTxn(rng, checkingID, date, -amount, m.Name, m.Category); err != nil {
				return accounts, txns, err
			}
			txns++
		}
	}

	s.log.Info("seeded mock banking data",
		"company_id", companyID, "accounts", accounts, "transactions", txns)
	return accounts, txns, nil
}

func (s *Seeder) saveTxn(rng *rand.Rand, accountID int64, date string, amount float64, merchant, category string) error {
	// math/rand's Read makes the generated UUIDs deterministic per seed.
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return fmt.Errorf("generating transaction id: %w", err)
	}
	if _, err := s.store.SaveTransaction(store.Transaction{
		AccountID:    accountID,
		PlaidTxnID:   "mock-" + id.String(),
		Amount:       round2(amount),
		Date:         date,
		MerchantName: merchant,
		Category:     category,
	}); err != nil {
		return fmt.Errorf("seeding transaction: %w", err)
	}
	return nil
}

// SeedLedgerDocs writes eight invoices and ten bills for the company.
// The generator is offset from the banking seed so the two data sets do
// not share a sequence.
func (s *Seeder) SeedLedgerDocs(companyID int64) (invoices, bills int, err error) {
	rng := rand.New(rand.NewSource(1000 + companyID))
	today := s.now()

	for i := 0; i < 8; i++ {
		amount := round2(500 + rng.Float64()*14500)
		issued := today.AddDate(0, 0, -rng.Intn(60))
		due := issued.AddDate(0, 0, 30)

		inv := store.Invoice{
			CompanyID:     companyID,
			QBInvoiceID:   fmt.Sprintf("mock-inv-%d-%d", companyID, i+1),
			InvoiceNumber: fmt.Sprintf("INV-%d%03d", companyID, i+1),
			CustomerName:  invoiceCustomers[i%len(invoiceCustomers)],
			Amount:        amount,
			IssueDate:     issued.Format("2006-01-02"),
			DueDate:       due.Format("2006-01-02"),
		}
		switch {
		case rng.Float64() < 0.5:
			inv.Status = "paid"
			inv.Balance = 0
		case due.Before(today):
			inv.Status = "overdue"
			inv.Balance = amount
			inv.DaysOverdue = int(today.Sub(due).Hours() / 24)
		default:
			inv.Status = "pending"
			inv.Balance = amount
		}
		if err := s.store.SaveInvoice(inv); err != nil {
			return invoices, bills, fmt.Errorf("seeding invoice: %w", err)
		}
		invoices++
	}

	for i := 0; i < 10; i++ {
		amount := round2(100 + rng.Float64()*4900)
		due := today.AddDate(0, 0, rng.Intn(45)-15)

		b := store.Bill{
			CompanyID:  companyID,
			QBBillID:   fmt.Sprintf("mock-bill-%d-%d", companyID, i+1),
			BillNumber: fmt.Sprintf("BILL-%d%03d", companyID, i+1),
			VendorName: billVendors[i%len(billVendors)],
			Amount:     amount,
			DueDate:    due.Format("2006-01-02"),
			Category:   "Operating Expenses",
		}
		if rng.Float64() < 0.4 {
			b.Status = "paid"
			b.Balance = 0
		} else {
			b.Status = "pending"
			b.Balance = amount
		}
		if err := s.store.SaveBill(b); err != nil {
			return invoices, bills, fmt.Errorf("seeding bill: %w", err)
		}
		bills++
	}

	s.log.Info("seeded mock ledger documents",
		"company_id", companyID, "invoices", invoices, "bills", bills)
	return invoices, bills, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
