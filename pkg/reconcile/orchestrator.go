package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carlavier/ai-cfo-mvp/pkg/plaid"
	"github.com/Carlavier/ai-cfo-mvp/pkg/qbo"
	"github.com/Carlavier/ai-cfo-mvp/pkg/store"
)

// State is the orchestrator's position in a sync run.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateReconciling State = "reconciling"
	StatePosting     State = "posting"
	StateFallback    State = "fallback"
	StateCompleted   State = "completed"
)

// SyncContext carries the per-company run parameters explicitly: no
// component reads ambient session state.
type SyncContext struct {
	CompanyID        int64
	PlaidAccessToken string
}

// TransactionSource is the banking aggregator surface the orchestrator
// fetches from.
type TransactionSource interface {
	GetAccounts(ctx context.Context) ([]plaid.Account, error)
	GetTransactions(ctx context.Context, startDate, endDate string) ([]plaid.Transaction, error)
}

// LocalStore is the narrow read/write contract over local storage.
type LocalStore interface {
	SaveAccount(a store.BankAccount) (int64, error)
	SaveTransaction(t store.Transaction) (int64, error)
	SaveInvoice(inv store.Invoice) error
	SaveBill(b store.Bill) error
	LogSync(e store.SyncLogEntry) error
}

// FallbackSeeder generates deterministic synthetic data when an
// integration is unavailable, keeping downstream reporting populated.
type FallbackSeeder interface {
	SeedBanking(companyID int64) (accounts, txns int, err error)
	SeedLedgerDocs(companyID int64) (invoices, bills int, err error)
}

// Outcome summarizes one orchestrator run. There is no unrecoverable
// terminal state by design: a run either completes fully or completes
// degraded after falling back, and a sync log entry is written either way.
type Outcome struct {
	State        State
	Degraded     bool
	Accounts     int
	Fetched      int
	Saved        int
	Skipped      int
	Posted       int
	Faulted      int
	FailedChunks int
	Seeded       int
}

// Records returns the count written to the sync log.
func (o *Outcome) Records() int {
	if o.Degraded {
		return o.Seeded
	}
	return o.Accounts + o.Saved
}

// Config assembles an orchestrator.
type Config struct {
	Store  LocalStore
	Source TransactionSource // nil when the aggregator is unavailable
	Ledger LedgerAPI         // nil when the company has no ledger connection
	Seeder FallbackSeeder
	Mapper *CategoryMapper
	// WindowDays is the transaction fetch window. Default: 30.
	WindowDays int
	Logger     *slog.Logger
	// now is injectable for tests.
	Now func() time.Time
}

// Orchestrator sequences one company's sync: fetch, reconcile, post,
// record. Each instance runs sequentially; concurrent companies use
// independent instances sharing only the backing store.
type Orchestrator struct {
	store  LocalStore
	source TransactionSource
	ledger LedgerAPI
	seeder FallbackSeeder
	mapper *CategoryMapper
	window int
	log    *slog.Logger
	now    func() time.Time
	state  State
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Mapper == nil {
		cfg.Mapper = NewCategoryMapper()
	}
	if cfg.WindowDays == 0 {
		cfg.WindowDays = 30
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		store:  cfg.Store,
		source: cfg.Source,
		ledger: cfg.Ledger,
		seeder: cfg.Seeder,
		mapper: cfg.Mapper,
		window: cfg.WindowDays,
		log:    cfg.Logger,
		now:    cfg.Now,
		state:  StateIdle,
	}
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() State {
	return o.state
}

// RunBankingSync executes one full banking sync for the company in
// syncCtx. Any failure in Fetching or Posting routes to fallback seeding
// instead of propagating; a failure reconciling a single transaction skips
// only that transaction. Exactly one sync log entry is written.
func (o *Orchestrator) RunBankingSync(ctx context.Context, syncCtx SyncContext) (*Outcome, error) {
	o.state = StateFetching
	outcome := &Outcome{}

	if o.source == nil || syncCtx.PlaidAccessToken == "" {
		o.log.Warn("aggregator unavailable, seeding fallback data", "company_id", syncCtx.CompanyID)
		return o.fallbackBanking(syncCtx, outcome, errors.New("aggregator client not configured"))
	}

	accounts, err := o.source.GetAccounts(ctx)
	if err != nil {
		o.log.Error("account fetch failed, seeding fallback data",
			"company_id", syncCtx.CompanyID, "error", err)
		return o.fallbackBanking(syncCtx, outcome, err)
	}

	end := o.now()
	start := end.AddDate(0, 0, -o.window)
	txns, err := o.source.GetTransactions(ctx, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		o.log.Error("transaction fetch failed, seeding fallback data",
			"company_id", syncCtx.CompanyID, "error", err)
		return o.fallbackBanking(syncCtx, outcome, err)
	}
	outcome.Fetched = len(txns)

	localByPlaidID := make(map[string]store.BankAccount, len(accounts))
	for _, acct := range accounts {
		localID, err := o.store.SaveAccount(store.BankAccount{
			CompanyID:        syncCtx.CompanyID,
			PlaidAccountID:   acct.AccountID,
			Name:             acct.Name,
			InstitutionName:  acct.InstitutionName,
			Type:             acct.Type,
			Subtype:          acct.Subtype,
			CurrentBalance:   acct.Balances.Current,
			AvailableBalance: acct.Balances.Available,
			Mask:             acct.Mask,
		})
		if err != nil {
			return o.fallbackBanking(syncCtx, outcome, err)
		}
		localByPlaidID[acct.AccountID] = store.BankAccount{
			ID: localID, Name: acct.Name, Mask: acct.Mask,
		}
		outcome.Accounts++
	}

	o.state = StateReconciling
	docs := o.reconcile(ctx, syncCtx, txns, localByPlaidID, outcome)

	o.state = StatePosting
	if len(docs) > 0 {
		poster := NewPoster(o.ledger, o.log)
		batch := poster.Post(ctx, docs)
		outcome.Posted = batch.Posted
		outcome.Faulted = batch.Faulted
		outcome.FailedChunks = batch.FailedChunks
		o.log.Info("batch posting finished",
			"company_id", syncCtx.CompanyID,
			"posted", batch.Posted,
			"faults", batch.Faulted,
			"failed_chunks", batch.FailedChunks,
			"items", batch.Submitted)

		// Every chunk failing on transport means the ledger was
		// unreachable for the whole posting stage.
		if batch.Posted == 0 && batch.Faulted == 0 && batch.FailedChunks > 0 {
			return o.fallbackBanking(syncCtx, outcome, fmt.Errorf("all %d batch chunks failed", batch.FailedChunks))
		}
	}

	o.state = StateCompleted
	entry := store.SyncLogEntry{
		CompanyID:   syncCtx.CompanyID,
		Integration: "plaid",
		Kind:        "full_sync",
		Records:     outcome.Records(),
		Success:     true,
	}
	// A cancelled run stops between transactions, so whatever was saved
	// and posted stands, but the log must not pass it off as a full pass.
	if ctx.Err() != nil {
		entry.Success = false
		entry.Error = fmt.Sprintf("interrupted: %v", ctx.Err())
		outcome.Degraded = true
	}
	logErr := o.store.LogSync(entry)
	outcome.State = StateCompleted
	return outcome, logErr
}

// reconcile runs the per-transaction pipeline: local persist, idempotency
// guard, category mapping, account provisioning, document construction.
// A failure on one transaction skips that transaction only.
func (o *Orchestrator) reconcile(ctx context.Context, syncCtx SyncContext, txns []plaid.Transaction, localByPlaidID map[string]store.BankAccount, outcome *Outcome) []*PostingDocument {
	var docs []*PostingDocument

	var prov *Provisioner
	var guard *Guard
	if o.ledger != nil {
		prov = NewProvisioner(o.ledger, o.log)
		guard = NewGuard(o.ledger)
	}

	for _, txn := range txns {
		if ctx.Err() != nil {
			o.log.Warn("sync cancelled during reconciliation", "company_id", syncCtx.CompanyID)
			break
		}

		local, ok := localByPlaidID[txn.AccountID]
		if !ok {
			outcome.Skipped++
			continue
		}

		insertedID, err := o.store.SaveTransaction(store.Transaction{
			AccountID:    local.ID,
			PlaidTxnID:   txn.TxnID,
			Amount:       txn.Amount,
			Date:         txn.Date,
			MerchantName: txn.Merchant(),
			Category:     txn.PrimaryCategory(),
			Pending:      txn.Pending,
		})
		if err != nil {
			o.log.Error("failed to persist transaction", "txn_id", txn.TxnID, "error", err)
			outcome.Skipped++
			continue
		}
		if insertedID > 0 {
			outcome.Saved++
		}

		if o.ledger == nil {
			continue
		}

		// A local row is only a cache; the remote marker decides whether
		// the posting half still needs to run.
		posted, err := guard.AlreadyPosted(ctx, txn.TxnID)
		if err != nil {
			o.log.Warn("marker lookup failed, skipping transaction", "txn_id", txn.TxnID, "error", err)
			outcome.Skipped++
			continue
		}
		if posted {
			continue
		}

		doc, err := o.buildDocument(ctx, txn, local, prov)
		if err != nil {
			var skip *SkipError
			if errors.As(err, &skip) {
				o.log.Warn("transaction skipped", "txn_id", skip.TxnID, "reason", skip.Reason)
			} else {
				o.log.Warn("transaction skipped", "txn_id", txn.TxnID, "error", err)
			}
			outcome.Skipped++
			continue
		}
		docs = append(docs, doc)
	}

	return docs
}

func (o *Orchestrator) buildDocument(ctx context.Context, txn plaid.Transaction, local store.BankAccount, prov *Provisioner) (*PostingDocument, error) {
	bankName := local.Name
	if bankName == "" {
		bankName = "Bank"
	}
	if local.Mask != "" {
		bankName = fmt.Sprintf("%s (%s)", bankName, local.Mask)
	}

	bank, err := prov.EnsureAccount(ctx, bankName, "Bank", "")
	if err != nil {
		return nil, &SkipError{TxnID: txn.TxnID, Reason: fmt.Sprintf("bank account: %v", err)}
	}

	name, accType, subtype := o.mapper.Map(txn.PrimaryCategory(), txn.IsIncome())
	category, err := prov.EnsureAccount(ctx, name, accType, subtype)
	if err != nil {
		return nil, &SkipError{TxnID: txn.TxnID, Reason: fmt.Sprintf("category account: %v", err)}
	}

	res := Resolution{Bank: bank, Category: category}

	if txn.IsIncome() {
		customer, err := prov.EnsureEntity(ctx, qbo.KindCustomer, orDefault(txn.Merchant(), "Customer"), nil)
		if err == nil && resolved(customer) {
			if item, err := prov.EnsureServiceItem(ctx, "Services"); err == nil && resolved(item) {
				res.Party = customer
				res.Item = item
			}
		}
	} else {
		vendor, err := prov.EnsureEntity(ctx, qbo.KindVendor, orDefault(txn.Merchant(), "Vendor"), nil)
		if err == nil && resolved(vendor) {
			res.Party = vendor
		}
	}

	return BuildDocument(txn, res)
}

// fallbackBanking seeds synthetic banking data after an integration
// failure and records a degraded outcome.
func (o *Orchestrator) fallbackBanking(syncCtx SyncContext, outcome *Outcome, cause error) (*Outcome, error) {
	o.state = StateFallback

	accounts, txns, seedErr := o.seeder.SeedBanking(syncCtx.CompanyID)
	outcome.Seeded = accounts + txns
	outcome.Degraded = true

	entry := store.SyncLogEntry{
		CompanyID:   syncCtx.CompanyID,
		Integration: "plaid",
		Kind:        "mock_seed",
		Records:     outcome.Seeded,
		Success:     seedErr == nil,
		Error:       cause.Error(),
	}
	if seedErr != nil {
		entry.Error = fmt.Sprintf("%v; seed failed: %v", cause, seedErr)
	}

	o.state = StateCompleted
	outcome.State = StateCompleted
	if err := o.store.LogSync(entry); err != nil {
		return outcome, err
	}
	if seedErr != nil {
		return outcome, fmt.Errorf("fallback seeding failed: %w", seedErr)
	}
	o.log.Info("fallback data seeded",
		"company_id", syncCtx.CompanyID, "accounts", accounts, "transactions", txns)
	return outcome, nil
}

// RunLedgerPull mirrors the ledger's invoices and bills into the local
// store so reporting stays populated, seeding synthetic documents when the
// ledger is unavailable.
func (o *Orchestrator) RunLedgerPull(ctx context.Context, syncCtx SyncContext) (*Outcome, error) {
	outcome := &Outcome{}

	if o.ledger == nil {
		return o.fallbackLedger(syncCtx, outcome, errors.New("no ledger connection"))
	}

	invoices, err := o.ledger.ListDocuments(ctx, qbo.DocInvoice)
	if err != nil {
		return o.fallbackLedger(syncCtx, outcome, err)
	}
	for _, inv := range invoices {
		if err := o.store.SaveInvoice(store.Invoice{
			CompanyID:     syncCtx.CompanyID,
			QBInvoiceID:   inv.ID,
			InvoiceNumber: inv.DocNumber,
			CustomerName:  refName(inv.CustomerRef, "Unknown"),
			Amount:        inv.TotalAmt,
			Balance:       inv.Balance,
			DueDate:       inv.DueDate,
			IssueDate:     inv.TxnDate,
			Status:        orDefault(inv.TxnStatus, "pending"),
		}); err != nil {
			o.log.Error("failed to save invoice", "invoice_id", inv.ID, "error", err)
			continue
		}
		outcome.Saved++
	}

	bills, err := o.ledger.ListDocuments(ctx, qbo.DocBill)
	if err != nil {
		return o.fallbackLedger(syncCtx, outcome, err)
	}
	for _, bill := range bills {
		if err := o.store.SaveBill(store.Bill{
			CompanyID:  syncCtx.CompanyID,
			QBBillID:   bill.ID,
			BillNumber: bill.DocNumber,
			VendorName: refName(bill.VendorRef, "Unknown"),
			Amount:     bill.TotalAmt,
			Balance:    bill.Balance,
			DueDate:    bill.DueDate,
			Status:     orDefault(bill.TxnStatus, "pending"),
		}); err != nil {
			o.log.Error("failed to save bill", "bill_id", bill.ID, "error", err)
			continue
		}
		outcome.Saved++
	}

	outcome.State = StateCompleted
	logErr := o.store.LogSync(store.SyncLogEntry{
		CompanyID:   syncCtx.CompanyID,
		Integration: "quickbooks",
		Kind:        "full_sync",
		Records:     outcome.Saved,
		Success:     true,
	})
	return outcome, logErr
}

func (o *Orchestrator) fallbackLedger(syncCtx SyncContext, outcome *Outcome, cause error) (*Outcome, error) {
	o.log.Warn("ledger unavailable, seeding fallback documents",
		"company_id", syncCtx.CompanyID, "error", cause)

	invoices, bills, seedErr := o.seeder.SeedLedgerDocs(syncCtx.CompanyID)
	outcome.Seeded = invoices + bills
	outcome.Degraded = true
	outcome.State = StateCompleted

	entry := store.SyncLogEntry{
		CompanyID:   syncCtx.CompanyID,
		Integration: "quickbooks",
		Kind:        "mock_seed",
		Records:     outcome.Seeded,
		Success:     seedErr == nil,
		Error:       cause.Error(),
	}
	if seedErr != nil {
		entry.Error = fmt.Sprintf("%v; seed failed: %v", cause, seedErr)
	}

	if err := o.store.LogSync(entry); err != nil {
		return outcome, err
	}
	if seedErr != nil {
		return outcome, fmt.Errorf("fallback seeding failed: %w", seedErr)
	}
	return outcome, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func refName(ref *qbo.Ref, fallback string) string {
	if ref == nil || ref.Name == "" {
		return fallback
	}
	return ref.Name
}
