package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Company is a tenant of the sync engine.
type Company struct {
	ID       int64
	Name     string
	Industry string
}

// BankAccount mirrors an aggregator account.
type BankAccount struct {
	ID               int64
	CompanyID        int64
	PlaidAccountID   string
	Name             string
	InstitutionName  string
	Type             string
	Subtype          string
	CurrentBalance   float64
	AvailableBalance float64
	Mask             string
}

// Transaction mirrors a bank transaction. Amount is negative for outflows.
type Transaction struct {
	ID           int64
	AccountID    int64
	PlaidTxnID   string
	Amount       float64
	Date         string // YYYY-MM-DD
	MerchantName string
	Category     string
	Pending      bool
}

// Invoice mirrors a ledger customer invoice.
type Invoice struct {
	CompanyID     int64
	QBInvoiceID   string
	InvoiceNumber string
	CustomerName  string
	Amount        float64
	Balance       float64
	DueDate       string
	IssueDate     string
	Status        string
	DaysOverdue   int
}

// Bill mirrors a ledger vendor bill.
type Bill struct {
	CompanyID  int64
	QBBillID   string
	BillNumber string
	VendorName string
	Amount     float64
	Balance    float64
	DueDate    string
	Category   string
	Status     string
}

// QBTokens is the stored OAuth state for one company's ledger connection.
type QBTokens struct {
	AccessToken  string
	RefreshToken string
	RealmID      string
}

// SyncLogEntry is one append-only record of an orchestrator run.
type SyncLogEntry struct {
	CompanyID   int64
	Integration string // "plaid" or "quickbooks"
	Kind        string // "full_sync" or "mock_seed"
	Records     int
	Success     bool
	Error       string
	CreatedAt   time.Time
}

// Store is the narrow read/write contract over the local database.
type Store struct {
	conn *Connection
}

// New creates a Store over an open connection.
func New(conn *Connection) *Store {
	return &Store{conn: conn}
}

// SeedDemoCompanies inserts the demo companies when the table is empty, so
// a fresh database has tenants to sync against.
func (s *Store) SeedDemoCompanies() error {
	var count int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM companies`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count companies: %w", err)
	}
	if count > 0 {
		return nil
	}

	demo := []struct {
		name, industry string
		employees      int
		founded        string
	}{
		{"TechStartup Inc", "Software", 25, "2022-01-15"},
		{"Retail Corp", "E-commerce", 50, "2020-06-01"},
		{"Agency Pro", "Marketing", 15, "2021-03-10"},
	}

	for _, c := range demo {
		_, err := s.conn.Exec(
			`INSERT INTO companies (name, industry, employee_count, founded_date) VALUES (?, ?, ?, ?)`,
			c.name, c.industry, c.employees, c.founded,
		)
		if err != nil {
			return fmt.Errorf("failed to seed company %s: %w", c.name, err)
		}
	}
	return nil
}

// ListCompanies returns all companies ordered by id.
func (s *Store) ListCompanies() ([]Company, error) {
	rows, err := s.conn.Query(`SELECT id, name, COALESCE(industry, '') FROM companies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Industry); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// SaveAccount upserts a bank account keyed by its aggregator id and
// returns the local row id.
func (s *Store) SaveAccount(a BankAccount) (int64, error) {
	_, err := s.conn.Exec(`
		INSERT INTO bank_accounts
		(company_id, plaid_account_id, name, institution_name, type, subtype,
		 current_balance, available_balance, mask, last_sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(plaid_account_id) DO UPDATE SET
			name = excluded.name,
			institution_name = excluded.institution_name,
			type = excluded.type,
			subtype = excluded.subtype,
			current_balance = excluded.current_balance,
			available_balance = excluded.available_balance,
			mask = excluded.mask,
			last_sync = datetime('now')
	`,
		a.CompanyID, a.PlaidAccountID, a.Name, a.InstitutionName, a.Type, a.Subtype,
		a.CurrentBalance, a.AvailableBalance, a.Mask,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save account: %w", err)
	}

	var id int64
	err = s.conn.QueryRow(`SELECT id FROM bank_accounts WHERE plaid_account_id = ?`, a.PlaidAccountID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve account id: %w", err)
	}
	return id, nil
}

// GetAccountByPlaidID returns the local account for an aggregator id, or
// (nil, nil) when unknown.
func (s *Store) GetAccountByPlaidID(companyID int64, plaidAccountID string) (*BankAccount, error) {
	var a BankAccount
	err := s.conn.QueryRow(`
		SELECT id, company_id, plaid_account_id, name, COALESCE(institution_name, ''),
		       type, COALESCE(subtype, ''), current_balance, available_balance, COALESCE(mask, '')
		FROM bank_accounts
		WHERE company_id = ? AND plaid_account_id = ?
	`, companyID, plaidAccountID).Scan(
		&a.ID, &a.CompanyID, &a.PlaidAccountID, &a.Name, &a.InstitutionName,
		&a.Type, &a.Subtype, &a.CurrentBalance, &a.AvailableBalance, &a.Mask,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// SaveTransaction inserts a transaction. Returns the new row id, or 0 when
// a row with the same source transaction id already exists, which is the
// local idempotency signal.
func (s *Store) SaveTransaction(t Transaction) (int64, error) {
	res, err := s.conn.Exec(`
		INSERT OR IGNORE INTO transactions
		(account_id, plaid_transaction_id, amount, date, merchant_name, category, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.AccountID, t.PlaidTxnID, t.Amount, t.Date, t.MerchantName, t.Category, t.Pending)
	if err != nil {
		return 0, fmt.Errorf("failed to save transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return 0, nil
	}
	return res.LastInsertId()
}

// SaveInvoice upserts an invoice keyed by its ledger id.
func (s *Store) SaveInvoice(inv Invoice) error {
	_, err := s.conn.Exec(`
		INSERT INTO invoices
		(company_id, qb_invoice_id, invoice_number, customer_name, amount, balance,
		 due_date, issue_date, status, days_overdue)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(qb_invoice_id) DO UPDATE SET
			invoice_number = excluded.invoice_number,
			customer_name = excluded.customer_name,
			amount = excluded.amount,
			balance = excluded.balance,
			due_date = excluded.due_date,
			issue_date = excluded.issue_date,
			status = excluded.status,
			days_overdue = excluded.days_overdue
	`,
		inv.CompanyID, inv.QBInvoiceID, inv.InvoiceNumber, inv.CustomerName, inv.Amount, inv.Balance,
		inv.DueDate, inv.IssueDate, inv.Status, inv.DaysOverdue,
	)
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// SaveBill upserts a bill keyed by its ledger id.
func (s *Store) SaveBill(b Bill) error {
	_, err := s.conn.Exec(`
		INSERT INTO bills
		(company_id, qb_bill_id, bill_number, vendor_name, amount, balance,
		 due_date, category, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(qb_bill_id) DO UPDATE SET
			bill_number = excluded.bill_number,
			vendor_name = excluded.vendor_name,
			amount = excluded.amount,
			balance = excluded.balance,
			due_date = excluded.due_date,
			category = excluded.category,
			status = excluded.status
	`,
		b.CompanyID, b.QBBillID, b.BillNumber, b.VendorName, b.Amount, b.Balance,
		b.DueDate, b.Category, b.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save bill: %w", err)
	}
	return nil
}

// LogSync appends one sync log entry.
func (s *Store) LogSync(e SyncLogEntry) error {
	var errMsg any
	if e.Error != "" {
		errMsg = e.Error
	}
	_, err := s.conn.Exec(`
		INSERT INTO sync_log (company_id, api_type, sync_type, records_synced, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.CompanyID, e.Integration, e.Kind, e.Records, e.Success, errMsg)
	if err != nil {
		return fmt.Errorf("failed to log sync: %w", err)
	}
	return nil
}

// GetPlaidToken loads the stored aggregator token for a company. Both
// return values are "" when no token is stored.
func (s *Store) GetPlaidToken(companyID int64) (accessToken, itemID string, err error) {
	err = s.conn.QueryRow(
		`SELECT COALESCE(access_token, ''), COALESCE(item_id, '') FROM plaid_tokens WHERE company_id = ?`,
		companyID,
	).Scan(&accessToken, &itemID)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to get plaid token: %w", err)
	}
	return accessToken, itemID, nil
}

// SetPlaidToken persists the aggregator token for a company.
func (s *Store) SetPlaidToken(companyID int64, accessToken, itemID string) error {
	_, err := s.conn.Exec(`
		INSERT INTO plaid_tokens (company_id, access_token, item_id, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(company_id) DO UPDATE SET
			access_token = excluded.access_token,
			item_id = excluded.item_id,
			updated_at = CURRENT_TIMESTAMP
	`, companyID, accessToken, itemID)
	if err != nil {
		return fmt.Errorf("failed to set plaid token: %w", err)
	}
	return nil
}

// GetQBTokens loads the stored ledger tokens for a company, or (nil, nil)
// when the company has no ledger connection.
func (s *Store) GetQBTokens(companyID int64) (*QBTokens, error) {
	var t QBTokens
	err := s.conn.QueryRow(`
		SELECT COALESCE(access_token, ''), COALESCE(refresh_token, ''), COALESCE(realm_id, '')
		FROM qb_tokens WHERE company_id = ?
	`, companyID).Scan(&t.AccessToken, &t.RefreshToken, &t.RealmID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger tokens: %w", err)
	}
	if t.AccessToken == "" || t.RealmID == "" {
		return nil, nil
	}
	return &t, nil
}

// SetQBTokens persists the ledger tokens for a company.
func (s *Store) SetQBTokens(companyID int64, t QBTokens) error {
	_, err := s.conn.Exec(`
		INSERT INTO qb_tokens (company_id, access_token, refresh_token, realm_id, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(company_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			realm_id = excluded.realm_id,
			updated_at = CURRENT_TIMESTAMP
	`, companyID, t.AccessToken, t.RefreshToken, t.RealmID)
	if err != nil {
		return fmt.Errorf("failed to set ledger tokens: %w", err)
	}
	return nil
}

// Stats summarizes the local store for the stats command.
type Stats struct {
	Accounts     int
	Transactions int
	Invoices     int
	Bills        int
	SyncRuns     int
	LastSync     sql.NullString
}

// GetStats returns store-wide totals and the last sync timestamp.
func (s *Store) GetStats() (*Stats, error) {
	var stats Stats

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM bank_accounts`, &stats.Accounts},
		{`SELECT COUNT(*) FROM transactions`, &stats.Transactions},
		{`SELECT COUNT(*) FROM invoices`, &stats.Invoices},
		{`SELECT COUNT(*) FROM bills`, &stats.Bills},
		{`SELECT COUNT(*) FROM sync_log`, &stats.SyncRuns},
	}
	for _, c := range counts {
		if err := s.conn.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to collect stats: %w", err)
		}
	}

	err := s.conn.QueryRow(`SELECT MAX(created_at) FROM sync_log`).Scan(&stats.LastSync)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return &stats, nil
}
