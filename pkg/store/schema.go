// Package store provides the SQLite-backed local store: companies, bank
// data mirrored from the aggregator, ledger documents, integration tokens
// and the append-only sync log.
package store

// Schema defines the SQL statements to create database tables.
const Schema = `
CREATE TABLE IF NOT EXISTS companies (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    industry TEXT,
    employee_count INTEGER,
    founded_date DATE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bank_accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_id INTEGER,
    plaid_account_id TEXT UNIQUE,
    name TEXT NOT NULL,
    institution_name TEXT,
    type TEXT NOT NULL,
    subtype TEXT,
    current_balance REAL DEFAULT 0,
    available_balance REAL DEFAULT 0,
    mask TEXT,
    last_sync TIMESTAMP,
    FOREIGN KEY (company_id) REFERENCES companies (id)
);

-- plaid_transaction_id is the concurrency boundary: concurrent inserts of
-- the same source transaction must have exactly one winner, the loser
-- detected as a no-op.
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER,
    plaid_transaction_id TEXT UNIQUE,
    amount REAL NOT NULL,
    date DATE NOT NULL,
    merchant_name TEXT,
    category TEXT,
    pending BOOLEAN DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (account_id) REFERENCES bank_accounts (id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_date
    ON transactions(date);

CREATE TABLE IF NOT EXISTS invoices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_id INTEGER,
    qb_invoice_id TEXT UNIQUE,
    invoice_number TEXT,
    customer_name TEXT NOT NULL,
    amount REAL NOT NULL,
    balance REAL NOT NULL,
    due_date DATE,
    issue_date DATE,
    status TEXT DEFAULT 'pending',
    days_overdue INTEGER DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (company_id) REFERENCES companies (id)
);

CREATE TABLE IF NOT EXISTS bills (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_id INTEGER,
    qb_bill_id TEXT UNIQUE,
    bill_number TEXT,
    vendor_name TEXT NOT NULL,
    amount REAL NOT NULL,
    balance REAL NOT NULL,
    due_date DATE,
    category TEXT,
    status TEXT DEFAULT 'pending',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (company_id) REFERENCES companies (id)
);

CREATE TABLE IF NOT EXISTS plaid_tokens (
    company_id INTEGER PRIMARY KEY,
    access_token TEXT,
    item_id TEXT,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (company_id) REFERENCES companies (id)
);

CREATE TABLE IF NOT EXISTS qb_tokens (
    company_id INTEGER PRIMARY KEY,
    access_token TEXT,
    refresh_token TEXT,
    realm_id TEXT,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (company_id) REFERENCES companies (id)
);

-- Append-only: one row per orchestrator run, never updated or deleted.
CREATE TABLE IF NOT EXISTS sync_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_id INTEGER,
    api_type TEXT NOT NULL,
    sync_type TEXT NOT NULL,
    records_synced INTEGER DEFAULT 0,
    success BOOLEAN DEFAULT TRUE,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (company_id) REFERENCES companies (id)
);
`

// InitializeSchema creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
