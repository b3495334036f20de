// Package plaid provides a banking aggregator API client and types.
package plaid

// Account represents a bank account reported by the aggregator.
type Account struct {
	AccountID       string   `json:"account_id"`
	Name            string   `json:"name"`
	InstitutionName string   `json:"institution_name,omitempty"`
	Type            string   `json:"type"`
	Subtype         string   `json:"subtype"`
	Mask            string   `json:"mask,omitempty"`
	Balances        Balances `json:"balances"`
}

// Balances holds balance figures for an account.
type Balances struct {
	Current   float64 `json:"current"`
	Available float64 `json:"available"`
}

// Transaction represents a bank transaction. Amount follows the engine's
// sign convention: negative = outflow, positive = inflow. The aggregator's
// own convention (outflow positive) is inverted at the client boundary and
// never leaks past this package.
type Transaction struct {
	TxnID        string   `json:"transaction_id"`
	AccountID    string   `json:"account_id"`
	Amount       float64  `json:"amount"`
	Date         string   `json:"date"` // YYYY-MM-DD
	MerchantName string   `json:"merchant_name,omitempty"`
	Name         string   `json:"name,omitempty"`
	Category     []string `json:"category,omitempty"`
	Pending      bool     `json:"pending"`
}

// Merchant returns the best available display name for the counterparty,
// or "" when the aggregator reported neither a merchant nor a description.
func (t Transaction) Merchant() string {
	if t.MerchantName != "" {
		return t.MerchantName
	}
	return t.Name
}

// PrimaryCategory returns the leading category segment, or "".
func (t Transaction) PrimaryCategory() string {
	if len(t.Category) == 0 {
		return ""
	}
	return t.Category[0]
}

// IsIncome reports whether the transaction is an inflow.
func (t Transaction) IsIncome() bool {
	return t.Amount > 0
}

type accountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total_transactions"`
}

type publicTokenResponse struct {
	PublicToken string `json:"public_token"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

type errorResponse struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}
