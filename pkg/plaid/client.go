package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned when the aggregator client cannot be
// constructed or its circuit breaker is open. Callers degrade to fallback
// seeding instead of aborting.
var ErrUnavailable = errors.New("plaid: integration unavailable")

// UpstreamError is a non-2xx response from the aggregator.
type UpstreamError struct {
	Status  int
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("plaid: upstream error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("plaid: upstream error %d: %s", e.Status, e.Message)
}

// ClientConfig represents the configuration for the aggregator client.
type ClientConfig struct {
	APIURL   string
	ClientID string
	Secret   string
	Timeout  time.Duration // Default: 30 seconds
}

// Client is a banking aggregator API client bound to one access token.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	clientID    string
	secret      string
	accessToken string
	breaker     *gobreaker.CircuitBreaker
}

// NewClient creates a new aggregator client. It returns ErrUnavailable if
// credentials are missing so the orchestrator can pattern match on it.
func NewClient(config ClientConfig) (*Client, error) {
	if config.ClientID == "" || config.Secret == "" {
		return nil, fmt.Errorf("%w: missing PLAID_CLIENT_ID or PLAID_SECRET", ErrUnavailable)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "plaid",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    config.APIURL,
		clientID:   config.ClientID,
		secret:     config.Secret,
		breaker:    breaker,
	}, nil
}

// SetAccessToken binds the client to a stored item access token.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// HasAccessToken reports whether an item access token is bound.
func (c *Client) HasAccessToken() bool {
	return c.accessToken != ""
}

// GetAccounts fetches all accounts for the bound access token.
func (c *Client) GetAccounts(ctx context.Context) ([]Account, error) {
	payload := map[string]any{
		"client_id":    c.clientID,
		"secret":       c.secret,
		"access_token": c.accessToken,
	}

	var resp accountsResponse
	if err := c.post(ctx, "/accounts/get", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// GetTransactions fetches transactions in [startDate, endDate] (YYYY-MM-DD,
// inclusive) for the bound access token. The aggregator reports outflows as
// positive amounts; this method inverts the sign so that downstream code
// sees negative = outflow.
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate string) ([]Transaction, error) {
	var all []Transaction
	offset := 0
	const pageSize = 100

	for {
		payload := map[string]any{
			"client_id":    c.clientID,
			"secret":       c.secret,
			"access_token": c.accessToken,
			"start_date":   startDate,
			"end_date":     endDate,
			"options": map[string]any{
				"count":  pageSize,
				"offset": offset,
			},
		}

		var resp transactionsResponse
		if err := c.post(ctx, "/transactions/get", payload, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch transactions (offset=%d): %w", offset, err)
		}

		for _, txn := range resp.Transactions {
			txn.Amount = -txn.Amount
			all = append(all, txn)
		}

		if len(all) >= resp.Total || len(resp.Transactions) < pageSize {
			break
		}
		offset += pageSize
	}

	return all, nil
}

// CreateSandboxPublicToken creates a public token against the sandbox
// environment, used to bootstrap an item without a Link flow.
func (c *Client) CreateSandboxPublicToken(ctx context.Context, institutionID string) (string, error) {
	if institutionID == "" {
		institutionID = "ins_3"
	}
	payload := map[string]any{
		"client_id":        c.clientID,
		"secret":           c.secret,
		"institution_id":   institutionID,
		"initial_products": []string{"transactions"},
	}

	var resp publicTokenResponse
	if err := c.post(ctx, "/sandbox/public_token/create", payload, &resp); err != nil {
		return "", err
	}
	return resp.PublicToken, nil
}

// ExchangePublicToken exchanges a public token for an access token and item id.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error) {
	payload := map[string]any{
		"client_id":    c.clientID,
		"secret":       c.secret,
		"public_token": publicToken,
	}

	var resp exchangeResponse
	if err := c.post(ctx, "/item/public_token/exchange", payload, &resp); err != nil {
		return "", "", err
	}
	c.accessToken = resp.AccessToken
	return resp.AccessToken, resp.ItemID, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.doPost(ctx, endpoint, payload, out)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit breaker open for %s", ErrUnavailable, endpoint)
	}
	return err
}

func (c *Client) doPost(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Status: resp.StatusCode, Message: "failed to read error response"}
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.ErrorCode == "" {
		return &UpstreamError{Status: resp.StatusCode, Message: string(body)}
	}
	return &UpstreamError{Status: resp.StatusCode, Code: errResp.ErrorCode, Message: errResp.ErrorMessage}
}
