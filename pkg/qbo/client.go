package qbo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ClientConfig represents the configuration for the ledger client.
type ClientConfig struct {
	APIURL  string
	Tokens  Tokens
	Timeout time.Duration // Default: 60 seconds
	// RequestsPerSecond throttles outbound calls to stay inside the
	// ledger's API limits. Default: 5 with a burst of 10.
	RequestsPerSecond float64
}

// Client is a ledger API client bound to one realm.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     Tokens
	limiter    *rate.Limiter
}

// NewClient creates a new ledger client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	rps := config.RequestsPerSecond
	if rps == 0 {
		rps = 5
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(config.APIURL, "/"),
		tokens:     config.Tokens,
		limiter:    rate.NewLimiter(rate.Limit(rps), 10),
	}
}

// EscapeLiteral escapes a value for interpolation into a query literal.
// Only embedded single quotes are doubled. The structural quotes around
// the literal must NOT be escaped: doubling every quote in the final query
// string turns 'Name' into ''Name'' and yields a QueryParserError.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Query runs a statement in the ledger's query sub-language and returns the
// raw entity rows keyed by entity name.
func (c *Client) Query(ctx context.Context, q string) (map[string]json.RawMessage, error) {
	endpoint := fmt.Sprintf("query?query=%s&minorversion=70", url.QueryEscape(q))

	var resp queryResponse
	if err := c.request(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.QueryResponse, nil
}

// FindEntityByName looks up an entity by its uniqueness field. Returns
// (nil, nil) when no entity matches.
func (c *Client) FindEntityByName(ctx context.Context, kind EntityKind, name string) (*EntityRef, error) {
	if name == "" {
		return nil, nil
	}

	fields := fmt.Sprintf("Id, %s", kind.KeyField)
	if kind == KindAccount {
		fields = "Id, Name, AccountType, AccountSubType"
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = '%s'", fields, kind.Name, kind.KeyField, EscapeLiteral(name))

	rows, err := c.queryEntities(ctx, kind.Name, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToRef(kind, rows[0]), nil
}

// CreateEntity creates an entity of the given kind, setting its uniqueness
// field to name and merging any extra attributes into the payload. A name
// collision surfaces as *DuplicateNameError.
func (c *Client) CreateEntity(ctx context.Context, kind EntityKind, name string, attrs map[string]any) (*EntityRef, error) {
	payload := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		payload[k] = v
	}
	payload[kind.KeyField] = name

	var envelope map[string]entityRow
	endpoint := fmt.Sprintf("%s?minorversion=70", kind.Endpoint)
	if err := c.request(ctx, http.MethodPost, endpoint, payload, &envelope); err != nil {
		if dup, ok := asDuplicate(err); ok {
			dup.Entity = kind.Name
			dup.Name = name
			return nil, dup
		}
		return nil, err
	}

	row := envelope[kind.Name]
	return rowToRef(kind, row), nil
}

// FindDocumentByNote returns the id of the first document of the given type
// whose PrivateNote equals note, or "" when none exists.
func (c *Client) FindDocumentByNote(ctx context.Context, doc DocType, note string) (string, error) {
	q := fmt.Sprintf("SELECT Id FROM %s WHERE PrivateNote = '%s'", doc, EscapeLiteral(note))
	rows, err := c.queryEntities(ctx, string(doc), q)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].ID, nil
}

// BatchCreate submits up to 30 mixed create operations as one batch request
// and returns the per-item results.
func (c *Client) BatchCreate(ctx context.Context, items []BatchItem) (*BatchResponse, error) {
	payload := map[string]any{"BatchItemRequest": items}

	var resp BatchResponse
	if err := c.request(ctx, http.MethodPost, "batch?minorversion=70", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DocumentSummary is a pulled invoice or bill in the ledger's shape.
type DocumentSummary struct {
	ID          string  `json:"Id"`
	DocNumber   string  `json:"DocNumber"`
	TotalAmt    float64 `json:"TotalAmt"`
	Balance     float64 `json:"Balance"`
	DueDate     string  `json:"DueDate"`
	TxnDate     string  `json:"TxnDate"`
	TxnStatus   string  `json:"TxnStatus"`
	CustomerRef *Ref    `json:"CustomerRef,omitempty"`
	VendorRef   *Ref    `json:"VendorRef,omitempty"`
}

// ListDocuments pulls all documents of the given type (Invoice or Bill).
func (c *Client) ListDocuments(ctx context.Context, doc DocType) ([]DocumentSummary, error) {
	raw, err := c.Query(ctx, fmt.Sprintf("SELECT * FROM %s", doc))
	if err != nil {
		return nil, err
	}

	data, ok := raw[string(doc)]
	if !ok {
		return nil, nil
	}

	var docs []DocumentSummary
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", doc, err)
	}
	return docs, nil
}

func (c *Client) queryEntities(ctx context.Context, entity, q string) ([]entityRow, error) {
	raw, err := c.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	data, ok := raw[entity]
	if !ok {
		return nil, nil
	}

	var rows []entityRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", entity, err)
	}
	return rows, nil
}

func (c *Client) request(ctx context.Context, method, endpoint string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	reqURL := fmt.Sprintf("%s/v3/company/%s/%s", c.baseURL, c.tokens.RealmID, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

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
		return &UpstreamError{Status: resp.StatusCode, Body: "failed to read error response"}
	}

	var faultResp struct {
		Fault *Fault `json:"Fault"`
	}
	if err := json.Unmarshal(body, &faultResp); err == nil && faultResp.Fault.Code() == DuplicateNameCode {
		return &DuplicateNameError{}
	}

	return &UpstreamError{Status: resp.StatusCode, Body: string(body)}
}

func asDuplicate(err error) (*DuplicateNameError, bool) {
	dup, ok := err.(*DuplicateNameError)
	return dup, ok
}

func rowToRef(kind EntityKind, row entityRow) *EntityRef {
	name := row.Name
	if kind.KeyField == "DisplayName" {
		name = row.DisplayName
	}
	return &EntityRef{
		ID:             row.ID,
		Name:           name,
		AccountType:    row.AccountType,
		AccountSubType: row.AccountSubType,
	}
}
