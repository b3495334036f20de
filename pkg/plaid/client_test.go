package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		APIURL:   server.URL,
		ClientID: "cid",
		Secret:   "sec",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	client.SetAccessToken("access-token")
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		secret   string
	}{
		{"missing both", "", ""},
		{"missing secret", "cid", ""},
		{"missing client id", "", "sec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(ClientConfig{ClientID: tt.clientID, Secret: tt.secret})
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("err = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestGetTransactionsInvertsSign(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"transactions":[
			{"transaction_id":"t1","account_id":"a1","amount":42.50,"date":"2026-08-01","name":"AWS"},
			{"transaction_id":"t2","account_id":"a1","amount":-1500,"date":"2026-08-02","name":"Client Payment"}
		],"total_transactions":2}`)
	})

	txns, err := client.GetTransactions(context.Background(), "2026-08-01", "2026-08-28")
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("txns = %d, want 2", len(txns))
	}

	// Outflow-positive upstream becomes negative here, and vice versa.
	if txns[0].Amount != -42.50 {
		t.Errorf("outflow amount = %v, want -42.50", txns[0].Amount)
	}
	if txns[0].IsIncome() {
		t.Error("outflow classified as income")
	}
	if txns[1].Amount != 1500 {
		t.Errorf("inflow amount = %v, want 1500", txns[1].Amount)
	}
	if !txns[1].IsIncome() {
		t.Error("inflow not classified as income")
	}
}

func TestGetTransactionsPaginates(t *testing.T) {
	var offsets []int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Options struct {
				Count  int `json:"count"`
				Offset int `json:"offset"`
			} `json:"options"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		offsets = append(offsets, req.Options.Offset)

		n := req.Options.Count
		if req.Options.Offset >= 100 {
			n = 20 // final partial page of the 120 total
		}
		txns := make([]map[string]any, n)
		for i := range txns {
			txns[i] = map[string]any{
				"transaction_id": fmt.Sprintf("t%d-%d", req.Options.Offset, i),
				"account_id":     "a1",
				"amount":         1.0,
				"date":           "2026-08-01",
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"transactions":       txns,
			"total_transactions": 120,
		})
	})

	txns, err := client.GetTransactions(context.Background(), "2026-07-01", "2026-08-28")
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if len(txns) != 120 {
		t.Errorf("txns = %d, want 120", len(txns))
	}
	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != 100 {
		t.Errorf("offsets = %v, want [0 100]", offsets)
	}
}

func TestGetAccounts(t *testing.T) {
	var gotToken string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		gotToken, _ = req["access_token"].(string)
		fmt.Fprint(w, `{"accounts":[
			{"account_id":"a1","name":"Checking","type":"depository","subtype":"checking","mask":"1234","balances":{"current":1000,"available":900}}
		]}`)
	})

	accounts, err := client.GetAccounts(context.Background())
	if err != nil {
		t.Fatalf("GetAccounts failed: %v", err)
	}
	if gotToken != "access-token" {
		t.Errorf("access_token = %q", gotToken)
	}
	if len(accounts) != 1 || accounts[0].Balances.Current != 1000 {
		t.Errorf("accounts = %+v", accounts)
	}
}

func TestUpstreamErrorParsing(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error_code":"INVALID_ACCESS_TOKEN","error_message":"the token is no good"}`)
	})

	_, err := client.GetAccounts(context.Background())
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if upstream.Code != "INVALID_ACCESS_TOKEN" || upstream.Status != http.StatusBadRequest {
		t.Errorf("upstream = %+v", upstream)
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error_code":"INTERNAL_SERVER_ERROR","error_message":"boom"}`)
	})

	for i := 0; i < 5; i++ {
		if _, err := client.GetAccounts(context.Background()); err == nil {
			t.Fatalf("call %d unexpectedly succeeded", i)
		}
	}

	_, err := client.GetAccounts(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable once the breaker is open", err)
	}
}

func TestExchangePublicTokenBindsAccessToken(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"new-access","item_id":"item-1"}`)
	})

	access, itemID, err := client.ExchangePublicToken(context.Background(), "public-1")
	if err != nil {
		t.Fatalf("ExchangePublicToken failed: %v", err)
	}
	if access != "new-access" || itemID != "item-1" {
		t.Errorf("got %q/%q", access, itemID)
	}
	if !client.HasAccessToken() {
		t.Error("client should bind the exchanged access token")
	}
}

func TestTransactionHelpers(t *testing.T) {
	txn := Transaction{
		MerchantName: "",
		Name:         "ACH PAYMENT AWS",
		Category:     []string{"Cloud Services", "Infrastructure"},
		Amount:       -10,
	}
	if got := txn.Merchant(); got != "ACH PAYMENT AWS" {
		t.Errorf("Merchant() = %q, want fallback to name", got)
	}
	if got := txn.PrimaryCategory(); got != "Cloud Services" {
		t.Errorf("PrimaryCategory() = %q", got)
	}

	txn.MerchantName = "AWS"
	if got := txn.Merchant(); got != "AWS" {
		t.Errorf("Merchant() = %q, want merchant name preferred", got)
	}

	empty := Transaction{}
	if got := empty.PrimaryCategory(); got != "" {
		t.Errorf("PrimaryCategory() = %q, want empty", got)
	}
}
