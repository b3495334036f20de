package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PLAID_CLIENT_ID", "PLAID_SECRET", "PLAID_ENV", "PLAID_API_URL",
		"QB_CLIENT_ID", "QB_CLIENT_SECRET", "QB_CLIENT_REDIRECT_URL", "QB_API_URL",
		"AICFO_DB_PATH", "DEBUG",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Plaid.Env != "sandbox" {
		t.Errorf("plaid env = %q, want sandbox default", cfg.Plaid.Env)
	}
	if cfg.Plaid.APIURL != "https://sandbox.plaid.com" {
		t.Errorf("plaid url = %q", cfg.Plaid.APIURL)
	}
	if cfg.Ledger.APIURL != "https://sandbox-quickbooks.api.intuit.com" {
		t.Errorf("ledger url = %q", cfg.Ledger.APIURL)
	}
	if cfg.DBPath != "ai_cfo.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.HasPlaidCredentials() {
		t.Error("no credentials set, HasPlaidCredentials should be false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLAID_CLIENT_ID", "cid")
	t.Setenv("PLAID_SECRET", "sec")
	t.Setenv("PLAID_ENV", "production")
	t.Setenv("AICFO_DB_PATH", "/tmp/custom.db")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.HasPlaidCredentials() {
		t.Error("credentials set, HasPlaidCredentials should be true")
	}
	if cfg.Plaid.APIURL != "https://production.plaid.com" {
		t.Errorf("plaid url = %q, want production endpoint", cfg.Plaid.APIURL)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if !cfg.Debug {
		t.Error("debug flag not picked up")
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "PLAID_CLIENT_ID=file-cid\nPLAID_SECRET=file-sec\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Plaid.ClientID != "file-cid" {
		t.Errorf("client id = %q, want value from .env file", cfg.Plaid.ClientID)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Fatal("expected error for explicit but missing .env file")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Plaid.ClientID = "cid"
	cfg.DBPath = "x.db"

	tests := []struct {
		name     string
		required [][]string
		wantErr  bool
	}{
		{"satisfied", [][]string{{"plaid", "clientId"}, {"db", "path"}}, false},
		{"missing secret", [][]string{{"plaid", "secret"}}, true},
		{"missing ledger", [][]string{{"ledger", "clientId"}}, true},
		{"nothing required", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cfg.Validate(tt.required...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
