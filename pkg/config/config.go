// Package config provides configuration management for the sync engine.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Plaid  PlaidConfig
	Ledger LedgerConfig
	DBPath string
	Debug  bool
}

// PlaidConfig represents banking aggregator credentials.
type PlaidConfig struct {
	ClientID string
	Secret   string
	Env      string // sandbox, development or production
	APIURL   string
}

// LedgerConfig represents ledger (QuickBooks Online style) API configuration.
type LedgerConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIURL       string
}

// Load loads configuration from environment variables.
// It automatically loads .env from the current directory if available.
// A custom .env file path may be given.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Best effort: .env is optional when env vars are set directly.
		_ = godotenv.Load()
	}

	plaidEnv := strings.ToLower(getEnvOrDefault("PLAID_ENV", "sandbox"))

	cfg := &Config{
		Plaid: PlaidConfig{
			ClientID: os.Getenv("PLAID_CLIENT_ID"),
			Secret:   os.Getenv("PLAID_SECRET"),
			Env:      plaidEnv,
			APIURL:   getEnvOrDefault("PLAID_API_URL", plaidBaseURL(plaidEnv)),
		},
		Ledger: LedgerConfig{
			ClientID:     os.Getenv("QB_CLIENT_ID"),
			ClientSecret: os.Getenv("QB_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("QB_CLIENT_REDIRECT_URL"),
			APIURL:       getEnvOrDefault("QB_API_URL", "https://sandbox-quickbooks.api.intuit.com"),
		},
		DBPath: getEnvOrDefault("AICFO_DB_PATH", "ai_cfo.db"),
		Debug:  os.Getenv("DEBUG") == "true",
	}

	return cfg, nil
}

// Validate checks that all required fields are set. Each required entry is
// a path like ["plaid", "clientId"].
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "plaid":
			switch path[1] {
			case "clientId":
				value = c.Plaid.ClientID
			case "secret":
				value = c.Plaid.Secret
			case "apiUrl":
				value = c.Plaid.APIURL
			}
		case "ledger":
			switch path[1] {
			case "clientId":
				value = c.Ledger.ClientID
			case "clientSecret":
				value = c.Ledger.ClientSecret
			case "redirectUri":
				value = c.Ledger.RedirectURI
			case "apiUrl":
				value = c.Ledger.APIURL
			}
		case "db":
			if path[1] == "path" {
				value = c.DBPath
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// HasPlaidCredentials reports whether the aggregator client can be constructed.
func (c *Config) HasPlaidCredentials() bool {
	return c.Plaid.ClientID != "" && c.Plaid.Secret != ""
}

func plaidBaseURL(env string) string {
	switch env {
	case "development":
		return "https://development.plaid.com"
	case "production":
		return "https://production.plaid.com"
	default:
		return "https://sandbox.plaid.com"
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
