package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Carlavier/ai-cfo-mvp/pkg/config"
	"github.com/Carlavier/ai-cfo-mvp/pkg/plaid"
	"github.com/Carlavier/ai-cfo-mvp/pkg/qbo"
	"github.com/Carlavier/ai-cfo-mvp/pkg/reconcile"
	"github.com/Carlavier/ai-cfo-mvp/pkg/seed"
	"github.com/Carlavier/ai-cfo-mvp/pkg/store"
)

var (
	windowDays  int
	skipLedger  bool
	mappingFile string
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync [companyID]",
	Short: "Sync bank transactions into the ledger",
	Long: `Sync bank transactions from the aggregator into the ledger.

This command:
1. Fetches accounts and recent transactions from the aggregator
2. Persists them locally, skipping already-seen transactions
3. Maps categories, provisions ledger accounts and counterparties
4. Posts invoices, bills and journal entries in batches of 30
5. Records a sync log entry per run

Without a company ID every demo company is synced. When an integration
is unavailable the run degrades to deterministic mock seeding and exits
with code 1.

Example:
  banksync sync
  banksync sync 1 --window 30
  banksync sync --skip-ledger`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSync,
}

func init() {
	// Flags
	syncCmd.Flags().IntVar(&windowDays, "window", 30, "Transaction fetch window in days")
	syncCmd.Flags().BoolVar(&skipLedger, "skip-ledger", false, "Skip the ledger document pull")
	syncCmd.Flags().StringVar(&mappingFile, "mapping", filepath.Join("config", "category-mapping.yaml"), "Category mapping file")
}

func runSync(cmd *cobra.Command, args []string) {
	slog.Info("Starting sync", "window_days", windowDays)

	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"db", "path"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	// Open database
	slog.Debug("Opening database", "path", cfg.DBPath)
	conn, err := store.Open(cfg.DBPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	st := store.New(conn)
	exitOnError(st.SeedDemoCompanies(), "failed to seed demo companies")

	companies, err := selectCompanies(st, args)
	exitOnError(err, "failed to resolve companies")

	// Category mapping is optional; the built-in rules apply without it.
	mapper, err := reconcile.NewCategoryMapperFromFile(mappingFile)
	if err != nil {
		slog.Warn("Category mapping file not loaded, using defaults",
			"path", mappingFile, "error", err)
		mapper = reconcile.NewCategoryMapper()
	}

	seeder := seed.New(st, slog.Default())

	degraded := false
	for _, company := range companies {
		slog.Info("Syncing company", "company_id", company.ID, "name", company.Name)

		outcome := syncCompany(cmd.Context(), cfg, st, seeder, mapper, company)
		if outcome.Degraded {
			degraded = true
		}

		fmt.Printf("\n=== %s ===\n", company.Name)
		if outcome.Degraded {
			fmt.Printf("Mode:          degraded (mock seed)\n")
			fmt.Printf("Seeded:        %d records\n", outcome.Seeded)
		} else {
			fmt.Printf("Accounts:      %d\n", outcome.Accounts)
			fmt.Printf("Fetched:       %d\n", outcome.Fetched)
			fmt.Printf("Saved:         %d\n", outcome.Saved)
			fmt.Printf("Skipped:       %d\n", outcome.Skipped)
			fmt.Printf("Posted:        %d\n", outcome.Posted)
			if outcome.Faulted > 0 || outcome.FailedChunks > 0 {
				fmt.Printf("Faults:        %d (failed chunks: %d)\n", outcome.Faulted, outcome.FailedChunks)
			}
		}
		fmt.Println()
	}

	slog.Info("Sync completed", "companies", len(companies), "degraded", degraded)
	if degraded {
		os.Exit(1)
	}
}

// syncCompany runs the banking sync and the ledger pull for one company.
// Failures degrade to mock seeding inside the orchestrator, so a non-nil
// error here means the local store itself is broken.
func syncCompany(ctx context.Context, cfg *config.Config, st *store.Store, seeder *seed.Seeder, mapper *reconcile.CategoryMapper, company store.Company) *reconcile.Outcome {
	syncCtx := reconcile.SyncContext{CompanyID: company.ID}

	var source reconcile.TransactionSource
	if cfg.HasPlaidCredentials() {
		client, err := plaid.NewClient(plaid.ClientConfig{
			APIURL:   cfg.Plaid.APIURL,
			ClientID: cfg.Plaid.ClientID,
			Secret:   cfg.Plaid.Secret,
			Timeout:  30 * time.Second,
		})
		if err != nil {
			slog.Warn("Aggregator client unavailable", "error", err)
		} else {
			token, _, err := st.GetPlaidToken(company.ID)
			if err != nil {
				slog.Warn("Failed to read access token", "company_id", company.ID, "error", err)
			} else if token != "" {
				client.SetAccessToken(token)
				source = client
				syncCtx.PlaidAccessToken = token
			}
		}
	}

	var ledger reconcile.LedgerAPI
	tokens, err := st.GetQBTokens(company.ID)
	if err != nil {
		slog.Warn("Failed to read ledger tokens", "company_id", company.ID, "error", err)
	}
	if tokens != nil {
		qt := qbo.Tokens{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			RealmID:      tokens.RealmID,
		}
		if qt.Valid() {
			ledger = qbo.NewClient(qbo.ClientConfig{
				APIURL: cfg.Ledger.APIURL,
				Tokens: qt,
			})
		}
	}

	orch := reconcile.New(reconcile.Config{
		Store:      st,
		Source:     source,
		Ledger:     ledger,
		Seeder:     seeder,
		Mapper:     mapper,
		WindowDays: windowDays,
		Logger:     slog.Default(),
	})

	outcome, err := orch.RunBankingSync(ctx, syncCtx)
	exitOnError(err, "banking sync failed")

	if !skipLedger {
		ledgerOutcome, err := orch.RunLedgerPull(ctx, syncCtx)
		exitOnError(err, "ledger pull failed")
		if ledgerOutcome.Degraded {
			outcome.Degraded = true
			outcome.Seeded += ledgerOutcome.Seeded
		} else {
			outcome.Saved += ledgerOutcome.Saved
		}
	}

	return outcome
}

func selectCompanies(st *store.Store, args []string) ([]store.Company, error) {
	companies, err := st.ListCompanies()
	if err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return companies, nil
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid company ID %q: %w", args[0], err)
	}
	for _, c := range companies {
		if c.ID == id {
			return []store.Company{c}, nil
		}
	}
	return nil, fmt.Errorf("company %d not found", id)
}
