package cmd

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Carlavier/ai-cfo-mvp/pkg/config"
	"github.com/Carlavier/ai-cfo-mvp/pkg/plaid"
	"github.com/Carlavier/ai-cfo-mvp/pkg/store"
)

var (
	institutionID string
	qbRealm       string
	qbAccess      string
	qbRefresh     string
)

// setupCmd represents the setup command.
var setupCmd = &cobra.Command{
	Use:   "setup [companyID]",
	Short: "Connect a company to the aggregator and the ledger",
	Long: `Connect a demo company to the banking aggregator sandbox and the
ledger API.

Without flags this lists the demo companies and their connection state.
With a company ID it bootstraps a sandbox access token via the
aggregator's public token exchange, and prints the OAuth URL to connect
the ledger. Ledger tokens obtained out of band can be stored with the
--qb-* flags.

Example:
  banksync setup
  banksync setup 1
  banksync setup 1 --institution ins_109508
  banksync setup 1 --qb-realm 1234 --qb-access <token> --qb-refresh <token>`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSetup,
}

func init() {
	// Flags
	setupCmd.Flags().StringVar(&institutionID, "institution", "ins_3", "Sandbox institution ID")
	setupCmd.Flags().StringVar(&qbRealm, "qb-realm", "", "Ledger realm (company) ID")
	setupCmd.Flags().StringVar(&qbAccess, "qb-access", "", "Ledger access token")
	setupCmd.Flags().StringVar(&qbRefresh, "qb-refresh", "", "Ledger refresh token")
}

func runSetup(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"db", "path"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	// Open database
	conn, err := store.Open(cfg.DBPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	st := store.New(conn)
	exitOnError(st.SeedDemoCompanies(), "failed to seed demo companies")

	if len(args) == 0 {
		listConnections(st)
		return
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	exitOnError(err, "invalid company ID")

	if qbRealm != "" || qbAccess != "" {
		storeLedgerTokens(st, id)
		return
	}

	connectSandbox(cmd, cfg, st, id)
	printLedgerConnectURL(cfg)
}

func listConnections(st *store.Store) {
	companies, err := st.ListCompanies()
	exitOnError(err, "failed to list companies")

	fmt.Println("\n=== Companies ===")
	for _, c := range companies {
		plaidState := "not connected"
		if token, _, err := st.GetPlaidToken(c.ID); err == nil && token != "" {
			plaidState = "connected"
		}
		qbState := "not connected"
		if tokens, err := st.GetQBTokens(c.ID); err == nil && tokens != nil {
			qbState = "connected (realm " + tokens.RealmID + ")"
		}
		fmt.Printf("%d. %s (%s)\n", c.ID, c.Name, c.Industry)
		fmt.Printf("   aggregator: %s\n", plaidState)
		fmt.Printf("   ledger:     %s\n", qbState)
	}
	fmt.Println()
}

// connectSandbox walks the aggregator's sandbox token flow: create a
// public token for a test institution, exchange it, store the result.
func connectSandbox(cmd *cobra.Command, cfg *config.Config, st *store.Store, companyID int64) {
	if !cfg.HasPlaidCredentials() {
		fmt.Println("Aggregator credentials not set (PLAID_CLIENT_ID, PLAID_SECRET); skipping sandbox connect")
		return
	}

	client, err := plaid.NewClient(plaid.ClientConfig{
		APIURL:   cfg.Plaid.APIURL,
		ClientID: cfg.Plaid.ClientID,
		Secret:   cfg.Plaid.Secret,
		Timeout:  30 * time.Second,
	})
	exitOnError(err, "failed to create aggregator client")

	slog.Info("Creating sandbox public token", "institution", institutionID)
	publicToken, err := client.CreateSandboxPublicToken(cmd.Context(), institutionID)
	exitOnError(err, "failed to create sandbox public token")

	accessToken, itemID, err := client.ExchangePublicToken(cmd.Context(), publicToken)
	exitOnError(err, "failed to exchange public token")

	exitOnError(st.SetPlaidToken(companyID, accessToken, itemID), "failed to store access token")
	fmt.Printf("Company %d connected to sandbox institution %s\n", companyID, institutionID)
}

func storeLedgerTokens(st *store.Store, companyID int64) {
	if qbRealm == "" || qbAccess == "" {
		exitOnError(fmt.Errorf("both --qb-realm and --qb-access are required"), "invalid ledger tokens")
	}
	exitOnError(st.SetQBTokens(companyID, store.QBTokens{
		AccessToken:  qbAccess,
		RefreshToken: qbRefresh,
		RealmID:      qbRealm,
	}), "failed to store ledger tokens")
	fmt.Printf("Ledger tokens stored for company %d (realm %s)\n", companyID, qbRealm)
}

func printLedgerConnectURL(cfg *config.Config) {
	if cfg.Ledger.ClientID == "" || cfg.Ledger.RedirectURI == "" {
		fmt.Println("Ledger credentials not set (QB_CLIENT_ID, QB_CLIENT_REDIRECT_URL); skipping OAuth URL")
		return
	}

	q := url.Values{}
	q.Set("client_id", cfg.Ledger.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", "com.intuit.quickbooks.accounting")
	q.Set("redirect_uri", cfg.Ledger.RedirectURI)
	q.Set("state", "banksync")

	fmt.Println("\nTo connect the ledger, open:")
	fmt.Printf("https://appcenter.intuit.com/connect/oauth2?%s\n", q.Encode())
	fmt.Println("then store the returned tokens with: banksync setup <companyID> --qb-realm ... --qb-access ... --qb-refresh ...")
}
