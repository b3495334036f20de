package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Carlavier/ai-cfo-mvp/pkg/config"
	"github.com/Carlavier/ai-cfo-mvp/pkg/store"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display sync statistics",
	Long: `Display statistics about synced accounts, transactions and documents.

Shows:
- Total number of bank accounts and transactions
- Total number of invoices and bills
- Total number of sync runs
- Last sync timestamp

Example:
  banksync stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"db", "path"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	// Open database connection
	slog.Debug("Opening database", "path", cfg.DBPath)
	conn, err := store.Open(cfg.DBPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	st := store.New(conn)

	// Get statistics
	stats, err := st.GetStats()
	exitOnError(err, "failed to get statistics")

	// Display statistics
	fmt.Println("\n=== Sync Statistics ===")
	fmt.Printf("Bank accounts:     %d\n", stats.Accounts)
	fmt.Printf("Transactions:      %d\n", stats.Transactions)
	fmt.Printf("Invoices:          %d\n", stats.Invoices)
	fmt.Printf("Bills:             %d\n", stats.Bills)
	fmt.Printf("Sync runs:         %d\n", stats.SyncRuns)

	if stats.LastSync.Valid {
		fmt.Printf("Last sync:         %s\n", stats.LastSync.String)
	} else {
		fmt.Printf("Last sync:         (never)\n")
	}

	fmt.Println()

	slog.Info("Statistics displayed successfully")
}
