package cmd

import (
	"fmt"
	"os"

	"ledger-reconciler/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var accountID int64

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "ledger-reconciler",
	Short: "Ledger Reconciliation Service",
	Long: `Ledger Reconciler audits the billing database for drift between each
account's cached credit balance and the sum of its ledger entries.

Modes:
  check    Scan accounts and report drift (read-only, default)
  explain  Replay one account's ledger with running sums
  repair   Write compensating reconciliation adjustments
  schema   Verify the billing schema the reconciler depends on`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Unmatched first arguments reach RunE instead of failing command lookup,
	// so an unknown mode can report itself without crashing the process.
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			fmt.Printf("Unknown mode %q. Valid modes: check, explain, repair, schema.\n", args[0])
			return nil
		}
		// No mode given: run the read-only drift check.
		return runCheck(cmd, args)
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Use the application's standard logger for error reporting
		// We default to console format to match user expectations (CLI tool)
		// We use "debug" level configuration to get ISO8601 timestamps (DevConfig) instead of Epoch (ProdConfig)
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			// Log the error with structured logger (Console encoding will make it pretty)
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().Int64Var(&accountID, "account", 0, "Restrict the run to one account ID (0 = all accounts)")
}
