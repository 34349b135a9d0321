package cmd

import (
	"errors"
	"fmt"
	"time"

	"ledger-reconciler/core/config"
	"ledger-reconciler/core/database"
	"ledger-reconciler/core/ledger"
	"ledger-reconciler/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// explainCmd represents the explain command
var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Replay one account's ledger with running sums",
	Long: `Walks a single account's ledger entries in the order they were written
and prints the running sum after each one, so the exact point where the
ledger diverges from the cached balance can be spotted.

Requires --account. Asking about an account that does not exist is answered
with a message, not a crash.`,
	RunE: runExplain,
}

func init() {
	RootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	if accountID <= 0 {
		return fmt.Errorf("explain requires --account <id>")
	}

	ctx := cmd.Context()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	svc := ledger.NewService(db, logg)

	logg.Info("Replaying account ledger...", zap.Int64("account_id", accountID))
	history, err := svc.Explain(ctx, accountID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			logg.Warn("Account not found", zap.Int64("account_id", accountID))
			fmt.Printf("Account %d does not exist.\n", accountID)
			return nil
		}
		return fmt.Errorf("failed to explain account: %w", err)
	}

	// Pretty Console Output
	fmt.Println("\n--- Ledger History ---")
	fmt.Printf("Account:        %d\n", history.Account.ID)
	fmt.Printf("Username:       %s\n", history.Account.Username)
	fmt.Printf("Cached Balance: %d\n", history.Account.Credits)
	fmt.Printf("Ledger Sum:     %d\n", history.LedgerSum)
	fmt.Println("----------------------")

	if len(history.Steps) == 0 {
		fmt.Println("No ledger entries recorded.")
	} else {
		for _, step := range history.Steps {
			e := step.Entry
			fmt.Printf("#%-8d %-20s %-26s %+10d => %d\n",
				e.ID, e.CreatedAt.UTC().Format(time.RFC3339), e.Kind, e.Amount, step.RunningSum)
			if e.Description != "" {
				fmt.Printf("          %s\n", e.Description)
			}
		}
	}
	fmt.Println("----------------------")

	statusColor := "\033[32m" // Green
	statusText := "RECONCILED"
	if history.Mismatch != 0 {
		statusColor = "\033[31m" // Red
		statusText = fmt.Sprintf("MISMATCH (%+d)", history.Mismatch)
	}
	resetColor := "\033[0m"

	fmt.Printf("Status:         %s%s%s\n", statusColor, statusText, resetColor)

	if history.Mismatch != 0 {
		fmt.Printf("\nRun 'repair --account %d' to write a compensating adjustment.\n", accountID)
	}

	logg.Info("Account ledger replayed",
		zap.Int64("account_id", accountID),
		zap.Int("entries", len(history.Steps)),
		zap.Int64("mismatch", history.Mismatch),
	)

	return nil
}
