package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"ledger-reconciler/core/config"
	"ledger-reconciler/core/database"
	"ledger-reconciler/core/ledger"
	"ledger-reconciler/core/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for repair command
	dryRunRepair bool
	yesConfirm   bool
	workerCount  int
)

// repairCmd writes compensating adjustments for drifted accounts.
var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Write compensating adjustments to drifted accounts",
	Long: `Repair selects every account whose ledger disagrees with its cached
balance and appends one reconciliation_adjustment entry per account, sized
so the ledger sums back to the balance. The cached balance is the value of
record; the ledger moves, the balance never does.

Each account is repaired in its own transaction that re-checks the drift
before writing, so a failure on one account never blocks the others and a
repeated run finds nothing left to do.

Examples:
  # Plan only (no adjustments are written)
  repair --dry-run

  # Repair all drifted accounts (with interactive confirmation)
  repair

  # Repair one account non-interactively
  repair --account 42 --yes

  # Repair with a saved and archived audit report
  repair --yes --json --archive`,
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().BoolVar(&dryRunRepair, "dry-run", false, "Plan adjustments without writing them")
	repairCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	repairCmd.Flags().IntVar(&workerCount, "workers", 1, "Number of accounts repaired in parallel (1 = sequential)")
	repairCmd.Flags().BoolVar(&jsonReport, "json", false, "Save the per-account outcomes as a JSON report")
	repairCmd.Flags().BoolVar(&archiveReport, "archive", false, "Upload the JSON report to object storage")

	RootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	startTime := time.Now()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	// Every adjustment written by this run carries the run ID in its
	// description, tying the ledger back to these logs and the audit report.
	runID := uuid.NewString()
	logg = logger.WithRunID(logg, runID)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	svc := ledger.NewService(db, logg)

	opts := ledger.RepairOptions{
		DryRun:  true, // Plan first; flipped to a real run after confirmation
		Workers: workerCount,
		RunID:   runID,
	}

	// Step 1: Plan (always runs)
	logg.Info("Planning repair...")
	plan, err := svc.Repair(ctx, accountID, opts)
	if err != nil {
		return fmt.Errorf("failed to plan repair: %w", err)
	}

	if len(plan) == 0 {
		logg.Info("All ledgers agree with their cached balances. Nothing to repair.")
		return nil
	}

	// Step 2: Print plan
	printRepairPlan(plan)

	// Step 3: Apply unless dry-run
	if dryRunRepair {
		logg.Info("Dry-run mode: No changes were made.")
		return emitReport(ctx, cfg, logg, "repair", runID, plan)
	}

	if !confirmDestructiveAction() {
		logg.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	opts.DryRun = false

	logg.Info("Applying adjustments...", zap.Int("accounts", len(plan)), zap.Int("workers", workerCount))
	results, err := svc.Repair(ctx, accountID, opts)
	if err != nil {
		return fmt.Errorf("failed to repair accounts: %w", err)
	}

	var applied, skipped, failed int
	for _, r := range results {
		switch r.Status {
		case ledger.RepairApplied:
			applied++
		case ledger.RepairSkipped:
			skipped++
		case ledger.RepairFailed:
			failed++
		}
	}

	if err := emitReport(ctx, cfg, logg, "repair", runID, results); err != nil {
		return err
	}

	executionTime := time.Since(startTime)

	// Always display metrics
	fmt.Println("\n=== Ledger Repair Summary ===")
	fmt.Printf("Adjustments Applied: %d\n", applied)
	fmt.Printf("Accounts Skipped: %d\n", skipped)
	fmt.Printf("Accounts Failed: %d\n", failed)
	fmt.Printf("Execution Time: %s\n", executionTime.String())
	fmt.Println("-----------------------------")

	for _, r := range results {
		statusColor := "\033[32m" // Green
		if r.Status == ledger.RepairFailed {
			statusColor = "\033[31m" // Red
		} else if r.Status == ledger.RepairSkipped {
			statusColor = "\033[33m" // Yellow
		}
		resetColor := "\033[0m"

		fmt.Printf("#%-8d %-20s adjustment=%-12s status=%s%s%s\n",
			r.AccountID, r.Username, fmt.Sprintf("%+d", r.Adjustment), statusColor, r.Status, resetColor)
		if r.Error != "" {
			fmt.Printf("          %s\n", r.Error)
		}
	}
	fmt.Println("-----------------------------")

	logg.Info("Repair completed",
		zap.Int("applied", applied),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Duration("execution_time", executionTime),
	)

	return nil
}

// printRepairPlan shows what a confirmed run would write, capped so a large
// fleet of drifted accounts does not flood the terminal.
func printRepairPlan(plan []ledger.RepairResult) {
	fmt.Println("\n=== Ledger Repair Plan ===")
	fmt.Printf("Accounts with drift: %d\n", len(plan))
	fmt.Println("--------------------------")

	maxShow := 10
	if len(plan) < maxShow {
		maxShow = len(plan)
	}
	for i := 0; i < maxShow; i++ {
		r := plan[i]
		fmt.Printf("#%-8d %-20s balance=%-12d ledger=%-12d adjustment=%+d\n",
			r.AccountID, r.Username, r.Balance, r.LedgerSum, r.Adjustment)
	}
	if len(plan) > maxShow {
		fmt.Printf("... and %d more\n", len(plan)-maxShow)
	}
	fmt.Println("--------------------------")
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
