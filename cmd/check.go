package cmd

import (
	"context"
	"fmt"
	"time"

	"ledger-reconciler/core/config"
	"ledger-reconciler/core/database"
	"ledger-reconciler/core/ledger"
	"ledger-reconciler/core/logger"
	"ledger-reconciler/core/report"
	"ledger-reconciler/core/storage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Shared by check and repair
	jsonReport    bool
	archiveReport bool
)

// checkCmd represents the check command (the default mode)
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Scan accounts for balance drift (read-only)",
	Long: `Compares every account's cached credit balance against the sum of its
ledger entries and reports the accounts that disagree, worst drift first.
Accounts without ledger entries count as a ledger sum of 0.

The scan never writes. A run that finds drift still exits cleanly; drift is
a finding, not a failure.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&jsonReport, "json", false, "Save the full scan as a JSON report")
	checkCmd.Flags().BoolVar(&archiveReport, "archive", false, "Upload the JSON report to object storage")

	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	runID := uuid.NewString()
	logg = logger.WithRunID(logg, runID)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	svc := ledger.NewService(db, logg)

	logg.Info("Scanning accounts for drift...")
	rows, err := svc.Scan(ctx, accountID)
	if err != nil {
		return fmt.Errorf("drift check failed: %w", err)
	}

	drifted := 0
	for _, row := range rows {
		if row.Drift != 0 {
			drifted++
		}
	}

	if err := emitReport(ctx, cfg, logg, "check", runID, rows); err != nil {
		return err
	}

	executionTime := time.Since(startTime)

	// Always display metrics
	fmt.Println("\n=== Ledger Drift Report ===")
	fmt.Printf("Accounts Checked: %d\n", len(rows))
	fmt.Printf("Accounts Drifted: %d\n", drifted)
	fmt.Printf("Execution Time: %s\n", executionTime.String())

	if drifted > 0 {
		fmt.Println("---------------------------")
		for _, row := range rows {
			if row.Drift == 0 {
				continue
			}
			fmt.Printf("#%-8d %-20s balance=%-12d ledger=%-12d drift=%+d\n",
				row.AccountID, row.Username, row.Balance, row.LedgerSum, row.Drift)
		}
		fmt.Println("---------------------------")
		fmt.Println("Run 'repair' to write compensating adjustments.")
	}

	logg.Info("Drift check completed",
		zap.Int("accounts", len(rows)),
		zap.Int("drifted", drifted),
		zap.Duration("execution_time", executionTime),
	)

	return nil
}

// emitReport saves the run's JSON report locally and/or archives it to object
// storage, honoring the --json and --archive flags. The local file and the
// archived object share one name so they can be correlated later.
func emitReport(ctx context.Context, cfg *config.Config, logg *zap.Logger, mode, runID string, results any) error {
	if !jsonReport && !archiveReport {
		return nil
	}

	name := report.Filename(mode)
	doc := report.NewDocument(mode, runID, results)

	if jsonReport {
		path, err := report.Write(cfg.Report.Dir, name, doc)
		if err != nil {
			return fmt.Errorf("failed to save JSON report: %w", err)
		}
		logg.Info("Detailed JSON report saved", zap.String("file", path))
	}

	if archiveReport {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		if err := report.Archive(ctx, client, cfg.Storage.Bucket, name, doc); err != nil {
			return fmt.Errorf("failed to archive report: %w", err)
		}
		logg.Info("Report archived", zap.String("bucket", cfg.Storage.Bucket), zap.String("object", name))
	}

	return nil
}
