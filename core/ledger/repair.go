package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repair result statuses.
const (
	// RepairApplied means a compensating entry was committed.
	RepairApplied = "applied"
	// RepairPlanned means a dry run computed the adjustment without writing.
	RepairPlanned = "planned"
	// RepairSkipped means the drift vanished between the scan and the
	// transaction (an external write beat us to consistency).
	RepairSkipped = "skipped"
	// RepairFailed means the account's transaction rolled back.
	RepairFailed = "failed"
)

// RepairOptions controls a repair run.
type RepairOptions struct {
	// DryRun reports the planned adjustments without opening a transaction.
	DryRun bool
	// Workers bounds concurrent per-account repairs. Values below 2 keep the
	// run strictly sequential. Each account still repairs in its own scoped
	// transaction regardless of worker count.
	Workers int
	// RunID, when set, is recorded in every adjustment description so the
	// entry can be traced back to this run's logs and audit report.
	RunID string
}

// RepairResult is the per-account outcome of a repair run. Balance and
// LedgerSum hold the values the adjustment was computed from: the scan
// snapshot for planned results, the in-transaction re-read otherwise.
type RepairResult struct {
	AccountID  int64  `json:"account_id"`
	Username   string `json:"username"`
	Balance    int64  `json:"balance"`
	LedgerSum  int64  `json:"ledger_sum"`
	Adjustment int64  `json:"adjustment"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// Repair selects every account with non-zero drift (or the one given account,
// when accountID is positive) using the same aggregation as Scan, and inserts
// one compensating reconciliation_adjustment entry per drifted account.
//
// The cached balance is the authoritative value of record: the ledger is
// adjusted to match it, never the reverse. Each account repairs inside its
// own transaction, which re-reads the balance and the ledger sum before
// computing the adjustment, since the scan snapshot may be stale by the time
// the transaction runs.
//
// Faults are isolated per account: one failed transaction rolls back alone,
// is reported in its result, and never blocks the remaining accounts. With no
// drifted accounts the run returns an empty result set and no error, which
// also makes Repair idempotent. Results keep the scan ordering.
func (s *Service) Repair(ctx context.Context, accountID int64, opts RepairOptions) ([]RepairResult, error) {
	rows, err := s.Scan(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to select drifted accounts: %w", err)
	}

	var drifted []AccountDrift
	for _, row := range rows {
		if row.Drift != 0 {
			drifted = append(drifted, row)
		}
	}
	if len(drifted) == 0 {
		return nil, nil
	}

	results := make([]RepairResult, len(drifted))

	if opts.DryRun {
		for i, row := range drifted {
			results[i] = RepairResult{
				AccountID:  row.AccountID,
				Username:   row.Username,
				Balance:    row.Balance,
				LedgerSum:  row.LedgerSum,
				Adjustment: row.Drift,
				Status:     RepairPlanned,
			}
		}
		return results, nil
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, row := range drifted {
		g.Go(func() error {
			// Per-account faults belong in the result, never abort the group.
			results[i] = s.repairAccount(gctx, row, opts.RunID)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// repairAccount runs one account's repair as a single atomic unit: re-read
// balance and ledger sum, compute the adjustment, insert the compensating
// entry. Commits on success, rolls back on any failure.
func (s *Service) repairAccount(ctx context.Context, row AccountDrift, runID string) RepairResult {
	result := RepairResult{
		AccountID: row.AccountID,
		Username:  row.Username,
		Balance:   row.Balance,
		LedgerSum: row.LedgerSum,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// External billing writes can land between the scan and this
		// transaction, so both sides are re-read here before computing the
		// adjustment. MySQL additionally locks the account row; SQLite
		// relies on transaction-level locking.
		q := tx
		if tx.Dialector.Name() == "mysql" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var acct Account
		if err := q.First(&acct, row.AccountID).Error; err != nil {
			return fmt.Errorf("failed to re-read account: %w", err)
		}

		var ledgerSum int64
		if err := tx.Raw(
			"SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE account_id = ?",
			row.AccountID,
		).Scan(&ledgerSum).Error; err != nil {
			return fmt.Errorf("failed to re-read ledger sum: %w", err)
		}

		result.Balance = acct.Credits
		result.LedgerSum = ledgerSum

		adjustment := Drift(acct.Credits, ledgerSum)
		if adjustment == 0 {
			result.Status = RepairSkipped
			return nil
		}

		entry := LedgerEntry{
			AccountID:   row.AccountID,
			Amount:      adjustment,
			Kind:        KindReconciliationAdjustment,
			Description: adjustmentDescription(acct.Credits, ledgerSum, adjustment, runID),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to insert adjustment: %w", err)
		}

		result.Adjustment = adjustment
		result.Status = RepairApplied
		return nil
	})
	if err != nil {
		result.Status = RepairFailed
		result.Error = err.Error()
		s.log.Error("account repair failed",
			zap.Int64("account_id", row.AccountID),
			zap.Error(err),
		)
		return result
	}

	s.log.Debug("account repaired",
		zap.Int64("account_id", row.AccountID),
		zap.Int64("adjustment", result.Adjustment),
		zap.String("status", result.Status),
	)
	return result
}

// adjustmentDescription records the computed delta on the compensating entry
// so the audit trail explains where the amount came from.
func adjustmentDescription(balance, ledgerSum, adjustment int64, runID string) string {
	desc := fmt.Sprintf("reconciliation: cached balance %d, ledger sum %d, delta %+d", balance, ledgerSum, adjustment)
	if runID != "" {
		desc += " (run " + runID + ")"
	}
	return desc
}
