package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRepair_EliminatesDrift(t *testing.T) {
	db := setupTestDB(t, "repair_eliminates_drift")
	svc := newTestService(db)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	overpaid := seedAccount(t, db, "overpaid", 100)
	seedEntry(t, db, overpaid, 50, KindAddition, base)
	seedEntry(t, db, overpaid, 30, KindAddition, base.Add(time.Minute))

	results, err := svc.Repair(context.Background(), 0, RepairOptions{RunID: "run-a"})
	assert.NoError(t, err)
	assert.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, RepairApplied, res.Status)
	assert.Equal(t, int64(100), res.Balance)
	assert.Equal(t, int64(80), res.LedgerSum)
	assert.Equal(t, int64(20), res.Adjustment)

	// The compensating entry is tagged and self-describing.
	var entry LedgerEntry
	err = db.Where("account_id = ? AND type = ?", overpaid, KindReconciliationAdjustment).First(&entry).Error
	assert.NoError(t, err)
	assert.Equal(t, int64(20), entry.Amount)
	assert.Contains(t, entry.Description, "cached balance 100")
	assert.Contains(t, entry.Description, "ledger sum 80")
	assert.Contains(t, entry.Description, "delta +20")
	assert.Contains(t, entry.Description, "run-a")

	// Invariant: the ledger now matches the balance.
	rows, err := svc.Scan(context.Background(), overpaid)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].LedgerSum)
	assert.Equal(t, int64(0), rows[0].Drift)
}

func TestRepair_NothingToRepair(t *testing.T) {
	db := setupTestDB(t, "repair_nothing_to_repair")
	svc := newTestService(db)

	seedAccount(t, db, "settled", 0)

	results, err := svc.Repair(context.Background(), 0, RepairOptions{})
	assert.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int64(0), countAdjustments(t, db, 0))
}

func TestRepair_EmptyLedger(t *testing.T) {
	db := setupTestDB(t, "repair_empty_ledger")
	svc := newTestService(db)

	unrecorded := seedAccount(t, db, "unrecorded", 500)

	results, err := svc.Repair(context.Background(), 0, RepairOptions{})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, RepairApplied, results[0].Status)
	assert.Equal(t, int64(500), results[0].Adjustment)

	rows, err := svc.Scan(context.Background(), unrecorded)
	assert.NoError(t, err)
	assert.Equal(t, int64(500), rows[0].LedgerSum)
	assert.Equal(t, int64(0), rows[0].Drift)
}

func TestRepair_LedgerAheadOfBalance(t *testing.T) {
	db := setupTestDB(t, "repair_ledger_ahead")
	svc := newTestService(db)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Ledger says 80 but the balance is 50: the ledger is corrected downward,
	// the balance stays untouched.
	behind := seedAccount(t, db, "behind", 50)
	seedEntry(t, db, behind, 80, KindAddition, base)

	results, err := svc.Repair(context.Background(), 0, RepairOptions{})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int64(-30), results[0].Adjustment)

	var entry LedgerEntry
	err = db.Where("account_id = ? AND type = ?", behind, KindReconciliationAdjustment).First(&entry).Error
	assert.NoError(t, err)
	assert.Equal(t, int64(-30), entry.Amount)
	assert.Contains(t, entry.Description, "delta -30")

	var acct Account
	assert.NoError(t, db.First(&acct, behind).Error)
	assert.Equal(t, int64(50), acct.Credits, "repair must never touch the balance")

	rows, err := svc.Scan(context.Background(), behind)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), rows[0].Drift)
}

func TestRepair_Idempotent(t *testing.T) {
	db := setupTestDB(t, "repair_idempotent")
	svc := newTestService(db)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	overpaid := seedAccount(t, db, "overpaid", 100)
	seedEntry(t, db, overpaid, 50, KindAddition, base)
	seedEntry(t, db, overpaid, 30, KindAddition, base.Add(time.Minute))

	first, err := svc.Repair(context.Background(), 0, RepairOptions{})
	assert.NoError(t, err)
	assert.Len(t, first, 1)

	// With no intervening external writes the second run selects nothing.
	second, err := svc.Repair(context.Background(), 0, RepairOptions{})
	assert.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, int64(1), countAdjustments(t, db, overpaid))
}

func TestRepair_DryRun(t *testing.T) {
	db := setupTestDB(t, "repair_dry_run")
	svc := newTestService(db)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	overpaid := seedAccount(t, db, "overpaid", 100)
	seedEntry(t, db, overpaid, 50, KindAddition, base)
	seedEntry(t, db, overpaid, 30, KindAddition, base.Add(time.Minute))

	results, err := svc.Repair(context.Background(), 0, RepairOptions{DryRun: true})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, RepairPlanned, results[0].Status)
	assert.Equal(t, int64(20), results[0].Adjustment)

	// Nothing was written; the drift is still there.
	assert.Equal(t, int64(0), countAdjustments(t, db, 0))
	rows, err := svc.Scan(context.Background(), overpaid)
	assert.NoError(t, err)
	assert.Equal(t, int64(20), rows[0].Drift)
}

func TestRepair_ScopedToAccount(t *testing.T) {
	db := setupTestDB(t, "repair_scoped")
	svc := newTestService(db)

	target := seedAccount(t, db, "target", 100)
	bystander := seedAccount(t, db, "bystander", 40)

	results, err := svc.Repair(context.Background(), target, RepairOptions{})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, target, results[0].AccountID)

	rows, err := svc.Scan(context.Background(), 0)
	assert.NoError(t, err)
	for _, row := range rows {
		switch row.AccountID {
		case target:
			assert.Equal(t, int64(0), row.Drift)
		case bystander:
			assert.Equal(t, int64(40), row.Drift, "unscoped account must stay untouched")
		}
	}
}

func TestRepair_FaultIsolation(t *testing.T) {
	db := setupTestDB(t, "repair_fault_isolation")
	svc := newTestService(db)

	// Three drifted accounts; the middle one (by scan order) is rigged to
	// fail its insert. Drift magnitudes force the order worst, blocked, mild.
	worst := seedAccount(t, db, "worst", 100)
	blocked := seedAccount(t, db, "blocked", 50)
	mild := seedAccount(t, db, "mild", 10)

	err := db.Exec(fmt.Sprintf(`CREATE TRIGGER block_adjustments BEFORE INSERT ON ledger_entries
		WHEN NEW.account_id = %d AND NEW.type = 'reconciliation_adjustment'
		BEGIN SELECT RAISE(ABORT, 'simulated constraint violation'); END`, blocked)).Error
	assert.NoError(t, err)

	results, err := svc.Repair(context.Background(), 0, RepairOptions{})
	assert.NoError(t, err, "per-account faults must not fail the run")
	assert.Len(t, results, 3)

	assert.Equal(t, worst, results[0].AccountID)
	assert.Equal(t, RepairApplied, results[0].Status)

	assert.Equal(t, blocked, results[1].AccountID)
	assert.Equal(t, RepairFailed, results[1].Status)
	assert.Contains(t, results[1].Error, "simulated constraint violation")

	assert.Equal(t, mild, results[2].AccountID)
	assert.Equal(t, RepairApplied, results[2].Status, "accounts after a failure must still be attempted")

	// Committed repairs survived the other account's rollback.
	rows, err := svc.Scan(context.Background(), 0)
	assert.NoError(t, err)
	for _, row := range rows {
		switch row.AccountID {
		case blocked:
			assert.Equal(t, int64(50), row.Drift)
		default:
			assert.Equal(t, int64(0), row.Drift, "account %d", row.AccountID)
		}
	}
	assert.Equal(t, int64(0), countAdjustments(t, db, blocked))
}

func TestRepair_ParallelWorkers(t *testing.T) {
	db := setupTestDB(t, "repair_parallel_workers")
	svc := newTestService(db)

	ids := make([]int64, 0, 8)
	for i := 1; i <= 8; i++ {
		ids = append(ids, seedAccount(t, db, fmt.Sprintf("user-%d", i), int64(i*10)))
	}

	results, err := svc.Repair(context.Background(), 0, RepairOptions{Workers: 4})
	assert.NoError(t, err)
	assert.Len(t, results, 8)

	// Results keep the scan ordering (largest drift first) regardless of
	// which worker finished when.
	for i := 1; i < len(results); i++ {
		assert.Greater(t, absInt64(results[i-1].Adjustment), absInt64(results[i].Adjustment))
	}
	for _, res := range results {
		assert.Equal(t, RepairApplied, res.Status)
	}

	rows, err := svc.Scan(context.Background(), 0)
	assert.NoError(t, err)
	assert.Len(t, rows, len(ids))
	for _, row := range rows {
		assert.Equal(t, int64(0), row.Drift, "account %d", row.AccountID)
	}
}

func TestRepairAccount_SkipsWhenDriftVanished(t *testing.T) {
	db := setupTestDB(t, "repair_skip_stale")
	svc := newTestService(db)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	consistent := seedAccount(t, db, "consistent", 80)
	seedEntry(t, db, consistent, 80, KindAddition, base)

	// A stale scan row claims drift; the in-transaction re-read must veto it.
	stale := AccountDrift{AccountID: consistent, Username: "consistent", Balance: 80, LedgerSum: 60, Drift: 20}
	res := svc.repairAccount(context.Background(), stale, "")

	assert.Equal(t, RepairSkipped, res.Status)
	assert.Equal(t, int64(0), res.Adjustment)
	assert.Equal(t, int64(80), res.LedgerSum, "result must carry the re-read sum, not the stale one")
	assert.Equal(t, int64(0), countAdjustments(t, db, consistent))
}

func TestRepair_SelectionFault(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	mock.ExpectQuery("SELECT a.id AS account_id").
		WillReturnError(errors.New("driver: bad connection"))

	results, err := svc.Repair(context.Background(), 0, RepairOptions{})
	assert.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "failed to select drifted accounts")
}
