// Package ledger implements the reconciliation engine for the credit billing
// model: every account carries a cached spendable balance (accounts.credits)
// and an independent append-only record of every balance-changing event
// (ledger_entries). Because unrelated code paths mutate the balance directly,
// the two representations drift apart under bugs, partial failures, and
// concurrent writes. This package detects that drift, explains it, and
// repairs it.
//
// # Drift
//
// Drift is defined once, as a pure function: the cached balance minus the sum
// of the account's entry amounts (0 for an empty ledger). Every engine
// computes drift through that one definition and only differs in how it
// fetches the inputs.
//
// # Engines
//
// 1. Scan: one aggregation over all accounts (or a single account), returning
// per-account balance, ledger sum, and drift, ordered worst-first.
//
// 2. Explain: replays one account's ledger in chronological order (entry id
// breaks timestamp ties) with running sums, ending in the mismatch against
// the cached balance. Diagnostic only.
//
// 3. Repair: for each drifted account, inserts one compensating
// reconciliation_adjustment entry inside a per-account transaction that
// re-reads balance and ledger sum first, so a stale scan snapshot can never
// produce a wrong adjustment. Faults are isolated per account.
//
// # Direction of repair
//
// The cached balance is treated as the authoritative value of record: repair
// adjusts the ledger to match the balance, never the reverse. This inverts
// the usual accounting convention of ledger-as-truth and is intentional: the
// balance is what the billing path actually spends from, so it is the number
// the rest of the system already trusts. Existing entries and the balance
// itself are never modified; the only write this package performs is the
// insert of new adjustment entries.
//
// # Usage
//
//	svc := ledger.NewService(db, log)
//
//	rows, err := svc.Scan(ctx, 0)                  // all accounts
//	history, err := svc.Explain(ctx, accountID)    // one account, replayed
//	results, err := svc.Repair(ctx, 0, ledger.RepairOptions{RunID: runID})
package ledger
