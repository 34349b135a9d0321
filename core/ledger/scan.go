package ledger

import (
	"context"
	"fmt"
)

// driftQuery aggregates every account against its ledger in one pass. The
// LEFT JOIN keeps accounts without entries, and COALESCE pins their ledger
// sum to exactly 0 rather than NULL.
const driftQuery = `
SELECT a.id AS account_id, a.username AS username, a.credits AS balance,
       COALESCE(SUM(l.amount), 0) AS ledger_sum
FROM accounts a
LEFT JOIN ledger_entries l ON l.account_id = a.id
%s
GROUP BY a.id, a.username, a.credits`

// Scan computes the drift row for every account, or for a single account when
// accountID is positive. Results are ordered by |drift| descending with the
// account id as tiebreak. A filtered scan over a missing account yields an
// empty result, not an error; callers decide whether that matters.
//
// Read-only: Scan never writes.
func (s *Service) Scan(ctx context.Context, accountID int64) ([]AccountDrift, error) {
	var rows []AccountDrift

	tx := s.db.WithContext(ctx)
	var err error
	if accountID > 0 {
		err = tx.Raw(fmt.Sprintf(driftQuery, "WHERE a.id = ?"), accountID).Scan(&rows).Error
	} else {
		err = tx.Raw(fmt.Sprintf(driftQuery, "")).Scan(&rows).Error
	}
	if err != nil {
		return nil, fmt.Errorf("drift scan failed: %w", err)
	}

	for i := range rows {
		rows[i].Drift = Drift(rows[i].Balance, rows[i].LedgerSum)
	}
	SortByMagnitude(rows)

	return rows, nil
}
