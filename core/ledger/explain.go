package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// HistoryStep is one replayed ledger entry together with the running sum
// after applying it.
type HistoryStep struct {
	Entry      LedgerEntry `json:"entry"`
	RunningSum int64       `json:"running_sum"`
}

// History is the full replay of one account's ledger.
type History struct {
	Account   Account       `json:"account"`
	Steps     []HistoryStep `json:"steps"`
	LedgerSum int64         `json:"ledger_sum"`
	Mismatch  int64         `json:"mismatch"`
}

// Explain replays one account's ledger in chronological order and reports the
// mismatch between the cached balance and the replayed sum. Entries are
// ordered by creation time with the entry id as tiebreak, so the running sums
// are reproducible even when timestamps collide.
//
// Returns ErrAccountNotFound if the account does not exist. Read-only; purely
// diagnostic. On a consistent snapshot the mismatch equals the drift reported
// by Scan for the same account.
func (s *Service) Explain(ctx context.Context, accountID int64) (*History, error) {
	var acct Account
	if err := s.db.WithContext(ctx).First(&acct, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %d: %w", accountID, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to load account %d: %w", accountID, err)
	}

	var entries []LedgerEntry
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load ledger entries for account %d: %w", accountID, err)
	}

	history := &History{
		Account: acct,
		Steps:   make([]HistoryStep, 0, len(entries)),
	}

	var running int64
	for _, entry := range entries {
		running += entry.Amount
		history.Steps = append(history.Steps, HistoryStep{Entry: entry, RunningSum: running})
	}

	history.LedgerSum = running
	history.Mismatch = Drift(acct.Credits, running)

	return history, nil
}
