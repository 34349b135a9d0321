package ledger

import "sort"

// Drift is the single definition of drift shared by the scanner, the
// explainer, and the repairer: the cached balance minus the ledger sum.
// Zero means the two representations agree. Integer arithmetic only.
func Drift(balance, ledgerSum int64) int64 {
	return balance - ledgerSum
}

// AccountDrift is one row of a drift scan.
type AccountDrift struct {
	AccountID int64  `gorm:"column:account_id" json:"account_id"`
	Username  string `gorm:"column:username" json:"username"`
	Balance   int64  `gorm:"column:balance" json:"balance"`
	LedgerSum int64  `gorm:"column:ledger_sum" json:"ledger_sum"`
	Drift     int64  `gorm:"-" json:"drift"`
}

// SortByMagnitude orders rows by |drift| descending so the worst offenders
// surface first, breaking ties by ascending account id so output is
// deterministic.
func SortByMagnitude(rows []AccountDrift) {
	sort.Slice(rows, func(i, j int) bool {
		di, dj := absInt64(rows[i].Drift), absInt64(rows[j].Drift)
		if di != dj {
			return di > dj
		}
		return rows[i].AccountID < rows[j].AccountID
	})
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
