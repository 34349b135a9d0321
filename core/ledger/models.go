package ledger

import "time"

// Entry kinds known to this tool. The type column is an open set written by
// the billing path; only KindReconciliationAdjustment is ever written here.
const (
	KindAddition                 = "addition"
	KindDeduction                = "deduction"
	KindReconciliationAdjustment = "reconciliation_adjustment"
)

// Account maps the accounts table. Credits is the cached spendable balance,
// created and mutated by external billing code. The reconciler reads it as
// the authoritative value of record and never writes it.
type Account struct {
	ID       int64  `gorm:"column:id;primaryKey" json:"id"`
	Username string `gorm:"column:username" json:"username"`
	Credits  int64  `gorm:"column:credits" json:"credits"`
}

// TableName overrides the table name.
func (Account) TableName() string {
	return "accounts"
}

// LedgerEntry maps the ledger_entries table: one append-only balance-changing
// event. Amount is signed (positive = credit, negative = debit). Entries are
// never updated or deleted by this tool; rows only disappear through the
// account cascade delete.
type LedgerEntry struct {
	ID          int64     `gorm:"column:id;primaryKey" json:"id"`
	AccountID   int64     `gorm:"column:account_id" json:"account_id"`
	Amount      int64     `gorm:"column:amount" json:"amount"`
	Kind        string    `gorm:"column:type" json:"type"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
