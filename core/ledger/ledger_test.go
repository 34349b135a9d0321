package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite DB carrying the billing schema the
// reconciler consumes. Production gets this schema from an external migration
// step, so tests create it by hand instead of auto-migrating the models.
func setupTestDB(t *testing.T, dbName string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// Single connection keeps SQLite writers serialized, matching database.Connect.
	sqlDB.SetMaxOpenConns(1)

	err = db.Exec(`CREATE TABLE accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username VARCHAR(255) NOT NULL,
		credits INTEGER NOT NULL DEFAULT 0
	)`).Error
	if err != nil {
		t.Fatalf("failed to create accounts table: %v", err)
	}

	err = db.Exec(`CREATE TABLE ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		amount INTEGER NOT NULL,
		type VARCHAR(64) NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL
	)`).Error
	if err != nil {
		t.Fatalf("failed to create ledger_entries table: %v", err)
	}

	err = db.Exec(`CREATE INDEX idx_ledger_entries_account_id ON ledger_entries(account_id)`).Error
	if err != nil {
		t.Fatalf("failed to create ledger_entries index: %v", err)
	}

	return db
}

// setupMockDB returns a gorm DB backed by sqlmock for injecting store faults
// SQLite cannot produce realistically.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func newTestService(db *gorm.DB) *Service {
	return NewService(db, zap.NewNop())
}

func seedAccount(t *testing.T, db *gorm.DB, username string, credits int64) int64 {
	t.Helper()

	acct := Account{Username: username, Credits: credits}
	if err := db.Create(&acct).Error; err != nil {
		t.Fatalf("failed to seed account %s: %v", username, err)
	}
	return acct.ID
}

func seedEntry(t *testing.T, db *gorm.DB, accountID, amount int64, kind string, createdAt time.Time) int64 {
	t.Helper()

	entry := LedgerEntry{
		AccountID:   accountID,
		Amount:      amount,
		Kind:        kind,
		Description: "seeded by test",
		CreatedAt:   createdAt,
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("failed to seed entry for account %d: %v", accountID, err)
	}
	return entry.ID
}

func countAdjustments(t *testing.T, db *gorm.DB, accountID int64) int64 {
	t.Helper()

	var count int64
	q := db.Model(&LedgerEntry{}).Where("type = ?", KindReconciliationAdjustment)
	if accountID > 0 {
		q = q.Where("account_id = ?", accountID)
	}
	if err := q.Count(&count).Error; err != nil {
		t.Fatalf("failed to count adjustments: %v", err)
	}
	return count
}
