package ledger

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service runs the reconciliation engines against the billing store. All
// engines are read-only except Repair, whose only side effect is inserting
// reconciliation_adjustment rows.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewService creates a reconciliation service on top of an established
// database connection.
func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{
		db:  db,
		log: log,
	}
}
