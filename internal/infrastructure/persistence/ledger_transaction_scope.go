package persistence

import (
	"context"

	ledgerapp "github.com/fieldops/stockledger/internal/application/ledger"
	"github.com/fieldops/stockledger/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements the ledger TransactionScope using GORM
// transactions. Every movement append and its balance updates commit or roll
// back as one unit.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside a database transaction, handing it repositories
// bound to the transaction connection
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos ledgerapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) MovementRepo() ledger.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

func (r *gormTransactionalRepositories) BalanceRepo() ledger.BalanceRepository {
	return NewGormBalanceRepository(r.tx)
}

var _ ledgerapp.TransactionScope = (*GormTransactionScope)(nil)
