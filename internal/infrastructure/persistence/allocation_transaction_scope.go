package persistence

import (
	"context"

	allocationapp "github.com/fieldops/stockledger/internal/application/allocation"
	ledgerapp "github.com/fieldops/stockledger/internal/application/ledger"
	"github.com/fieldops/stockledger/internal/domain/allocation"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormAllocationTransactionScope implements the allocation TransactionScope
// using GORM transactions. The consumption row, its job_usage movement with
// the balance decrement, and the allocation status change commit or roll
// back as one unit.
type GormAllocationTransactionScope struct {
	db             *gorm.DB
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
}

// NewGormAllocationTransactionScope creates a new GormAllocationTransactionScope
func NewGormAllocationTransactionScope(db *gorm.DB, logger *zap.Logger) *GormAllocationTransactionScope {
	return &GormAllocationTransactionScope{db: db, logger: logger}
}

// SetEventPublisher sets the event publisher handed to transaction-scoped
// ledger writers
func (s *GormAllocationTransactionScope) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Execute runs fn inside a database transaction, handing it repositories and
// a ledger writer bound to the transaction connection
func (s *GormAllocationTransactionScope) Execute(ctx context.Context, fn func(repos allocationapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormAllocationTxRepositories{scope: s, tx: tx})
	})
}

// gormAllocationTxRepositories provides repositories bound to a transaction
type gormAllocationTxRepositories struct {
	scope *GormAllocationTransactionScope
	tx    *gorm.DB
}

func (r *gormAllocationTxRepositories) AllocationRepo() allocation.Repository {
	return NewGormAllocationRepository(r.tx)
}

func (r *gormAllocationTxRepositories) ConsumptionRepo() allocation.ConsumptionRepository {
	return NewGormConsumptionRepository(r.tx)
}

// StockWriter returns a ledger service whose repositories and inner
// transaction scope all ride the enclosing transaction, so the movement
// append rolls back with the consumption.
func (r *gormAllocationTxRepositories) StockWriter() allocationapp.StockWriter {
	ledgerService := ledgerapp.NewLedgerService(
		NewGormMovementRepository(r.tx),
		NewGormBalanceRepository(r.tx),
		NewGormTransactionScope(r.tx),
		r.scope.logger,
	)
	if r.scope.eventPublisher != nil {
		ledgerService.SetEventPublisher(r.scope.eventPublisher)
	}
	return ledgerService
}

var _ allocationapp.TransactionScope = (*GormAllocationTransactionScope)(nil)
