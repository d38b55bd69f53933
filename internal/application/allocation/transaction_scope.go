package allocation

import (
	"context"

	"github.com/fieldops/stockledger/internal/domain/allocation"
)

// TransactionScope provides transactional access to the allocation tracker's
// write surface. A consumption, its job_usage ledger movement, and the
// allocation status change commit or roll back as one unit.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the allocation repositories
// and the ledger write surface within a transaction. All of them share the
// same underlying transaction.
type TransactionalRepositories interface {
	// AllocationRepo returns the allocation repository scoped to the current transaction
	AllocationRepo() allocation.Repository
	// ConsumptionRepo returns the consumption repository scoped to the current transaction
	ConsumptionRepo() allocation.ConsumptionRepository
	// StockWriter returns a ledger writer scoped to the current transaction
	StockWriter() StockWriter
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing.
type NoOpTransactionScope struct {
	allocationRepo  allocation.Repository
	consumptionRepo allocation.ConsumptionRepository
	stockWriter     StockWriter
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories and ledger writer.
func NewNoOpTransactionScope(
	allocationRepo allocation.Repository,
	consumptionRepo allocation.ConsumptionRepository,
	stockWriter StockWriter,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		allocationRepo:  allocationRepo,
		consumptionRepo: consumptionRepo,
		stockWriter:     stockWriter,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// AllocationRepo returns the allocation repository.
func (s *NoOpTransactionScope) AllocationRepo() allocation.Repository {
	return s.allocationRepo
}

// ConsumptionRepo returns the consumption repository.
func (s *NoOpTransactionScope) ConsumptionRepo() allocation.ConsumptionRepository {
	return s.consumptionRepo
}

// StockWriter returns the ledger writer.
func (s *NoOpTransactionScope) StockWriter() StockWriter {
	return s.stockWriter
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
