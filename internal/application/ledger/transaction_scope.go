package ledger

import (
	"context"

	"github.com/fieldops/stockledger/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories within
// a transaction. Both repositories share the same underlying transaction, so
// appending a movement and updating the affected balance rows either all
// happen or none do.
type TransactionalRepositories interface {
	// MovementRepo returns the movement repository scoped to the current transaction
	MovementRepo() ledger.MovementRepository
	// BalanceRepo returns the balance repository scoped to the current transaction
	BalanceRepo() ledger.BalanceRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing.
type NoOpTransactionScope struct {
	movementRepo ledger.MovementRepository
	balanceRepo  ledger.BalanceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	movementRepo ledger.MovementRepository,
	balanceRepo ledger.BalanceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		movementRepo: movementRepo,
		balanceRepo:  balanceRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// MovementRepo returns the movement repository.
func (s *NoOpTransactionScope) MovementRepo() ledger.MovementRepository {
	return s.movementRepo
}

// BalanceRepo returns the balance repository.
func (s *NoOpTransactionScope) BalanceRepo() ledger.BalanceRepository {
	return s.balanceRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
