package ledger

import (
	"context"
	"time"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Pair identifies one (location, item) combination touched by the ledger
type Pair struct {
	LocationID uuid.UUID
	ItemID     uuid.UUID
}

// MovementRepository defines the interface for movement persistence.
// Movements are append-only: there is no update or delete.
type MovementRepository interface {
	// FindByID finds a movement by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Movement, error)

	// FindByIdempotencyKey finds a movement by its natural idempotency key,
	// returning shared.ErrNotFound when no movement carries the key
	FindByIdempotencyKey(ctx context.Context, key string) (*Movement, error)

	// FindByReference finds all movements triggered by a business event
	FindByReference(ctx context.Context, ref Reference) ([]Movement, error)

	// FindByLocation finds movements touching a location (as source or destination)
	FindByLocation(ctx context.Context, locationID uuid.UUID, from, to *time.Time, filter shared.Filter) ([]Movement, error)

	// FindByItem finds movements for an item across locations
	FindByItem(ctx context.Context, itemID uuid.UUID, from, to *time.Time, filter shared.Filter) ([]Movement, error)

	// FindForPair returns every movement touching a (location, item) pair
	// ordered by performed_at then id, for deterministic replay
	FindForPair(ctx context.Context, locationID, itemID uuid.UUID) ([]Movement, error)

	// ListPairs returns the distinct (location, item) pairs with at least one
	// movement; locationFilter narrows to specific locations when non-empty
	ListPairs(ctx context.Context, locationFilter []uuid.UUID) ([]Pair, error)

	// Create appends a new movement
	Create(ctx context.Context, m *Movement) error

	// CountByLocation counts movements referencing a location as source or destination
	CountByLocation(ctx context.Context, locationID uuid.UUID) (int64, error)
}

// BalanceRepository defines the interface for quantity balance persistence
type BalanceRepository interface {
	// FindByPair finds the balance for a (location, item) pair,
	// returning shared.ErrNotFound when the pair was never touched
	FindByPair(ctx context.Context, locationID, itemID uuid.UUID) (*QuantityBalance, error)

	// FindByPairForUpdate locks the balance row for the current transaction
	// before returning it; concurrent writers to the same pair serialize here
	FindByPairForUpdate(ctx context.Context, locationID, itemID uuid.UUID) (*QuantityBalance, error)

	// GetOrCreateForUpdate returns the locked balance for the pair, creating
	// the row lazily on first touch
	GetOrCreateForUpdate(ctx context.Context, locationID, itemID uuid.UUID) (*QuantityBalance, error)

	// FindByLocation lists balances at a location
	FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]QuantityBalance, error)

	// FindByItem lists balances for an item across locations
	FindByItem(ctx context.Context, itemID uuid.UUID, filter shared.Filter) ([]QuantityBalance, error)

	// Save creates or updates a balance row
	Save(ctx context.Context, b *QuantityBalance) error

	// CountNonZeroByLocation counts balances with quantity > 0 at a location
	CountNonZeroByLocation(ctx context.Context, locationID uuid.UUID) (int64, error)

	// CountByLocation counts all balance rows at a location
	CountByLocation(ctx context.Context, locationID uuid.UUID) (int64, error)
}
