package location

import (
	"context"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the interface for location persistence
type Repository interface {
	// FindByID finds a location by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Location, error)

	// FindByName finds a location by exact name (backfill natural key)
	FindByName(ctx context.Context, name string) (*Location, error)

	// FindByOwner finds a location by its owning-entity reference
	FindByOwner(ctx context.Context, ownerType, ownerID string) (*Location, error)

	// FindAll lists locations, optionally restricted to active ones
	FindAll(ctx context.Context, activeOnly bool, filter shared.Filter) ([]Location, error)

	// FindByKind lists locations of a kind
	FindByKind(ctx context.Context, kind Kind, activeOnly bool, filter shared.Filter) ([]Location, error)

	// CountActiveWarehouses counts active warehouse locations, excluding the
	// given ID when non-nil (for activation/edit checks)
	CountActiveWarehouses(ctx context.Context, excludeID *uuid.UUID) (int64, error)

	// Save creates or updates a location
	Save(ctx context.Context, l *Location) error

	// SaveWithVersion updates soft fields with an optimistic version check,
	// returning shared.ErrStaleWrite when the stored version has advanced
	SaveWithVersion(ctx context.Context, l *Location) error

	// Count counts locations matching the filter
	Count(ctx context.Context, activeOnly bool, filter shared.Filter) (int64, error)
}

// PurchaseLineRepository exposes the open purchase-order-line destinations
// the receiving workflow maintains. The engine only reads it for the
// deletability check; commercial terms stay out of scope.
type PurchaseLineRepository interface {
	// CountOpenByDestination counts open purchase-order lines destined for a location
	CountOpenByDestination(ctx context.Context, locationID uuid.UUID) (int64, error)
}
