package allocation

import (
	"context"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the interface for allocation persistence
type Repository interface {
	// FindByID finds an allocation by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Allocation, error)

	// FindByIDForUpdate finds an allocation by its ID under a row lock.
	// Concurrent consumption writes against the same allocation serialize
	// on this lock so the over-consumption cap is checked on a stable total.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Allocation, error)

	// FindByProject lists allocations for a project
	FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]Allocation, error)

	// FindByVisit lists allocations for a visit
	FindByVisit(ctx context.Context, visitID uuid.UUID, filter shared.Filter) ([]Allocation, error)

	// FindNeedingRelink lists allocations with unresolved catalog labels
	FindNeedingRelink(ctx context.Context, filter shared.Filter) ([]Allocation, error)

	// Save creates or updates an allocation
	Save(ctx context.Context, a *Allocation) error

	// Count counts allocations matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// ConsumptionRepository defines the interface for consumption persistence.
// Consumptions are append-only.
type ConsumptionRepository interface {
	// FindByID finds a consumption by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Consumption, error)

	// FindByAllocation lists consumptions drawn against an allocation
	FindByAllocation(ctx context.Context, allocationID uuid.UUID) ([]Consumption, error)

	// FindByProject lists consumptions for a project
	FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]Consumption, error)

	// SumByAllocation sums qty_consumed for an allocation
	SumByAllocation(ctx context.Context, allocationID uuid.UUID) (int64, error)

	// Create appends a consumption record
	Create(ctx context.Context, c *Consumption) error
}

// CatalogItem is the read-only projection of a catalog entry the tracker
// needs for labelling allocations
type CatalogItem struct {
	ID   uuid.UUID
	Name string
}

// CatalogResolver resolves item IDs against the catalog maintained by
// another subsystem. Lookups are read-only and best-effort: a failed
// resolution flags the allocation needs_relink, it never blocks creation,
// and it must never run while a balance lock is held.
type CatalogResolver interface {
	// Resolve returns the catalog entry for an item ID, or shared.ErrNotFound
	// when the item has no live catalog entry
	Resolve(ctx context.Context, itemID uuid.UUID) (*CatalogItem, error)
}

// RequirementRecorder is the external project-requirements collaborator.
// Relinking an allocation may optionally create a requirement line there.
type RequirementRecorder interface {
	// RecordRequirement creates a requirement line for a project and item
	RecordRequirement(ctx context.Context, projectID, itemID uuid.UUID, qty int64) error
}
