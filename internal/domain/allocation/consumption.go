package allocation

import (
	"time"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Consumption records actual draw-down of stock on a project or visit.
// The allocation link is optional: ad-hoc usage without a prior reservation
// is allowed, and the over-consumption cap applies only when a reservation
// exists. Each consumption with a resolvable source location produces exactly
// one job_usage movement in the ledger.
type Consumption struct {
	shared.BaseEntity
	AllocationID           *uuid.UUID `gorm:"type:uuid;index:idx_consumption_allocation"`
	ProjectID              *uuid.UUID `gorm:"type:uuid;index:idx_consumption_project"`
	VisitID                *uuid.UUID `gorm:"type:uuid;index:idx_consumption_visit"`
	ItemID                 uuid.UUID  `gorm:"type:uuid;not null;index:idx_consumption_item"`
	QtyConsumed            int64      `gorm:"not null"`
	ConsumedFromLocationID *uuid.UUID `gorm:"type:uuid"`
	MovementID             *uuid.UUID `gorm:"type:uuid"`
	ConsumedBy             uuid.UUID  `gorm:"type:uuid;not null"`
	ConsumedAt             time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Consumption) TableName() string {
	return "consumptions"
}

// NewConsumption creates a validated consumption record
func NewConsumption(
	allocationID, projectID, visitID *uuid.UUID,
	itemID uuid.UUID,
	qty int64,
	fromLocationID *uuid.UUID,
	actor shared.Actor,
) (*Consumption, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item ID cannot be empty")
	}
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Consumed quantity must be positive")
	}
	if allocationID == nil && projectID == nil && visitID == nil {
		return nil, shared.NewDomainError("INVALID_TARGET", "Consumption needs an allocation, project or visit")
	}
	return &Consumption{
		BaseEntity:             shared.NewBaseEntity(),
		AllocationID:           allocationID,
		ProjectID:              projectID,
		VisitID:                visitID,
		ItemID:                 itemID,
		QtyConsumed:            qty,
		ConsumedFromLocationID: fromLocationID,
		ConsumedBy:             actor.ID,
		ConsumedAt:             time.Now(),
	}, nil
}

// AttachMovement links the ledger movement written for this consumption
func (c *Consumption) AttachMovement(movementID uuid.UUID) {
	id := movementID
	c.MovementID = &id
	c.UpdatedAt = time.Now()
}
