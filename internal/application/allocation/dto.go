package allocation

import (
	"time"

	"github.com/fieldops/stockledger/internal/domain/allocation"
	"github.com/google/uuid"
)

// CreateAllocationRequest represents a request to reserve stock for a
// project or visit
type CreateAllocationRequest struct {
	ProjectID        *uuid.UUID `json:"project_id"`
	VisitID          *uuid.UUID `json:"visit_id"`
	ItemID           *uuid.UUID `json:"item_id"`
	Qty              int64      `json:"qty" binding:"required,gt=0"`
	SourceLocationID *uuid.UUID `json:"source_location_id"`
}

// RecordConsumptionRequest represents a request to record actual usage.
// AllocationID is optional: ad-hoc usage without a reservation is allowed.
type RecordConsumptionRequest struct {
	AllocationID           *uuid.UUID `json:"allocation_id"`
	ProjectID              *uuid.UUID `json:"project_id"`
	VisitID                *uuid.UUID `json:"visit_id"`
	ItemID                 uuid.UUID  `json:"item_id" binding:"required"`
	Qty                    int64      `json:"qty" binding:"required,gt=0"`
	ConsumedFromLocationID *uuid.UUID `json:"consumed_from_location_id"`
}

// RelinkAllocationRequest represents a manual catalog-link repair
type RelinkAllocationRequest struct {
	ItemID            uuid.UUID `json:"item_id" binding:"required"`
	ItemName          string    `json:"item_name" binding:"required,min=1,max=200"`
	RecordRequirement bool      `json:"record_requirement"`
}

// AllocationResponse represents an allocation in API responses
type AllocationResponse struct {
	ID               uuid.UUID  `json:"id"`
	ProjectID        *uuid.UUID `json:"project_id,omitempty"`
	VisitID          *uuid.UUID `json:"visit_id,omitempty"`
	ItemID           *uuid.UUID `json:"item_id,omitempty"`
	ItemName         string     `json:"item_name"`
	QtyAllocated     int64      `json:"qty_allocated"`
	QtyConsumed      int64      `json:"qty_consumed"`
	QtyRemaining     int64      `json:"qty_remaining"`
	SourceLocationID *uuid.UUID `json:"source_location_id,omitempty"`
	Status           string     `json:"status"`
	NeedsRelink      bool       `json:"needs_relink"`
	LabelSource      string     `json:"label_source"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ConsumptionResponse represents a consumption record in API responses
type ConsumptionResponse struct {
	ID                     uuid.UUID  `json:"id"`
	AllocationID           *uuid.UUID `json:"allocation_id,omitempty"`
	ProjectID              *uuid.UUID `json:"project_id,omitempty"`
	VisitID                *uuid.UUID `json:"visit_id,omitempty"`
	ItemID                 uuid.UUID  `json:"item_id"`
	QtyConsumed            int64      `json:"qty_consumed"`
	ConsumedFromLocationID *uuid.UUID `json:"consumed_from_location_id,omitempty"`
	MovementID             *uuid.UUID `json:"movement_id,omitempty"`
	ConsumedBy             uuid.UUID  `json:"consumed_by"`
	ConsumedAt             time.Time  `json:"consumed_at"`
}

// AllocationListFilter represents filter options for allocation listings
type AllocationListFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// ToAllocationResponse converts a domain allocation with its cumulative
// consumed quantity to the response form
func ToAllocationResponse(a *allocation.Allocation, consumed int64) AllocationResponse {
	return AllocationResponse{
		ID:               a.ID,
		ProjectID:        a.ProjectID,
		VisitID:          a.VisitID,
		ItemID:           a.ItemID,
		ItemName:         a.ItemName,
		QtyAllocated:     a.QtyAllocated,
		QtyConsumed:      consumed,
		QtyRemaining:     a.Remaining(consumed),
		SourceLocationID: a.SourceLocationID,
		Status:           a.Status.String(),
		NeedsRelink:      a.NeedsRelink,
		LabelSource:      string(a.LabelSource),
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// ToConsumptionResponse converts a domain consumption to its response form
func ToConsumptionResponse(c *allocation.Consumption) ConsumptionResponse {
	return ConsumptionResponse{
		ID:                     c.ID,
		AllocationID:           c.AllocationID,
		ProjectID:              c.ProjectID,
		VisitID:                c.VisitID,
		ItemID:                 c.ItemID,
		QtyConsumed:            c.QtyConsumed,
		ConsumedFromLocationID: c.ConsumedFromLocationID,
		MovementID:             c.MovementID,
		ConsumedBy:             c.ConsumedBy,
		ConsumedAt:             c.ConsumedAt,
	}
}
