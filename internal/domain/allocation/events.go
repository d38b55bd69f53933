package allocation

import (
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeAllocation is the aggregate type for allocation events
const AggregateTypeAllocation = "Allocation"

// Event type constants
const (
	EventTypeAllocationCreated  = "AllocationCreated"
	EventTypeAllocationConsumed = "AllocationConsumed"
	EventTypeAllocationRelinked = "AllocationRelinked"
)

// AllocationCreatedEvent is raised when stock is reserved for a project/visit
type AllocationCreatedEvent struct {
	shared.BaseDomainEvent
	AllocationID uuid.UUID `json:"allocation_id"`
	Qty          int64     `json:"qty"`
	NeedsRelink  bool      `json:"needs_relink"`
}

// NewAllocationCreatedEvent creates a new AllocationCreatedEvent
func NewAllocationCreatedEvent(a *Allocation) *AllocationCreatedEvent {
	return &AllocationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationCreated, AggregateTypeAllocation, a.ID),
		AllocationID:    a.ID,
		Qty:             a.QtyAllocated,
		NeedsRelink:     a.NeedsRelink,
	}
}

// EventType returns the event type name
func (e *AllocationCreatedEvent) EventType() string {
	return EventTypeAllocationCreated
}

// AllocationConsumedEvent is raised when cumulative consumption reaches the
// allocated quantity
type AllocationConsumedEvent struct {
	shared.BaseDomainEvent
	AllocationID uuid.UUID `json:"allocation_id"`
	QtyAllocated int64     `json:"qty_allocated"`
}

// NewAllocationConsumedEvent creates a new AllocationConsumedEvent
func NewAllocationConsumedEvent(a *Allocation) *AllocationConsumedEvent {
	return &AllocationConsumedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationConsumed, AggregateTypeAllocation, a.ID),
		AllocationID:    a.ID,
		QtyAllocated:    a.QtyAllocated,
	}
}

// EventType returns the event type name
func (e *AllocationConsumedEvent) EventType() string {
	return EventTypeAllocationConsumed
}

// AllocationRelinkedEvent is raised when an admin repairs a catalog link
type AllocationRelinkedEvent struct {
	shared.BaseDomainEvent
	AllocationID uuid.UUID `json:"allocation_id"`
	ItemID       uuid.UUID `json:"item_id"`
	ItemName     string    `json:"item_name"`
}

// NewAllocationRelinkedEvent creates a new AllocationRelinkedEvent
func NewAllocationRelinkedEvent(a *Allocation, itemID uuid.UUID) *AllocationRelinkedEvent {
	return &AllocationRelinkedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationRelinked, AggregateTypeAllocation, a.ID),
		AllocationID:    a.ID,
		ItemID:          itemID,
		ItemName:        a.ItemName,
	}
}

// EventType returns the event type name
func (e *AllocationRelinkedEvent) EventType() string {
	return EventTypeAllocationRelinked
}
