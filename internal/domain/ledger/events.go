package ledger

import (
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregateTypeMovement = "Movement"
	AggregateTypeBalance  = "QuantityBalance"
)

// Event type constants
const (
	EventTypeMovementRecorded = "MovementRecorded"
	EventTypeMovementReversed = "MovementReversed"
	EventTypeBalanceCorrected = "BalanceCorrected"
)

// MovementRecordedEvent is raised when a movement is appended to the ledger
type MovementRecordedEvent struct {
	shared.BaseDomainEvent
	MovementID     uuid.UUID  `json:"movement_id"`
	ItemID         uuid.UUID  `json:"item_id"`
	FromLocationID *uuid.UUID `json:"from_location_id,omitempty"`
	ToLocationID   *uuid.UUID `json:"to_location_id,omitempty"`
	Quantity       int64      `json:"quantity"`
	Reason         string     `json:"reason"`
	ReferenceType  string     `json:"reference_type"`
	ReferenceID    string     `json:"reference_id"`
}

// NewMovementRecordedEvent creates a new MovementRecordedEvent
func NewMovementRecordedEvent(m *Movement) *MovementRecordedEvent {
	return &MovementRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementRecorded, AggregateTypeMovement, m.ID),
		MovementID:      m.ID,
		ItemID:          m.ItemID,
		FromLocationID:  m.FromLocationID,
		ToLocationID:    m.ToLocationID,
		Quantity:        m.Quantity,
		Reason:          m.Reason.String(),
		ReferenceType:   m.ReferenceType,
		ReferenceID:     m.ReferenceID,
	}
}

// EventType returns the event type name
func (e *MovementRecordedEvent) EventType() string {
	return EventTypeMovementRecorded
}

// MovementReversedEvent is raised when a reversal movement is appended.
// ReversalOfReversal marks the case where the original movement was itself
// a reversal; the caller flags it for audit review, the ledger never blocks it.
type MovementReversedEvent struct {
	shared.BaseDomainEvent
	OriginalMovementID uuid.UUID `json:"original_movement_id"`
	ReversalMovementID uuid.UUID `json:"reversal_movement_id"`
	ItemID             uuid.UUID `json:"item_id"`
	Quantity           int64     `json:"quantity"`
	ReversalOfReversal bool      `json:"reversal_of_reversal"`
}

// NewMovementReversedEvent creates a new MovementReversedEvent
func NewMovementReversedEvent(original, reversal *Movement) *MovementReversedEvent {
	return &MovementReversedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeMovementReversed, AggregateTypeMovement, reversal.ID),
		OriginalMovementID: original.ID,
		ReversalMovementID: reversal.ID,
		ItemID:             original.ItemID,
		Quantity:           original.Quantity,
		ReversalOfReversal: original.IsReversal(),
	}
}

// EventType returns the event type name
func (e *MovementReversedEvent) EventType() string {
	return EventTypeMovementReversed
}

// BalanceCorrectedEvent is raised when reconciliation overwrites a drifted
// cached balance with the recomputed authoritative value
type BalanceCorrectedEvent struct {
	shared.BaseDomainEvent
	LocationID  uuid.UUID `json:"location_id"`
	ItemID      uuid.UUID `json:"item_id"`
	OldQuantity int64     `json:"old_quantity"`
	NewQuantity int64     `json:"new_quantity"`
}

// NewBalanceCorrectedEvent creates a new BalanceCorrectedEvent
func NewBalanceCorrectedEvent(b *QuantityBalance, oldQuantity int64) *BalanceCorrectedEvent {
	return &BalanceCorrectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBalanceCorrected, AggregateTypeBalance, b.ID),
		LocationID:      b.LocationID,
		ItemID:          b.ItemID,
		OldQuantity:     oldQuantity,
		NewQuantity:     b.Quantity,
	}
}

// EventType returns the event type name
func (e *BalanceCorrectedEvent) EventType() string {
	return EventTypeBalanceCorrected
}
