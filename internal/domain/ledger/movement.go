package ledger

import (
	"fmt"
	"time"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Reason classifies why a movement happened
type Reason string

const (
	// ReasonPurchaseReceipt is goods arriving from an external supplier
	ReasonPurchaseReceipt Reason = "purchase_receipt"
	// ReasonJobUsage is stock consumed on a job or visit
	ReasonJobUsage Reason = "job_usage"
	// ReasonTransfer is stock moved between two locations
	ReasonTransfer Reason = "transfer"
	// ReasonAdjustment is a manual correction by an operator
	ReasonAdjustment Reason = "adjustment"
	// ReasonReversal negates a prior movement
	ReasonReversal Reason = "reversal"
)

// String returns the string representation of Reason
func (r Reason) String() string {
	return string(r)
}

// IsValid returns true if the reason is a known value
func (r Reason) IsValid() bool {
	switch r {
	case ReasonPurchaseReceipt, ReasonJobUsage, ReasonTransfer, ReasonAdjustment, ReasonReversal:
		return true
	}
	return false
}

// Reference identifies the business event that triggered a movement
type Reference struct {
	Type string
	ID   string
}

// IdempotencyKey derives the natural key that makes movement writes retryable:
// the same triggering event for the same item always maps to the same key.
func IdempotencyKey(ref Reference, itemID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", ref.Type, ref.ID, itemID)
}

// Movement is an immutable record of quantity moving into, out of, or between
// locations. A nil FromLocationID means an external source (e.g. a purchase
// receipt); a nil ToLocationID means an external sink (e.g. consumption).
// Corrections are made by appending a reversal movement, never by editing.
type Movement struct {
	shared.BaseEntity
	ItemID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_movement_item"`
	FromLocationID *uuid.UUID `gorm:"type:uuid;index:idx_movement_from"`
	ToLocationID   *uuid.UUID `gorm:"type:uuid;index:idx_movement_to"`
	Quantity       int64      `gorm:"not null"`
	Reason         Reason     `gorm:"type:varchar(30);not null;index:idx_movement_reason"`
	ReferenceType  string     `gorm:"type:varchar(50);not null;index:idx_movement_ref"`
	ReferenceID    string     `gorm:"type:varchar(100);not null;index:idx_movement_ref"`
	IdempotencyKey string     `gorm:"type:varchar(200);not null;uniqueIndex:idx_movement_idem"`
	PerformedBy    uuid.UUID  `gorm:"type:uuid;not null"`
	PerformedAt    time.Time  `gorm:"not null;index:idx_movement_performed"`
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "stock_movements"
}

// NewMovement creates a validated movement. Exactly one endpoint may be nil;
// both nil is rejected because such a movement would not touch any balance.
func NewMovement(
	itemID uuid.UUID,
	from, to *uuid.UUID,
	quantity int64,
	reason Reason,
	ref Reference,
	actor shared.Actor,
) (*Movement, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item ID cannot be empty")
	}
	if from == nil && to == nil {
		return nil, shared.NewDomainError("INVALID_ENDPOINTS", "Movement must have a source or a destination")
	}
	if from != nil && *from == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Source location ID cannot be empty")
	}
	if to != nil && *to == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Destination location ID cannot be empty")
	}
	if from != nil && to != nil && *from == *to {
		return nil, shared.NewDomainError("INVALID_ENDPOINTS", "Source and destination must differ")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Invalid movement reason")
	}
	if ref.Type == "" || ref.ID == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Reference type and ID are required")
	}

	return &Movement{
		BaseEntity:     shared.NewBaseEntity(),
		ItemID:         itemID,
		FromLocationID: from,
		ToLocationID:   to,
		Quantity:       quantity,
		Reason:         reason,
		ReferenceType:  ref.Type,
		ReferenceID:    ref.ID,
		IdempotencyKey: IdempotencyKey(ref, itemID),
		PerformedBy:    actor.ID,
		PerformedAt:    time.Now(),
	}, nil
}

// Reference returns the triggering business event reference
func (m *Movement) Reference() Reference {
	return Reference{Type: m.ReferenceType, ID: m.ReferenceID}
}

// IsReversal returns true if this movement negates a prior one
func (m *Movement) IsReversal() bool {
	return m.Reason == ReasonReversal
}

// SignedDelta returns the quantity change this movement applies to the given
// location: positive when the location receives, negative when it sends,
// zero when the movement does not touch it.
func (m *Movement) SignedDelta(locationID uuid.UUID) int64 {
	var delta int64
	if m.ToLocationID != nil && *m.ToLocationID == locationID {
		delta += m.Quantity
	}
	if m.FromLocationID != nil && *m.FromLocationID == locationID {
		delta -= m.Quantity
	}
	return delta
}

// Touches returns true if the movement affects the given (location, item) pair
func (m *Movement) Touches(locationID, itemID uuid.UUID) bool {
	if m.ItemID != itemID {
		return false
	}
	return m.SignedDelta(locationID) != 0
}
