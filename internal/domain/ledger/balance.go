package ledger

import (
	"time"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// QuantityBalance is the materialized on-hand quantity of an item at a
// location. It is a cache: the authoritative value is always the signed sum
// of movements touching the pair, and recomputation must converge to it.
// Created lazily on the first movement touching the pair; kept at zero
// rather than deleted while movements reference it.
type QuantityBalance struct {
	shared.BaseEntity
	LocationID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_balance_pair,priority:1"`
	ItemID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_balance_pair,priority:2"`
	Quantity       int64      `gorm:"not null;default:0"`
	LastMovementID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (QuantityBalance) TableName() string {
	return "quantity_balances"
}

// NewQuantityBalance creates an empty balance for a (location, item) pair
func NewQuantityBalance(locationID, itemID uuid.UUID) (*QuantityBalance, error) {
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item ID cannot be empty")
	}
	return &QuantityBalance{
		BaseEntity: shared.NewBaseEntity(),
		LocationID: locationID,
		ItemID:     itemID,
		Quantity:   0,
	}, nil
}

// CanDeduct returns true if the balance can give up the requested quantity
func (b *QuantityBalance) CanDeduct(quantity int64) bool {
	return b.Quantity >= quantity
}

// Apply applies the movement's signed delta for this balance's location.
// It refuses any delta that would drive the quantity negative and refuses
// re-applying the movement recorded as the last one (idempotence guard).
func (b *QuantityBalance) Apply(m *Movement) error {
	if !m.Touches(b.LocationID, b.ItemID) {
		return shared.NewDomainError("INVALID_MOVEMENT", "Movement does not touch this balance")
	}
	if b.LastMovementID != nil && *b.LastMovementID == m.ID {
		return shared.NewDomainError("ALREADY_APPLIED", "Movement already applied to this balance")
	}
	delta := m.SignedDelta(b.LocationID)
	if b.Quantity+delta < 0 {
		return shared.ErrInsufficientStock
	}
	b.Quantity += delta
	id := m.ID
	b.LastMovementID = &id
	b.UpdatedAt = time.Now()
	return nil
}

// Overwrite replaces the cached quantity with a recomputed authoritative
// value. Used by reconciliation only.
func (b *QuantityBalance) Overwrite(quantity int64, lastMovementID *uuid.UUID) {
	b.Quantity = quantity
	b.LastMovementID = lastMovementID
	b.UpdatedAt = time.Now()
}

// ReplayQuantity computes the balance for the pair from scratch by summing
// signed deltas of movements in performed order. This is the authority the
// cache must agree with.
func ReplayQuantity(locationID uuid.UUID, movements []Movement) int64 {
	var total int64
	for i := range movements {
		total += movements[i].SignedDelta(locationID)
	}
	return total
}
