package receipt

import (
	"strings"
	"time"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Status represents the receipt lifecycle state
type Status string

const (
	// StatusOpen means goods arrived but the leg is not yet closed out
	StatusOpen Status = "open"
	// StatusCleared means the delivery leg was closed out exactly once
	StatusCleared Status = "cleared"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Receipt acknowledges that goods arrived at a delivery point, tied to a
// delivery-stop confirmation. Creation is idempotent by confirmation
// reference and the open→cleared transition happens exactly once; clearing
// an already-cleared receipt is a no-op, not an error.
type Receipt struct {
	shared.BaseEntity
	ConfirmationRef string     `gorm:"type:varchar(150);not null;uniqueIndex:idx_receipt_confirmation"`
	DeliveryRunRef  string     `gorm:"type:varchar(150);index:idx_receipt_run"`
	ProjectID       *uuid.UUID `gorm:"type:uuid;index:idx_receipt_project"`
	Status          Status     `gorm:"type:varchar(20);not null;index:idx_receipt_status"`
	ReceivedAt      time.Time  `gorm:"not null"`
	ClearedAt       *time.Time
	ClearedBy       *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (Receipt) TableName() string {
	return "receipts"
}

// NewReceipt creates an open receipt for a delivery-stop confirmation
func NewReceipt(confirmationRef, deliveryRunRef string, projectID *uuid.UUID) (*Receipt, error) {
	if strings.TrimSpace(confirmationRef) == "" {
		return nil, shared.NewDomainError("INVALID_CONFIRMATION", "Confirmation reference cannot be empty")
	}
	return &Receipt{
		BaseEntity:      shared.NewBaseEntity(),
		ConfirmationRef: strings.TrimSpace(confirmationRef),
		DeliveryRunRef:  strings.TrimSpace(deliveryRunRef),
		ProjectID:       projectID,
		Status:          StatusOpen,
		ReceivedAt:      time.Now(),
	}, nil
}

// IsCleared returns true once the receipt has been closed out
func (r *Receipt) IsCleared() bool {
	return r.Status == StatusCleared
}

// Clear closes the receipt out. Returns false when it was already cleared,
// in which case nothing changes (idempotent retry).
func (r *Receipt) Clear(actor shared.Actor) bool {
	if r.IsCleared() {
		return false
	}
	now := time.Now()
	r.Status = StatusCleared
	r.ClearedAt = &now
	actorID := actor.ID
	r.ClearedBy = &actorID
	r.UpdatedAt = now
	return true
}
