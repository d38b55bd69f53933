package ledger

import (
	"time"

	"github.com/fieldops/stockledger/internal/domain/ledger"
	"github.com/google/uuid"
)

// RecordMovementRequest represents a request to append a movement
type RecordMovementRequest struct {
	ItemID         uuid.UUID  `json:"item_id" binding:"required"`
	FromLocationID *uuid.UUID `json:"from_location_id"`
	ToLocationID   *uuid.UUID `json:"to_location_id"`
	Quantity       int64      `json:"quantity" binding:"required,gt=0"`
	Reason         string     `json:"reason" binding:"required"`
	ReferenceType  string     `json:"reference_type" binding:"required"`
	ReferenceID    string     `json:"reference_id" binding:"required"`
}

// MovementResponse represents a movement in API responses
type MovementResponse struct {
	ID             uuid.UUID  `json:"id"`
	ItemID         uuid.UUID  `json:"item_id"`
	FromLocationID *uuid.UUID `json:"from_location_id,omitempty"`
	ToLocationID   *uuid.UUID `json:"to_location_id,omitempty"`
	Quantity       int64      `json:"quantity"`
	Reason         string     `json:"reason"`
	ReferenceType  string     `json:"reference_type"`
	ReferenceID    string     `json:"reference_id"`
	PerformedBy    uuid.UUID  `json:"performed_by"`
	PerformedAt    time.Time  `json:"performed_at"`
}

// RecordMovementResponse carries the movement plus whether this call actually
// appended it or hit an earlier write with the same idempotency key
type RecordMovementResponse struct {
	Movement        MovementResponse `json:"movement"`
	AlreadyRecorded bool             `json:"already_recorded"`
}

// ReverseMovementResponse carries the reversal and flags reversals of reversals
type ReverseMovementResponse struct {
	Reversal           MovementResponse `json:"reversal"`
	OriginalID         uuid.UUID        `json:"original_id"`
	ReversalOfReversal bool             `json:"reversal_of_reversal"`
	AlreadyRecorded    bool             `json:"already_recorded"`
}

// BalanceResponse represents an on-hand balance in API responses
type BalanceResponse struct {
	LocationID     uuid.UUID  `json:"location_id"`
	ItemID         uuid.UUID  `json:"item_id"`
	Quantity       int64      `json:"quantity"`
	LastMovementID *uuid.UUID `json:"last_movement_id,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MovementListFilter represents filter options for movement history queries
type MovementListFilter struct {
	From     *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// BalanceListFilter represents filter options for balance listings
type BalanceListFilter struct {
	Page     int  `form:"page" binding:"omitempty,min=1"`
	PageSize int  `form:"page_size" binding:"omitempty,min=1,max=200"`
	NonZero  bool `form:"non_zero"`
}

// RecomputeResult reports one pair's recomputation outcome
type RecomputeResult struct {
	LocationID  uuid.UUID `json:"location_id"`
	ItemID      uuid.UUID `json:"item_id"`
	OldQuantity int64     `json:"old_quantity"`
	NewQuantity int64     `json:"new_quantity"`
	Drifted     bool      `json:"drifted"`
}

// ToMovementResponse converts a domain movement to its response form
func ToMovementResponse(m *ledger.Movement) MovementResponse {
	return MovementResponse{
		ID:             m.ID,
		ItemID:         m.ItemID,
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		Quantity:       m.Quantity,
		Reason:         m.Reason.String(),
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID,
		PerformedBy:    m.PerformedBy,
		PerformedAt:    m.PerformedAt,
	}
}

// ToMovementResponses converts a slice of domain movements
func ToMovementResponses(movements []ledger.Movement) []MovementResponse {
	responses := make([]MovementResponse, len(movements))
	for i := range movements {
		responses[i] = ToMovementResponse(&movements[i])
	}
	return responses
}

// ToBalanceResponse converts a domain balance to its response form
func ToBalanceResponse(b *ledger.QuantityBalance) BalanceResponse {
	return BalanceResponse{
		LocationID:     b.LocationID,
		ItemID:         b.ItemID,
		Quantity:       b.Quantity,
		LastMovementID: b.LastMovementID,
		UpdatedAt:      b.UpdatedAt,
	}
}

// ToBalanceResponses converts a slice of domain balances
func ToBalanceResponses(balances []ledger.QuantityBalance) []BalanceResponse {
	responses := make([]BalanceResponse, len(balances))
	for i := range balances {
		responses[i] = ToBalanceResponse(&balances[i])
	}
	return responses
}
