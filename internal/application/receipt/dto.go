package receipt

import (
	"time"

	"github.com/fieldops/stockledger/internal/domain/receipt"
	"github.com/google/uuid"
)

// EnsureReceiptRequest represents a delivery-stop confirmation arriving,
// possibly more than once
type EnsureReceiptRequest struct {
	ConfirmationRef string     `json:"confirmation_ref" binding:"required,min=1,max=150"`
	DeliveryRunRef  string     `json:"delivery_run_ref" binding:"omitempty,max=150"`
	ProjectID       *uuid.UUID `json:"project_id"`
}

// ClearReceiptRequest represents a request to close out a delivery leg.
// ConfirmationRef is the direct link; DeliveryRunRef and ProjectID feed the
// fallback lookup when the direct link is missing.
type ClearReceiptRequest struct {
	ConfirmationRef string     `json:"confirmation_ref" binding:"omitempty,max=150"`
	DeliveryRunRef  string     `json:"delivery_run_ref" binding:"omitempty,max=150"`
	ProjectID       *uuid.UUID `json:"project_id"`
}

// ReceiptResponse represents a receipt in API responses
type ReceiptResponse struct {
	ID              uuid.UUID  `json:"id"`
	ConfirmationRef string     `json:"confirmation_ref"`
	DeliveryRunRef  string     `json:"delivery_run_ref,omitempty"`
	ProjectID       *uuid.UUID `json:"project_id,omitempty"`
	Status          string     `json:"status"`
	ReceivedAt      time.Time  `json:"received_at"`
	ClearedAt       *time.Time `json:"cleared_at,omitempty"`
	ClearedBy       *uuid.UUID `json:"cleared_by,omitempty"`
}

// EnsureReceiptResponse carries the receipt plus whether this call created it
type EnsureReceiptResponse struct {
	Receipt ReceiptResponse `json:"receipt"`
	Created bool            `json:"created"`
}

// ClearReceiptResponse carries the cleared receipt plus how it was found and
// whether this call did the clearing
type ClearReceiptResponse struct {
	Receipt        ReceiptResponse `json:"receipt"`
	Cleared        bool            `json:"cleared"`
	MatchedBy      string          `json:"matched_by"`
	AlreadyCleared bool            `json:"already_cleared"`
}

// ReceiptListFilter represents filter options for receipt listings
type ReceiptListFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// ToReceiptResponse converts a domain receipt to its response form
func ToReceiptResponse(r *receipt.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ID:              r.ID,
		ConfirmationRef: r.ConfirmationRef,
		DeliveryRunRef:  r.DeliveryRunRef,
		ProjectID:       r.ProjectID,
		Status:          r.Status.String(),
		ReceivedAt:      r.ReceivedAt,
		ClearedAt:       r.ClearedAt,
		ClearedBy:       r.ClearedBy,
	}
}

// ToReceiptResponses converts a slice of domain receipts
func ToReceiptResponses(receipts []receipt.Receipt) []ReceiptResponse {
	responses := make([]ReceiptResponse, len(receipts))
	for i := range receipts {
		responses[i] = ToReceiptResponse(&receipts[i])
	}
	return responses
}
