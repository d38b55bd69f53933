package location

import (
	"time"

	"github.com/fieldops/stockledger/internal/domain/location"
	"github.com/google/uuid"
)

// CreateLocationRequest represents a request to register a location
type CreateLocationRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=200"`
	Kind      string `json:"kind" binding:"required,oneof=warehouse vehicle supplier job_site other"`
	OwnerType string `json:"owner_type" binding:"omitempty,max=50"`
	OwnerID   string `json:"owner_id" binding:"omitempty,max=100"`
	Note      string `json:"note" binding:"omitempty,max=500"`
}

// UpdateLocationRequest represents a soft-field update with an optimistic
// version check
type UpdateLocationRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200"`
	Note    string `json:"note" binding:"omitempty,max=500"`
	Version int    `json:"version" binding:"required,min=1"`
}

// LocationResponse represents a location in API responses
type LocationResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Active    bool      `json:"active"`
	OwnerType string    `json:"owner_type,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Note      string    `json:"note,omitempty"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationListFilter represents filter options for location listings
type LocationListFilter struct {
	Kind       string `form:"kind" binding:"omitempty,oneof=warehouse vehicle supplier job_site other"`
	ActiveOnly bool   `form:"active_only"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// BackfillEntry is one legacy location record to import
type BackfillEntry struct {
	Name      string `json:"name" binding:"required"`
	RawKind   string `json:"raw_kind"`
	OwnerType string `json:"owner_type"`
	OwnerID   string `json:"owner_id"`
	Note      string `json:"note"`
}

// BackfillRequest represents a bulk import of legacy locations
type BackfillRequest struct {
	Entries []BackfillEntry `json:"entries" binding:"required,min=1,dive"`
}

// BackfillReport summarizes a backfill run. Reruns over the same input skip
// everything and create nothing.
type BackfillReport struct {
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	Demoted  int      `json:"demoted"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures,omitempty"`
}

// ToLocationResponse converts a domain location to its response form
func ToLocationResponse(l *location.Location) LocationResponse {
	return LocationResponse{
		ID:        l.ID,
		Name:      l.Name,
		Kind:      l.Kind.String(),
		Active:    l.Active,
		OwnerType: l.OwnerType,
		OwnerID:   l.OwnerID,
		Note:      l.Note,
		Version:   l.Version,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

// ToLocationResponses converts a slice of domain locations
func ToLocationResponses(locations []location.Location) []LocationResponse {
	responses := make([]LocationResponse, len(locations))
	for i := range locations {
		responses[i] = ToLocationResponse(&locations[i])
	}
	return responses
}
