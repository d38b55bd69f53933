package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// MovementSortFields contains allowed sort fields for stock movements
var MovementSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"performed_at": true,
	"item_id":      true,
	"quantity":     true,
	"reason":       true,
}

// BalanceSortFields contains allowed sort fields for quantity balances
var BalanceSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"location_id": true,
	"item_id":     true,
	"quantity":    true,
}

// LocationSortFields contains allowed sort fields for locations
var LocationSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"kind":       true,
	"active":     true,
}

// AllocationSortFields contains allowed sort fields for allocations
var AllocationSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"qty_allocated": true,
	"status":        true,
	"item_name":     true,
}

// ConsumptionSortFields contains allowed sort fields for consumptions
var ConsumptionSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"consumed_at":  true,
	"qty_consumed": true,
	"item_id":      true,
}

// ReceiptSortFields contains allowed sort fields for receipts
var ReceiptSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"received_at":      true,
	"cleared_at":       true,
	"confirmation_ref": true,
	"status":           true,
}
