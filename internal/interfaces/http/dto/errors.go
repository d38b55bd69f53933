package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeStaleWrite is used when an optimistic version check fails
	ErrCodeStaleWrite = "ERR_STALE_WRITE"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInsufficientStock is used when an outbound or transfer would overdraw a balance
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeOverConsumption is used when usage would exceed the remaining allocation
	ErrCodeOverConsumption = "ERR_OVER_CONSUMPTION"
	// ErrCodeWarehouseExists is used when registering a second active warehouse
	ErrCodeWarehouseExists = "ERR_WAREHOUSE_EXISTS"
	// ErrCodeReferentialIntegrity is used when a resource is still referenced
	ErrCodeReferentialIntegrity = "ERR_REFERENTIAL_INTEGRITY"
	// ErrCodeAlreadyApplied is used when re-applying a one-shot operation
	ErrCodeAlreadyApplied = "ERR_ALREADY_APPLIED"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeStaleWrite:    http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity except the conflicts
	ErrCodeInvalidState:         http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:    http.StatusUnprocessableEntity,
	ErrCodeOverConsumption:      http.StatusUnprocessableEntity,
	ErrCodeWarehouseExists:      http.StatusConflict,
	ErrCodeReferentialIntegrity: http.StatusConflict,
	ErrCodeAlreadyApplied:       http.StatusConflict,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain-layer error codes to wire-level codes.
// Constructor validation codes all collapse to ERR_VALIDATION; the field is
// named in the message.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"STALE_WRITE":           ErrCodeStaleWrite,
	"INSUFFICIENT_STOCK":    ErrCodeInsufficientStock,
	"OVER_CONSUMPTION":      ErrCodeOverConsumption,
	"WAREHOUSE_EXISTS":      ErrCodeWarehouseExists,
	"REFERENTIAL_INTEGRITY": ErrCodeReferentialIntegrity,
	"ALREADY_APPLIED":       ErrCodeAlreadyApplied,
	"INVALID_NAME":          ErrCodeValidation,
	"INVALID_KIND":          ErrCodeValidation,
	"INVALID_ITEM":          ErrCodeValidation,
	"INVALID_QUANTITY":      ErrCodeValidation,
	"INVALID_REASON":        ErrCodeValidation,
	"INVALID_REFERENCE":     ErrCodeValidation,
	"INVALID_ENDPOINTS":     ErrCodeValidation,
	"INVALID_LOCATION":      ErrCodeValidation,
	"INVALID_MOVEMENT":      ErrCodeValidation,
	"INVALID_TARGET":        ErrCodeValidation,
	"INVALID_CONFIRMATION":  ErrCodeValidation,
}

// NormalizeErrorCode converts a domain error code to the wire-level format
// If the code is already in the wire format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if wireCode, ok := DomainErrorCodeMapping[code]; ok {
		return wireCode
	}
	return code
}
