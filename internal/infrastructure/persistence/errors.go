package persistence

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// uniqueViolationCode is the PostgreSQL SQLSTATE for unique constraint violations
const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err came from a unique constraint.
// Checks the driver error first and falls back to GORM's translated error
// and the SQLite message shape used by the integration tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
