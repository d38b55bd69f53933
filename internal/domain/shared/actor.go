package shared

import "github.com/google/uuid"

// Actor identifies who performed an operation. The identity is resolved and
// authorized by the caller's authentication layer; the engine records it for
// audit only and never enforces role checks itself.
type Actor struct {
	ID    uuid.UUID
	Email string
	Name  string
}

// IsZero returns true if the actor carries no identity
func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil && a.Email == "" && a.Name == ""
}

// String returns a loggable representation of the actor
func (a Actor) String() string {
	if a.Email != "" {
		return a.Email
	}
	if a.Name != "" {
		return a.Name
	}
	return a.ID.String()
}
