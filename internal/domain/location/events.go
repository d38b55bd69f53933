package location

import (
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeLocation is the aggregate type for location events
const AggregateTypeLocation = "Location"

// Event type constants
const (
	EventTypeLocationCreated = "LocationCreated"
	EventTypeLocationRetired = "LocationRetired"
)

// LocationCreatedEvent is raised when a location is registered
type LocationCreatedEvent struct {
	shared.BaseDomainEvent
	LocationID uuid.UUID `json:"location_id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
}

// NewLocationCreatedEvent creates a new LocationCreatedEvent
func NewLocationCreatedEvent(l *Location) *LocationCreatedEvent {
	return &LocationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLocationCreated, AggregateTypeLocation, l.ID),
		LocationID:      l.ID,
		Name:            l.Name,
		Kind:            l.Kind.String(),
	}
}

// EventType returns the event type name
func (e *LocationCreatedEvent) EventType() string {
	return EventTypeLocationCreated
}

// LocationRetiredEvent is raised when a location is deactivated
type LocationRetiredEvent struct {
	shared.BaseDomainEvent
	LocationID uuid.UUID `json:"location_id"`
	Name       string    `json:"name"`
}

// NewLocationRetiredEvent creates a new LocationRetiredEvent
func NewLocationRetiredEvent(l *Location) *LocationRetiredEvent {
	return &LocationRetiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLocationRetired, AggregateTypeLocation, l.ID),
		LocationID:      l.ID,
		Name:            l.Name,
	}
}

// EventType returns the event type name
func (e *LocationRetiredEvent) EventType() string {
	return EventTypeLocationRetired
}
