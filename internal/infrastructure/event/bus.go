package event

import (
	"context"
	"sync"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"go.uber.org/zap"
)

// wildcardType subscribes a handler to every event type
const wildcardType = "*"

// InMemoryEventBus implements shared.EventBus with synchronous in-process
// dispatch. Handler failures are logged and never fail the publishing
// operation: ledger writes must not depend on listeners.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	logger   *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]shared.EventHandler),
		logger:   logger,
	}
}

// Publish dispatches events to all registered handlers synchronously
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range b.handlersFor(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types. With no types
// given, the handler's own EventTypes() decides; an empty answer there
// subscribes it to everything.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	if len(eventTypes) == 0 {
		eventTypes = []string{wildcardType}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, eventType := range eventTypes {
		b.handlers[eventType] = append(b.handlers[eventType], handler)
	}
}

// Unsubscribe removes a handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for eventType, handlers := range b.handlers {
		kept := handlers[:0]
		for _, h := range handlers {
			if h != handler {
				kept = append(kept, h)
			}
		}
		b.handlers[eventType] = kept
	}
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	combined := make([]shared.EventHandler, 0, len(b.handlers[eventType])+len(b.handlers[wildcardType]))
	combined = append(combined, b.handlers[eventType]...)
	combined = append(combined, b.handlers[wildcardType]...)
	return combined
}

// dispatch runs a handler, containing panics so one bad listener cannot
// take down the publisher
func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()
	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
