// Package messaging implements the in-memory event bus that carries
// identity and progress events between components. Handlers run
// synchronously on the publishing goroutine, which keeps ordering
// deterministic for the single logical actor this system serves.
package messaging

import (
	"errors"
	"sync"

	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
	"github.com/studypath-hub/studypath-hub/pkg/logger"
)

// ErrEventBusClosed is returned when publishing or subscribing after Close.
var ErrEventBusClosed = errors.New("messaging: event bus is closed")

// EventBus routes domain events to subscribed handlers.
type EventBus interface {
	// Subscribe registers a handler for one event type.
	Subscribe(eventType shared.EventType, handler shared.EventHandler) error

	// SubscribeAll registers a handler for every event.
	SubscribeAll(handler shared.EventHandler) error

	// Publish delivers an event to all matching handlers.
	Publish(event shared.Event) error

	// Close stops the bus; further calls fail with ErrEventBusClosed.
	Close() error
}

// InMemoryEventBus is a synchronous in-memory EventBus.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	log         *logger.Logger
	closed      bool
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(log *logger.Logger) *InMemoryEventBus {
	if log == nil {
		log = logger.Default()
	}
	return &InMemoryEventBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		log:      log.With(logger.Component("eventbus")),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("messaging: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("messaging: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish delivers the event to type handlers first, then global handlers.
// A panicking handler is recovered and logged so one subscriber cannot
// take down the publisher.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	typed := make([]shared.EventHandler, len(b.handlers[event.EventType()]))
	copy(typed, b.handlers[event.EventType()])
	global := make([]shared.EventHandler, len(b.allHandlers))
	copy(global, b.allHandlers)
	b.mu.RUnlock()

	for _, h := range typed {
		b.invoke(h, event)
	}
	for _, h := range global {
		b.invoke(h, event)
	}
	return nil
}

func (b *InMemoryEventBus) invoke(h shared.EventHandler, event shared.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				logger.String("event_type", string(event.EventType())),
				logger.Any("panic", r))
		}
	}()
	h(event)
}

// Close stops the bus and drops all subscriptions.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.handlers = nil
	b.allHandlers = nil
	return nil
}
