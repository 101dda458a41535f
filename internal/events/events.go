package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types published inside the process.
const (
	ExpensesChanged    = "expenses.changed"
	PreferencesChanged = "preferences.changed"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	EntityID  int64
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string]map[uint64]EventHandler
	nextID      uint64
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string]map[uint64]EventHandler),
		logger:      logger,
	}
}

// Subscribe registers a handler for a given event type and returns a
// function that removes it again.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[uint64]EventHandler)
	}
	b.subscribers[eventType][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers[eventType], id)
		})
	}
}

// Publish notifies subscribers of the event type. Handlers run
// synchronously on the caller's goroutine and must not block.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscribers[event.Type]))
	for _, h := range b.subscribers[event.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// Subscribers returns the number of handlers registered for eventType.
func (b *EventBus) Subscribers(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
