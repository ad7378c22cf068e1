// Package events provides the engine's typed observability bus. Components
// publish structured events instead of scattering debug logging, and tests
// subscribe to events instead of parsing log text.
package events

import (
	"sync"
	"time"
)

// Type identifies a kind of engine event.
type Type string

const (
	// TypeMatchSelected fires when the matcher settles on a strategy for a
	// target day.
	TypeMatchSelected Type = "match.selected"

	// TypeFallbackUsed fires when a historical record is synthesized in
	// place of live data.
	TypeFallbackUsed Type = "fallback.used"

	// TypeClassificationWarning fires when the date-range rule and the
	// entry's own provenance indicators disagree.
	TypeClassificationWarning Type = "classification.warning"

	// TypeResolutionCompleted fires once per delivered weather record.
	TypeResolutionCompleted Type = "resolution.completed"

	// TypeRequestSuperseded fires when a newer resolve call for the same
	// key cancels an in-flight one.
	TypeRequestSuperseded Type = "request.superseded"
)

// Event is one published observation.
type Event struct {
	Type    Type
	Place   string
	DateKey string
	At      time.Time
	Fields  map[string]interface{}
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

// Bus is a small synchronous pub/sub hub. A nil *Bus is valid and drops
// everything, so components can treat the bus as optional.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	if b == nil {
		return func() {}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every subscribed handler. The timestamp is
// stamped here if the caller left it zero.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}

	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))

	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}
