// Package bus decouples "an entity changed" from "something must react".
//
// The in-process Bus delivers synchronously, on the emitting goroutine, in
// subscriber-registration order. There is no queue and no retry; a handler
// that panics is isolated and logged so later handlers in the same emission
// still run. Remote consumers are served by forwarding bus emissions to NATS
// through a Publisher (see nats.go).
package bus

import (
	"log/slog"
	"sync"
	"time"
)

// Event is the immutable tuple delivered to each handler, at most once per
// subscriber per emission. Payloads carry entity snapshots or refs, never
// live pointers into the cache.
type Event struct {
	Topic     string
	Payload   any
	Timestamp time.Time
}

// Handler receives one event.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a typed publish/subscribe channel. One instance per domain type is
// shared by all callers in the process.
type Bus struct {
	mu     sync.Mutex
	subs   map[string][]subscription
	nextID uint64
	logger *slog.Logger

	now func() time.Time // overridable in tests
}

// New creates a bus. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[string][]subscription),
		logger: logger,
		now:    time.Now,
	}
}

// On registers handler for topic and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (b *Bus) On(topic string, handler Handler) (off func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.off(topic, id) })
	}
}

func (b *Bus) off(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers payload to every handler registered for topic, in
// registration order, before returning.
func (b *Bus) Emit(topic string, payload any) {
	b.mu.Lock()
	subs := b.subs[topic]
	// Copy so handlers may subscribe/unsubscribe during delivery without
	// affecting this emission.
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	now := b.now()
	b.mu.Unlock()

	evt := Event{Topic: topic, Payload: payload, Timestamp: now}
	for _, s := range snapshot {
		b.deliver(s, evt)
	}
}

func (b *Bus) deliver(s subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus: handler panicked", "topic", evt.Topic, "panic", r)
		}
	}()
	s.handler(evt)
}
