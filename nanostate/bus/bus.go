// Package bus provides the synchronous publish/subscribe bus entities and
// collections use to deliver change notifications.
//
// Delivery happens on the caller's stack, in subscription order. There is no
// buffering and no goroutine: a Notify call returns after every handler has
// run.
package bus

import (
	"github.com/google/uuid"
)

// Handler receives the arguments passed to Notify
type Handler func(args ...any)

// Subscription identifies one registered handler. Go funcs are not
// comparable, so handlers are unsubscribed by handle instead of by value.
type Subscription struct {
	ID    uuid.UUID
	Event string
}

// IsZero reports whether the subscription was never issued
func (s Subscription) IsZero() bool {
	return s.ID == uuid.Nil
}

type entry struct {
	id      uuid.UUID
	handler Handler
}

// Bus is a synchronous event bus. The zero value is not usable; call New.
type Bus struct {
	subscribers map[string][]entry
}

// New creates an empty bus
func New() *Bus {
	return &Bus{
		subscribers: make(map[string][]entry),
	}
}

// Subscribe registers handler for event and returns its handle
func (b *Bus) Subscribe(event string, handler Handler) Subscription {
	id := uuid.New()
	b.subscribers[event] = append(b.subscribers[event], entry{id: id, handler: handler})
	return Subscription{ID: id, Event: event}
}

// Unsubscribe removes a handler. It reports whether the subscription existed.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	entries := b.subscribers[sub.Event]
	for i, e := range entries {
		if e.id != sub.ID {
			continue
		}
		// Copy so a Notify already iterating keeps its own view
		next := make([]entry, 0, len(entries)-1)
		next = append(next, entries[:i]...)
		next = append(next, entries[i+1:]...)
		if len(next) == 0 {
			delete(b.subscribers, sub.Event)
		} else {
			b.subscribers[sub.Event] = next
		}
		return true
	}
	return false
}

// Notify calls every handler subscribed to event, in subscription order, and
// returns how many ran. Handlers added during delivery are not called for
// the current notification.
func (b *Bus) Notify(event string, args ...any) int {
	entries := b.subscribers[event]
	for _, e := range entries {
		e.handler(args...)
	}
	return len(entries)
}

// HasSubscribers reports whether anything listens to event
func (b *Bus) HasSubscribers(event string) bool {
	return len(b.subscribers[event]) > 0
}

// Count returns the number of handlers subscribed to event
func (b *Bus) Count(event string) int {
	return len(b.subscribers[event])
}
