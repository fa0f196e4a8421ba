package testutil

import (
	"github.com/arthur-debert/nanostate/nanostate/collection"
	"github.com/arthur-debert/nanostate/nanostate/entity"
	"github.com/arthur-debert/nanostate/types"
)

// EventLog collects collection events in delivery order
type EventLog struct {
	events []types.Event
}

// RecordCollection subscribes to c and returns the log that fills up as
// events arrive
func RecordCollection(c *collection.Collection) *EventLog {
	log := &EventLog{}
	c.OnCollectionChange(func(ev types.Event) {
		log.events = append(log.events, ev)
	})
	return log
}

// Events returns the recorded events
func (l *EventLog) Events() []types.Event {
	return append([]types.Event(nil), l.events...)
}

// Len returns the number of recorded events
func (l *EventLog) Len() int {
	return len(l.events)
}

// Last returns the most recent event
func (l *EventLog) Last() (types.Event, bool) {
	if len(l.events) == 0 {
		return types.Event{}, false
	}
	return l.events[len(l.events)-1], true
}

// Summaries returns Event.String for every recorded event
func (l *EventLog) Summaries() []string {
	out := make([]string, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.String()
	}
	return out
}

// Reset forgets the recorded events
func (l *EventLog) Reset() {
	l.events = nil
}

// ChangeLog collects entity field and state changes
type ChangeLog struct {
	Changes []types.FieldChange
	States  []types.StateChange
}

// RecordEntity subscribes to both change streams of e
func RecordEntity(e *entity.Entity) *ChangeLog {
	log := &ChangeLog{}
	e.OnChange(func(c types.FieldChange) {
		log.Changes = append(log.Changes, c)
	})
	e.OnStateChange(func(s types.StateChange) {
		log.States = append(log.States, s)
	})
	return log
}

// Fields returns the changed field names in the order they were reported
func (l *ChangeLog) Fields() []string {
	var out []string
	for _, c := range l.Changes {
		out = append(out, c.Fields...)
	}
	return out
}
