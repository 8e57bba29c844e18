package mocks

import (
	"context"
	"sync"

	"megbot/internal/events"
)

// RecordedEvent is one emitted chat event.
type RecordedEvent struct {
	Name  string
	Event events.ChatEvent
}

// EventRecorder collects events. Use Emit as an events.Emitter.
type EventRecorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

func (r *EventRecorder) Emit(_ context.Context, name string, evt events.ChatEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Name: name, Event: evt})
}

func (r *EventRecorder) All() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedEvent(nil), r.events...)
}

// Names returns event names in emission order.
func (r *EventRecorder) Names() []string {
	var out []string
	for _, e := range r.All() {
		out = append(out, e.Name)
	}
	return out
}

// Named returns the events emitted under name.
func (r *EventRecorder) Named(name string) []events.ChatEvent {
	var out []events.ChatEvent
	for _, e := range r.All() {
		if e.Name == name {
			out = append(out, e.Event)
		}
	}
	return out
}

func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
