package events

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Emitter delivers a chat event to presentation code.
type Emitter func(ctx context.Context, name string, evt ChatEvent)

// Discard drops every event.
func Discard(context.Context, string, ChatEvent) {}

// Scoped fills the event's session id from ctx when the event has none.
func Scoped(f Emitter) Emitter {
	if f == nil {
		return Discard
	}
	return func(ctx context.Context, name string, evt ChatEvent) {
		if evt.SessionID == "" {
			evt.SessionID = SessionFromContext(ctx)
		}
		f(ctx, name, evt)
	}
}

// Runtime emits through the Wails runtime and mirrors the event into the
// application log. ctx must be the context handed to OnStartup.
func Runtime(ctx context.Context, name string, evt ChatEvent) {
	runtime.EventsEmit(ctx, name, evt)
	logRuntimeEvent(ctx, name, evt)
}
