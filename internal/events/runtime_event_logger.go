package events

import (
	"context"
	"encoding/json"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

func logRuntimeEvent(ctx context.Context, name string, event ChatEvent) {
	// Sidebar refreshes are frequent and carry the full list.
	if name == ChatsChanged || name == ChatState {
		runtime.LogDebug(ctx, name)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		runtime.LogError(ctx, "events: failed to marshal chat event: "+err.Error())
		return
	}

	payload := name + " " + string(data)

	switch event.Level {
	case LevelError:
		runtime.LogError(ctx, payload)
	case LevelWarn:
		runtime.LogWarning(ctx, payload)
	default:
		runtime.LogInfo(ctx, payload)
	}
}
