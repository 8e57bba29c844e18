package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"megbot/internal/models"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event names the webview subscribes to.
const (
	ChatPending            = "chat:pending"
	ChatSettled            = "chat:settled"
	ChatReply              = "chat:reply"
	ChatCredentialRequired = "chat:credential-required"
	ChatFailed             = "chat:failed"
	ChatState              = "chat:state"
	ChatsChanged           = "chats:changed"
)

// ChatEvent is the payload of every chat event. Fields irrelevant to an event
// are left empty.
type ChatEvent struct {
	ID         string                  `json:"id"`
	Level      Level                   `json:"level"`
	Message    string                  `json:"message,omitempty"`
	SessionID  string                  `json:"sessionId,omitempty"`
	Turn       *models.Turn            `json:"turn,omitempty"`
	Submitting bool                    `json:"submitting"`
	InFlight   int                     `json:"inFlight,omitempty"`
	Sessions   []models.SessionSummary `json:"sessions,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
}

func newEvent(level Level, message string) ChatEvent {
	return ChatEvent{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Pending marks an outbound message awaiting its reply.
func Pending(sessionID string) ChatEvent {
	evt := newEvent(LevelInfo, "")
	evt.SessionID = sessionID
	return evt
}

// State carries the submission-disabled flag.
func State(inFlight int) ChatEvent {
	evt := newEvent(LevelInfo, "")
	evt.Submitting = inFlight > 0
	evt.InFlight = inFlight
	return evt
}

func Reply(sessionID string, turn models.Turn) ChatEvent {
	evt := newEvent(LevelInfo, "")
	evt.SessionID = sessionID
	evt.Turn = &turn
	return evt
}

func CredentialRequired(message string) ChatEvent {
	return newEvent(LevelWarn, message)
}

func Failed(sessionID, message string) ChatEvent {
	evt := newEvent(LevelError, message)
	evt.SessionID = sessionID
	return evt
}

// SessionsChanged carries the sidebar list after a mutation.
func SessionsChanged(sessions []models.SessionSummary) ChatEvent {
	evt := newEvent(LevelInfo, "")
	evt.Sessions = sessions
	return evt
}

type contextKey string

const sessionContextKey contextKey = "megbot/events/session"

// WithSession returns a derived context annotated with the given session id
// so emitters can scope payloads.
func WithSession(ctx context.Context, sessionID string) context.Context {
	if strings.TrimSpace(sessionID) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, sessionID)
}

// SessionFromContext extracts the session id associated with ctx.
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionContextKey).(string); ok {
		return v
	}
	return ""
}
