package models

import (
	"fmt"
	"time"
)

// Role identifies the author of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ParseRole converts a wire value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

const (
	// PlaceholderTitle is the title of a session that has not been named yet.
	PlaceholderTitle = "New Chat"

	titleMaxRunes = 30
	titleEllipsis = "..."
)

// Turn is one message exchanged in a session.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one chat conversation.
type Session struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
	Messages []Turn    `json:"messages"`
}

// Clone returns a deep copy so callers cannot reach store-owned slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Turn, len(s.Messages))
	copy(out.Messages, s.Messages)
	return &out
}

// HasUserTurn reports whether any turn in the session was authored by the user.
func (s *Session) HasUserTurn() bool {
	for _, t := range s.Messages {
		if t.Role == RoleUser {
			return true
		}
	}
	return false
}

// DeriveTitle returns the session title for a first user message: the first
// 30 characters followed by an ellipsis when the content is longer.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) > titleMaxRunes {
		return string(runes[:titleMaxRunes]) + titleEllipsis
	}
	return content
}

// SessionSummary is the sidebar view of a session.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Updated      time.Time `json:"updated"`
	MessageCount int       `json:"messageCount"`
	Active       bool      `json:"active"`
}

// AppendResult reports the outcome of adding a turn, including whether the
// session had to be created first.
type AppendResult struct {
	Turn           *Turn    `json:"turn"`
	Session        *Session `json:"session"`
	CreatedSession bool     `json:"createdSession"`
}
