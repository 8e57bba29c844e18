package services

import (
	"sync"

	"megbot/internal/models"
)

const (
	DefaultSystemPrompt = "You are a helpful assistant."

	roleSystem = "system"
)

// HistoryService keeps the server-side conversation per client scope. Every
// history starts with the system prompt.
type HistoryService struct {
	systemPrompt string

	mu     sync.Mutex
	scopes map[string][]models.HistoryMessage
}

func NewHistoryService(systemPrompt string) *HistoryService {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &HistoryService{
		systemPrompt: systemPrompt,
		scopes:       make(map[string][]models.HistoryMessage),
	}
}

func (h *HistoryService) system() models.HistoryMessage {
	return models.HistoryMessage{Role: roleSystem, Content: h.systemPrompt}
}

// Snapshot returns a copy of the scope's history, system prompt included.
func (h *HistoryService) Snapshot(scope string) []models.HistoryMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs, ok := h.scopes[scope]
	if !ok {
		return []models.HistoryMessage{h.system()}
	}
	return append([]models.HistoryMessage(nil), msgs...)
}

func (h *HistoryService) Append(scope string, msgs ...models.HistoryMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.scopes[scope]
	if !ok {
		cur = []models.HistoryMessage{h.system()}
	}
	h.scopes[scope] = append(cur, msgs...)
}

// Clear resets the scope to just the system prompt.
func (h *HistoryService) Clear(scope string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scopes[scope] = []models.HistoryMessage{h.system()}
}

// Replace swaps the scope's history for msgs. Client-supplied system
// messages and unknown roles are dropped so the prompt cannot be replaced.
func (h *HistoryService) Replace(scope string, msgs []models.HistoryMessage) int {
	next := []models.HistoryMessage{h.system()}
	for _, m := range msgs {
		if _, err := models.ParseRole(m.Role); err != nil {
			continue
		}
		next = append(next, m)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.scopes[scope] = next
	return len(next) - 1
}
