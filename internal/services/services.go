package services

import (
	"github.com/wailsapp/wails/v2/pkg/logger"

	"megbot/internal/repositories"
)

// Stores aggregates the client-side stores backed by the record repository.
type Stores struct {
	Preferences   PreferenceStore
	Conversations ConversationStore
}

// NewStores constructs both stores and reads their persisted records.
func NewStores(repo repositories.RecordRepository, log logger.Logger, opts ...ConversationOption) *Stores {
	s := &Stores{
		Preferences:   NewPreferenceStore(repo, log),
		Conversations: NewConversationStore(repo, log, opts...),
	}
	s.Preferences.Load()
	s.Conversations.Load()
	return s
}
