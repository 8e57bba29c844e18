package services

import (
	"context"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"megbot/internal/models"
	"megbot/internal/repositories"
)

// PreferenceStore holds the user's settings and persists the whole record
// after every mutation.
type PreferenceStore interface {
	Load()
	Get(key models.PreferenceKey) (any, error)
	Set(key models.PreferenceKey, value any) (any, error)
	Update(patch models.PreferencesPatch) models.Preferences
	Reset() models.Preferences

	Preferences() models.Preferences
	HasCredential() bool
	Model() string
	Provider() string
}

type preferenceStore struct {
	store recordStore

	mu    sync.RWMutex
	prefs models.Preferences
}

// NewPreferenceStore returns a store holding the defaults. Call Load to read
// the persisted record.
func NewPreferenceStore(repo repositories.RecordRepository, log logger.Logger) PreferenceStore {
	return &preferenceStore{
		store: recordStore{repo: repo, log: log, key: repositories.PreferencesKey},
		prefs: models.DefaultPreferences(),
	}
}

func (s *preferenceStore) Load() {
	loaded := models.DefaultPreferences()
	if !s.store.read(context.Background(), &loaded) {
		// A partially decoded record is discarded as a whole.
		loaded = models.DefaultPreferences()
	}

	s.mu.Lock()
	s.prefs = loaded
	s.mu.Unlock()
}

func (s *preferenceStore) Get(key models.PreferenceKey) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Value(key)
}

func (s *preferenceStore) Set(key models.PreferenceKey, value any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.prefs.With(key, value)
	if err != nil {
		return nil, err
	}
	s.prefs = next
	s.store.write(context.Background(), s.prefs)
	return next.Value(key)
}

func (s *preferenceStore) Update(patch models.PreferencesPatch) models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = s.prefs.Merge(patch)
	s.store.write(context.Background(), s.prefs)
	return s.prefs
}

func (s *preferenceStore) Reset() models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = models.DefaultPreferences()
	s.store.write(context.Background(), s.prefs)
	return s.prefs
}

func (s *preferenceStore) Preferences() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

func (s *preferenceStore) HasCredential() bool {
	return s.Preferences().HasAPIKey
}

func (s *preferenceStore) Model() string {
	return s.Preferences().Model
}

func (s *preferenceStore) Provider() string {
	return s.Preferences().APIProvider
}
