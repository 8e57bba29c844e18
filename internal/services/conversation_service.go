package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2/pkg/logger"

	"megbot/internal/models"
	"megbot/internal/repositories"
)

// ErrSessionNotFound is returned when a session id does not resolve.
var ErrSessionNotFound = errors.New("session not found")

const sessionIDPrefix = "chat_"

// ConversationStore keeps the ordered chat sessions, newest first, and the
// pointer to the current one. Every mutation rewrites the persisted list.
// Returned sessions are copies.
type ConversationStore interface {
	Load()
	CreateSession() *models.Session
	CurrentSession() *models.Session
	CurrentSessionID() string
	SetCurrentSession(id string) *models.Session
	AddMessage(content string, role models.Role) (*models.AppendResult, error)
	AddMessageTo(sessionID, content string, role models.Role) (*models.AppendResult, error)
	DeleteSession(id string) string
	ClearCurrentSession() bool
	Session(id string) *models.Session
	Sessions() []*models.Session
	Summaries() []models.SessionSummary
}

// ConversationOption customizes a ConversationStore.
type ConversationOption func(*conversationStore)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) ConversationOption {
	return func(s *conversationStore) { s.now = now }
}

// WithIDGenerator replaces the session id source.
func WithIDGenerator(next func() (string, error)) ConversationOption {
	return func(s *conversationStore) { s.newID = next }
}

type conversationStore struct {
	store recordStore
	log   logger.Logger
	now   func() time.Time
	newID func() (string, error)

	mu        sync.Mutex
	sessions  []*models.Session
	currentID string
}

func NewConversationStore(repo repositories.RecordRepository, log logger.Logger, opts ...ConversationOption) ConversationStore {
	s := &conversationStore{
		store: recordStore{repo: repo, log: log, key: repositories.ChatsKey},
		log:   log,
		now:   time.Now,
		newID: newSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newSessionID returns a time-ordered id. UUIDv7 values generated by one
// process are strictly increasing.
func newSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return sessionIDPrefix + id.String(), nil
}

// timestamp is millisecond precision in UTC so values survive the JSON round trip.
func (s *conversationStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Load replaces the in-memory sessions with the persisted list. The current
// pointer is reset. Malformed data yields an empty list.
func (s *conversationStore) Load() {
	var loaded []*models.Session
	if !s.store.read(context.Background(), &loaded) {
		loaded = nil
	}

	sessions := make([]*models.Session, 0, len(loaded))
	seen := make(map[string]bool, len(loaded))
	for _, sess := range loaded {
		if sess == nil || sess.ID == "" || seen[sess.ID] {
			continue
		}
		seen[sess.ID] = true
		if sess.Messages == nil {
			sess.Messages = []models.Turn{}
		}
		sessions = append(sessions, sess)
	}

	s.mu.Lock()
	s.sessions = sessions
	s.currentID = ""
	s.mu.Unlock()
}

func (s *conversationStore) persist() {
	s.store.write(context.Background(), s.sessions)
}

func (s *conversationStore) find(id string) (int, *models.Session) {
	if id == "" {
		return -1, nil
	}
	for i, sess := range s.sessions {
		if sess.ID == id {
			return i, sess
		}
	}
	return -1, nil
}

func (s *conversationStore) CreateSession() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked().Clone()
}

func (s *conversationStore) createLocked() *models.Session {
	id, err := s.newID()
	if err != nil || id == "" {
		// uuid only fails when the random source does.
		s.log.Warning(fmt.Sprintf("session id generator failed: %v", err))
		id = fmt.Sprintf("%s%d", sessionIDPrefix, s.now().UnixNano())
	}
	for _, taken := s.find(id); taken != nil; _, taken = s.find(id) {
		id += "_"
	}

	ts := s.timestamp()
	sess := &models.Session{
		ID:       id,
		Title:    models.PlaceholderTitle,
		Created:  ts,
		Updated:  ts,
		Messages: []models.Turn{},
	}
	s.sessions = append([]*models.Session{sess}, s.sessions...)
	s.currentID = id
	s.persist()
	return sess
}

func (s *conversationStore) CurrentSession() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, sess := s.find(s.currentID)
	return sess.Clone()
}

func (s *conversationStore) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// SetCurrentSession moves the pointer. An unknown id returns nil and leaves
// the pointer where it was.
func (s *conversationStore) SetCurrentSession(id string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, sess := s.find(id)
	if sess == nil {
		return nil
	}
	s.currentID = id
	return sess.Clone()
}

// AddMessage appends to the current session, creating one first when none
// is current.
func (s *conversationStore) AddMessage(content string, role models.Role) (*models.AppendResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("add message: unknown role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := false
	_, sess := s.find(s.currentID)
	if sess == nil {
		sess = s.createLocked()
		created = true
	}
	return s.appendLocked(sess, content, role, created), nil
}

// AddMessageTo appends to a specific session without touching the pointer.
func (s *conversationStore) AddMessageTo(sessionID, content string, role models.Role) (*models.AppendResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("add message: unknown role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, sess := s.find(sessionID)
	if sess == nil {
		return nil, fmt.Errorf("add message to %s: %w", sessionID, ErrSessionNotFound)
	}
	return s.appendLocked(sess, content, role, false), nil
}

func (s *conversationStore) appendLocked(sess *models.Session, content string, role models.Role, created bool) *models.AppendResult {
	ts := s.timestamp()
	if ts.Before(sess.Updated) {
		ts = sess.Updated
	}

	if role == models.RoleUser && sess.Title == models.PlaceholderTitle && !sess.HasUserTurn() {
		sess.Title = models.DeriveTitle(content)
	}

	turn := models.Turn{Role: role, Content: content, Timestamp: ts}
	sess.Messages = append(sess.Messages, turn)
	sess.Updated = ts
	s.persist()

	return &models.AppendResult{
		Turn:           &turn,
		Session:        sess.Clone(),
		CreatedSession: created,
	}
}

// DeleteSession removes the session and returns the resulting current id,
// empty when no session is current. Deleting the current session moves the
// pointer to the new head.
func (s *conversationStore) DeleteSession(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, sess := s.find(id); sess != nil {
		s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	}
	if s.currentID == id {
		s.currentID = ""
		if len(s.sessions) > 0 {
			s.currentID = s.sessions[0].ID
		}
	}
	s.persist()
	return s.currentID
}

// ClearCurrentSession empties the current session and restores the
// placeholder title. It reports false when no session is current.
func (s *conversationStore) ClearCurrentSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, sess := s.find(s.currentID)
	if sess == nil {
		return false
	}
	ts := s.timestamp()
	if ts.Before(sess.Updated) {
		ts = sess.Updated
	}
	sess.Messages = []models.Turn{}
	sess.Title = models.PlaceholderTitle
	sess.Updated = ts
	s.persist()
	return true
}

func (s *conversationStore) Session(id string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, sess := s.find(id)
	return sess.Clone()
}

func (s *conversationStore) Sessions() []*models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

func (s *conversationStore) Summaries() []models.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SessionSummary, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = models.SessionSummary{
			ID:           sess.ID,
			Title:        sess.Title,
			Updated:      sess.Updated,
			MessageCount: len(sess.Messages),
			Active:       sess.ID == s.currentID,
		}
	}
	return out
}
