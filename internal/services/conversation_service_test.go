package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megbot/internal/models"
	"megbot/internal/repositories"
	"megbot/internal/tests/mocks"
)

// fakeClock advances by step on every reading.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), step: time.Second}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func (c *fakeClock) Rewind(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(-d)
}

func newTestConversationStore(t *testing.T, opts ...ConversationOption) (ConversationStore, *mocks.RecordRepositoryMock) {
	t.Helper()
	repo := &mocks.RecordRepositoryMock{}
	store := NewConversationStore(repo, &mocks.LoggerMock{}, opts...)
	store.Load()
	return store, repo
}

func storedSessions(t *testing.T, repo *mocks.RecordRepositoryMock) []models.Session {
	t.Helper()
	raw, ok := repo.Get(repositories.ChatsKey)
	require.True(t, ok, "chats were not persisted")
	var out []models.Session
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestConversationStore_CreateSession(t *testing.T) {
	store, repo := newTestConversationStore(t)

	first := store.CreateSession()
	second := store.CreateSession()

	assert.True(t, strings.HasPrefix(first.ID, "chat_"))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Less(t, first.ID, second.ID, "ids sort in creation order")
	assert.Equal(t, models.PlaceholderTitle, second.Title)
	assert.Equal(t, second.Created, second.Updated)
	assert.Empty(t, second.Messages)

	sessions := store.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID, "new sessions are prepended")
	assert.Equal(t, second.ID, store.CurrentSessionID())

	stored := storedSessions(t, repo)
	require.Len(t, stored, 2)
	assert.Equal(t, second.ID, stored[0].ID)
}

func TestConversationStore_IDsUniqueUnderRapidCreation(t *testing.T) {
	store, _ := newTestConversationStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := store.CreateSession().ID
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestConversationStore_DuplicateGeneratedIDIsDisambiguated(t *testing.T) {
	store, _ := newTestConversationStore(t, WithIDGenerator(func() (string, error) {
		return "chat_fixed", nil
	}))
	a := store.CreateSession()
	b := store.CreateSession()
	assert.NotEqual(t, a.ID, b.ID)
}

func TestConversationStore_IDGeneratorFailureFallsBack(t *testing.T) {
	store, _ := newTestConversationStore(t, WithIDGenerator(func() (string, error) {
		return "", fmt.Errorf("no entropy")
	}))
	sess := store.CreateSession()
	assert.True(t, strings.HasPrefix(sess.ID, "chat_"))
}

func TestConversationStore_SetCurrentSession(t *testing.T) {
	store, _ := newTestConversationStore(t)
	a := store.CreateSession()
	b := store.CreateSession()

	got := store.SetCurrentSession(a.ID)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.ID, store.CurrentSession().ID)

	assert.Nil(t, store.SetCurrentSession("chat_missing"))
	assert.Equal(t, a.ID, store.CurrentSessionID(), "unknown id leaves the pointer unchanged")

	assert.NotNil(t, store.SetCurrentSession(b.ID))
	assert.Equal(t, b.ID, store.CurrentSessionID())
}

func TestConversationStore_AddMessageCreatesSessionWhenNoneCurrent(t *testing.T) {
	store, repo := newTestConversationStore(t)

	res, err := store.AddMessage("Hello there", models.RoleUser)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.CreatedSession)
	require.NotNil(t, res.Session)
	assert.Equal(t, store.CurrentSessionID(), res.Session.ID)
	assert.Equal(t, "Hello there", res.Session.Title)
	require.Len(t, res.Session.Messages, 1)
	assert.Equal(t, res.Turn.Timestamp, res.Session.Updated)

	again, err := store.AddMessage("Hi!", models.RoleAssistant)
	require.NoError(t, err)
	assert.False(t, again.CreatedSession)
	assert.Equal(t, res.Session.ID, again.Session.ID)

	stored := storedSessions(t, repo)
	require.Len(t, stored, 1)
	require.Len(t, stored[0].Messages, 2)
	assert.Equal(t, models.RoleAssistant, stored[0].Messages[1].Role)
}

func TestConversationStore_TitleDerivation(t *testing.T) {
	store, _ := newTestConversationStore(t)
	store.CreateSession()

	long := "This message is definitely longer than thirty characters"
	res, err := store.AddMessage(long, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, long[:30]+"...", res.Session.Title)

	res, err = store.AddMessage("A second question", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, long[:30]+"...", res.Session.Title, "later turns never retitle")
}

func TestConversationStore_TitleExactlyThirtyCharacters(t *testing.T) {
	store, _ := newTestConversationStore(t)
	text := strings.Repeat("a", 30)
	res, err := store.AddMessage(text, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, text, res.Session.Title)
}

func TestConversationStore_TitleCountsCharactersNotBytes(t *testing.T) {
	store, _ := newTestConversationStore(t)
	text := strings.Repeat("é", 31)
	res, err := store.AddMessage(text, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 30)+"...", res.Session.Title)
}

func TestConversationStore_AssistantFirstDoesNotBlockTitle(t *testing.T) {
	store, _ := newTestConversationStore(t)
	_, err := store.AddMessage("Welcome!", models.RoleAssistant)
	require.NoError(t, err)
	assert.Equal(t, models.PlaceholderTitle, store.CurrentSession().Title)

	res, err := store.AddMessage("What is Go?", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "What is Go?", res.Session.Title)
}

func TestConversationStore_AddMessageRejectsUnknownRole(t *testing.T) {
	store, repo := newTestConversationStore(t)
	res, err := store.AddMessage("hi", models.Role("system"))
	assert.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 0, repo.Saves())
	assert.Empty(t, store.Sessions())
}

func TestConversationStore_UpdatedIsMonotonic(t *testing.T) {
	clock := newFakeClock()
	store, _ := newTestConversationStore(t, WithClock(clock.Now))
	first, err := store.AddMessage("one", models.RoleUser)
	require.NoError(t, err)

	clock.Rewind(time.Hour)
	second, err := store.AddMessage("two", models.RoleAssistant)
	require.NoError(t, err)

	assert.False(t, second.Session.Updated.Before(first.Session.Updated))
	assert.Equal(t, second.Turn.Timestamp, second.Session.Updated)
}

func TestConversationStore_AddMessageTo(t *testing.T) {
	store, _ := newTestConversationStore(t)
	origin := store.CreateSession()
	other := store.CreateSession()

	res, err := store.AddMessageTo(origin.ID, "late reply", models.RoleAssistant)
	require.NoError(t, err)
	assert.Equal(t, origin.ID, res.Session.ID)
	assert.Equal(t, other.ID, store.CurrentSessionID())
	assert.Empty(t, store.Session(other.ID).Messages)

	_, err = store.AddMessageTo("chat_gone", "x", models.RoleAssistant)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConversationStore_DeleteSession(t *testing.T) {
	store, repo := newTestConversationStore(t)
	a := store.CreateSession()
	b := store.CreateSession()
	c := store.CreateSession()

	// Deleting a non-current session keeps the pointer.
	assert.Equal(t, c.ID, store.DeleteSession(a.ID))

	// Deleting the current session moves to the new head.
	assert.Equal(t, b.ID, store.DeleteSession(c.ID))
	assert.Equal(t, b.ID, store.CurrentSessionID())

	assert.Equal(t, "", store.DeleteSession(b.ID))
	assert.Nil(t, store.CurrentSession())
	assert.Empty(t, store.Sessions())
	assert.Empty(t, storedSessions(t, repo))
}

func TestConversationStore_DeleteUnknownSession(t *testing.T) {
	store, _ := newTestConversationStore(t)
	a := store.CreateSession()
	assert.Equal(t, a.ID, store.DeleteSession("chat_unknown"))
	assert.Len(t, store.Sessions(), 1)
}

func TestConversationStore_ClearCurrentSession(t *testing.T) {
	store, repo := newTestConversationStore(t)
	assert.False(t, store.ClearCurrentSession())

	_, err := store.AddMessage("Tell me a joke", models.RoleUser)
	require.NoError(t, err)
	require.True(t, store.ClearCurrentSession())

	cur := store.CurrentSession()
	assert.Empty(t, cur.Messages)
	assert.Equal(t, models.PlaceholderTitle, cur.Title)
	assert.Empty(t, storedSessions(t, repo)[0].Messages)

	res, err := store.AddMessage("Fresh start", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "Fresh start", res.Session.Title)
}

func TestConversationStore_ReturnsCopies(t *testing.T) {
	store, _ := newTestConversationStore(t)
	_, err := store.AddMessage("original", models.RoleUser)
	require.NoError(t, err)

	cur := store.CurrentSession()
	cur.Title = "tampered"
	cur.Messages[0].Content = "tampered"

	again := store.CurrentSession()
	assert.Equal(t, "original", again.Title)
	assert.Equal(t, "original", again.Messages[0].Content)
}

func TestConversationStore_LoadRoundTrip(t *testing.T) {
	clock := newFakeClock()
	repo := &mocks.RecordRepositoryMock{}
	first := NewConversationStore(repo, &mocks.LoggerMock{}, WithClock(clock.Now))
	first.Load()
	_, err := first.AddMessage("persist me", models.RoleUser)
	require.NoError(t, err)
	_, err = first.AddMessage("ok", models.RoleAssistant)
	require.NoError(t, err)

	second := NewConversationStore(repo, &mocks.LoggerMock{})
	second.Load()

	assert.Equal(t, first.Sessions(), second.Sessions())
	assert.Equal(t, "", second.CurrentSessionID())
}

func TestConversationStore_LoadMalformed(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{}
	repo.Put(repositories.ChatsKey, `{"chats": "nope"}`)
	log := &mocks.LoggerMock{}
	store := NewConversationStore(repo, log)
	store.Load()

	assert.Empty(t, store.Sessions())
	assert.True(t, log.Contains("WARN", repositories.ChatsKey))
	_, ok := repo.Get(repositories.ChatsKey)
	assert.False(t, ok, "malformed record is removed")
}

func TestConversationStore_LoadSkipsInvalidEntries(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{}
	repo.Put(repositories.ChatsKey, `[
		{"id":"chat_a","title":"A","messages":null},
		{"id":"","title":"no id"},
		null,
		{"id":"chat_a","title":"dup"}
	]`)
	store := NewConversationStore(repo, &mocks.LoggerMock{})
	store.Load()

	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "A", sessions[0].Title)
	assert.NotNil(t, sessions[0].Messages)
}

func TestConversationStore_Summaries(t *testing.T) {
	store, _ := newTestConversationStore(t)
	a := store.CreateSession()
	_, err := store.AddMessage("hello", models.RoleUser)
	require.NoError(t, err)
	b := store.CreateSession()

	summaries := store.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, b.ID, summaries[0].ID)
	assert.True(t, summaries[0].Active)
	assert.Equal(t, a.ID, summaries[1].ID)
	assert.False(t, summaries[1].Active)
	assert.Equal(t, 1, summaries[1].MessageCount)
	assert.Equal(t, "hello", summaries[1].Title)
}

func TestConversationStore_ConcurrentAppends(t *testing.T) {
	store, _ := newTestConversationStore(t)
	store.CreateSession()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.AddMessage(fmt.Sprintf("msg %d", i), models.RoleUser)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.CurrentSession().Messages, 50)
}
