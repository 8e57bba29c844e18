package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megbot/internal/models"
	"megbot/internal/repositories"
	"megbot/internal/tests/mocks"
)

func boolPtr(b bool) *bool     { return &b }
func strPtr(s string) *string { return &s }

func storedPreferences(t *testing.T, repo *mocks.RecordRepositoryMock) map[string]any {
	t.Helper()
	raw, ok := repo.Get(repositories.PreferencesKey)
	require.True(t, ok, "preferences were not persisted")
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestPreferenceStore_DefaultsWhenAbsent(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{}
	store := NewPreferenceStore(repo, &mocks.LoggerMock{})
	store.Load()

	assert.Equal(t, models.DefaultPreferences(), store.Preferences())
	for _, key := range models.PreferenceKeys() {
		v, err := store.Get(key)
		require.NoError(t, err)
		want, _ := models.DefaultPreferences().Value(key)
		assert.Equal(t, want, v)
	}
	assert.Equal(t, 0, repo.Saves())
}

func TestPreferenceStore_LoadMalformedUsesFullDefaults(t *testing.T) {
	cases := map[string]string{
		"not json":   `{"darkMode": tr`,
		"wrong type": `{"darkMode": true, "model": 42}`,
		"array":      `[1,2,3]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &mocks.RecordRepositoryMock{}
			repo.Put(repositories.PreferencesKey, raw)
			log := &mocks.LoggerMock{}
			store := NewPreferenceStore(repo, log)
			store.Load()

			assert.Equal(t, models.DefaultPreferences(), store.Preferences())
			assert.True(t, log.Contains("WARN", repositories.PreferencesKey))
		})
	}
}

func TestPreferenceStore_LoadPartialKeepsDefaultsForMissingKeys(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{}
	repo.Put(repositories.PreferencesKey, `{"darkMode": true, "apiProvider": "anthropic"}`)
	store := NewPreferenceStore(repo, &mocks.LoggerMock{})
	store.Load()

	prefs := store.Preferences()
	assert.True(t, prefs.DarkMode)
	assert.Equal(t, "anthropic", prefs.APIProvider)
	assert.Equal(t, models.DefaultModel, prefs.Model)
	assert.False(t, prefs.HasAPIKey)
}

func TestPreferenceStore_LoadErrorTreatedAsNoData(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{
		LoadFunc: func(ctx context.Context, key string) (string, bool, error) {
			return "", false, errors.New("disk gone")
		},
	}
	log := &mocks.LoggerMock{}
	store := NewPreferenceStore(repo, log)
	store.Load()

	assert.Equal(t, models.DefaultPreferences(), store.Preferences())
	assert.True(t, log.Contains("ERROR", "disk gone"))
}

func TestPreferenceStore_SetPersists(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{}
	store := NewPreferenceStore(repo, &mocks.LoggerMock{})
	store.Load()

	v, err := store.Set(models.PrefDarkMode, true)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	got, err := store.Get(models.PrefDarkMode)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	stored := storedPreferences(t, repo)
	assert.Equal(t, true, stored["darkMode"])
	assert.Len(t, stored, 5)
}

func TestPreferenceStore_SetRejectsBadInput(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{}
	store := NewPreferenceStore(repo, &mocks.LoggerMock{})

	_, err := store.Set(models.PrefDarkMode, "yes")
	assert.Error(t, err)
	_, err = store.Set("fontSize", 12)
	assert.Error(t, err)
	_, err = store.Get("fontSize")
	assert.Error(t, err)

	assert.Equal(t, 0, repo.Saves())
	assert.Equal(t, models.DefaultPreferences(), store.Preferences())
}

func TestPreferenceStore_UpdateMerges(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{}
	store := NewPreferenceStore(repo, &mocks.LoggerMock{})
	_, err := store.Set(models.PrefSidebarCollapsed, true)
	require.NoError(t, err)

	merged := store.Update(models.PreferencesPatch{
		HasAPIKey:   boolPtr(true),
		APIProvider: strPtr("gemini"),
	})

	assert.True(t, merged.SidebarCollapsed)
	assert.True(t, merged.HasAPIKey)
	assert.Equal(t, "gemini", merged.APIProvider)
	assert.Equal(t, models.DefaultModel, merged.Model)
	assert.True(t, store.HasCredential())
	assert.Equal(t, "gemini", store.Provider())

	stored := storedPreferences(t, repo)
	assert.Equal(t, "gemini", stored["apiProvider"])
	assert.Equal(t, true, stored["sidebarCollapsed"])
}

func TestPreferenceStore_Reset(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{}
	store := NewPreferenceStore(repo, &mocks.LoggerMock{})
	store.Update(models.PreferencesPatch{DarkMode: boolPtr(true), Model: strPtr("gpt-4o-mini")})

	prefs := store.Reset()
	assert.Equal(t, models.DefaultPreferences(), prefs)
	assert.Equal(t, models.DefaultModel, store.Model())
	assert.Equal(t, false, storedPreferences(t, repo)["darkMode"])
}

func TestPreferenceStore_SaveFailureIsLogged(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{
		SaveFunc: func(ctx context.Context, key, value string) error {
			return errors.New("read-only")
		},
	}
	log := &mocks.LoggerMock{}
	store := NewPreferenceStore(repo, log)

	v, err := store.Set(models.PrefModel, "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", v)
	assert.Equal(t, "gpt-4o-mini", store.Model())
	assert.True(t, log.Contains("ERROR", "read-only"))
}

func TestPreferenceStore_SurvivesReload(t *testing.T) {
	repo := &mocks.RecordRepositoryMock{}
	first := NewPreferenceStore(repo, &mocks.LoggerMock{})
	first.Update(models.PreferencesPatch{DarkMode: boolPtr(true), HasAPIKey: boolPtr(true)})

	second := NewPreferenceStore(repo, &mocks.LoggerMock{})
	second.Load()
	assert.Equal(t, first.Preferences(), second.Preferences())
}
