package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"megbot/internal/gateway"
	"megbot/internal/models"
)

// Feedback shown by the settings panel and the first-run overlay.
const (
	MsgCredentialAlreadySaved = "API key is already saved"
	MsgCredentialInvalid      = "Please enter a valid API key"
	MsgCredentialSaved        = "API key saved successfully!"
	MsgCredentialSaveFailed   = "Failed to save API key"
	MsgCredentialSaveError    = "Error saving API key. Please try again."
	MsgProviderChangeConfirm  = "Changing the provider will require you to enter a new API key. Continue?"
	MsgProviderRequired       = "Please select a provider"

	labelSave   = "Save"
	labelUpdate = "Update"
)

// CredentialSettings models the API key field. The typed secret lives only
// in memory until it is handed to the server; the client keeps just the
// hasApiKey flag.
type CredentialSettings struct {
	prefs   PreferenceStore
	gateway ChatGateway
	log     logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	ctx     context.Context
	pending string
}

func NewCredentialSettings(prefs PreferenceStore, gw ChatGateway, log logger.Logger, timeout time.Duration) *CredentialSettings {
	if timeout <= 0 {
		timeout = gateway.DefaultTimeout
	}
	return &CredentialSettings{
		prefs:   prefs,
		gateway: gw,
		log:     log,
		timeout: timeout,
		ctx:     context.Background(),
	}
}

func (s *CredentialSettings) Startup(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
}

func (s *CredentialSettings) View() models.CredentialView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *CredentialSettings) viewLocked() models.CredentialView {
	prefs := s.prefs.Preferences()
	view := models.CredentialView{
		State:       models.CredentialNotConfigured,
		Provider:    prefs.APIProvider,
		ActionLabel: labelSave,
	}
	if prefs.HasAPIKey {
		view.ActionLabel = labelUpdate
	}
	switch {
	case s.pending != "":
		view.State = models.CredentialPendingSave
	case prefs.HasAPIKey:
		view.State = models.CredentialConfiguredMasked
		view.Masked = true
	}
	return view
}

// Edit records what the user typed. Clearing the field returns to the state
// implied by preferences.
func (s *CredentialSettings) Edit(text string) models.CredentialView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = strings.TrimSpace(text)
	return s.viewLocked()
}

// Save submits the typed secret for provider, or for the saved provider when
// provider is empty.
func (s *CredentialSettings) Save(provider string) models.CredentialResult {
	s.mu.Lock()
	secret := s.pending
	view := s.viewLocked()
	s.mu.Unlock()

	if provider = strings.TrimSpace(provider); provider == "" {
		provider = view.Provider
	}

	switch view.State {
	case models.CredentialConfiguredMasked:
		return models.CredentialResult{OK: true, Message: MsgCredentialAlreadySaved, View: view}
	case models.CredentialNotConfigured:
		return models.CredentialResult{Message: MsgCredentialInvalid, View: view}
	}

	ok, serverMsg, err := s.submit(secret, provider)
	switch {
	case err != nil:
		return models.CredentialResult{Message: MsgCredentialSaveError, View: s.View()}
	case !ok:
		if serverMsg == "" {
			serverMsg = MsgCredentialSaveFailed
		}
		return models.CredentialResult{Message: serverMsg, View: s.View()}
	}
	return models.CredentialResult{OK: true, Message: MsgCredentialSaved, View: s.View()}
}

// SaveInitial is the first-run overlay path with an explicit secret.
func (s *CredentialSettings) SaveInitial(secret, provider string) models.CredentialResult {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return models.CredentialResult{Message: MsgCredentialInvalid, View: s.View()}
	}
	if provider = strings.TrimSpace(provider); provider == "" {
		provider = s.prefs.Provider()
	}

	ok, serverMsg, err := s.submit(secret, provider)
	switch {
	case err != nil:
		return models.CredentialResult{Message: MsgCredentialSaveError, View: s.View()}
	case !ok:
		if serverMsg == "" {
			serverMsg = "Unknown error"
		}
		return models.CredentialResult{Message: MsgCredentialSaveFailed + ": " + serverMsg, View: s.View()}
	}
	return models.CredentialResult{OK: true, Message: MsgCredentialSaved, View: s.View()}
}

func (s *CredentialSettings) submit(secret, provider string) (bool, string, error) {
	ctx, cancel := context.WithTimeout(s.baseContext(), s.timeout)
	defer cancel()

	resp, err := s.gateway.SaveCredential(ctx, secret, provider)
	if err != nil {
		s.log.Error(fmt.Sprintf("save credential for %s: %v", provider, err))
		return false, "", err
	}
	if resp.Status != models.StatusSuccess {
		s.log.Warning(fmt.Sprintf("credential for %s rejected: %s", provider, resp.Message))
		return false, resp.Message, nil
	}

	hasKey := true
	s.prefs.Update(models.PreferencesPatch{HasAPIKey: &hasKey, APIProvider: &provider})

	s.mu.Lock()
	s.pending = ""
	s.mu.Unlock()
	return true, "", nil
}

// ChangeProvider switches the provider. A configured credential is
// invalidated, which needs the user's confirmation first.
func (s *CredentialSettings) ChangeProvider(provider string, confirmed bool) models.CredentialResult {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return models.CredentialResult{Message: MsgProviderRequired, View: s.View()}
	}

	if !s.prefs.HasCredential() {
		if _, err := s.prefs.Set(models.PrefAPIProvider, provider); err != nil {
			return models.CredentialResult{Message: err.Error(), View: s.View()}
		}
		return models.CredentialResult{OK: true, View: s.View()}
	}
	if provider == s.prefs.Provider() {
		return models.CredentialResult{OK: true, View: s.View()}
	}
	if !confirmed {
		return models.CredentialResult{NeedsConfirmation: true, Message: MsgProviderChangeConfirm, View: s.View()}
	}

	previous := s.prefs.Provider()
	hasKey := false
	s.prefs.Update(models.PreferencesPatch{HasAPIKey: &hasKey, APIProvider: &provider})
	s.mu.Lock()
	s.pending = ""
	s.mu.Unlock()

	s.forget(previous)
	return models.CredentialResult{OK: true, View: s.View()}
}

// forget drops the server copy of a secret the client no longer uses.
// Failures are only logged; the local change stands.
func (s *CredentialSettings) forget(provider string) {
	ctx, cancel := context.WithTimeout(s.baseContext(), s.timeout)
	defer cancel()

	resp, err := s.gateway.DeleteCredential(ctx, provider)
	switch {
	case err != nil:
		s.log.Warning(fmt.Sprintf("delete credential for %s: %v", provider, err))
	case resp.Status != models.StatusSuccess:
		s.log.Warning(fmt.Sprintf("delete credential for %s rejected: %s", provider, resp.Message))
	}
}

// StoredProviders lists the providers the server holds a secret for. It
// returns an empty list when the server cannot be reached.
func (s *CredentialSettings) StoredProviders() []string {
	ctx, cancel := context.WithTimeout(s.baseContext(), s.timeout)
	defer cancel()

	list, err := s.gateway.ListCredentials(ctx)
	if err != nil {
		s.log.Warning(fmt.Sprintf("list credentials: %v", err))
		return []string{}
	}
	providers := make([]string, 0, len(list))
	for _, info := range list {
		providers = append(providers, info.Provider)
	}
	return providers
}

func (s *CredentialSettings) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
