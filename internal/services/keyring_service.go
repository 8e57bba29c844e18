package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/99designs/keyring"

	"megbot/internal/models"
)

const serviceName = "megbot"

// ErrCredentialMissing means no secret is stored for the scope and provider.
var ErrCredentialMissing = errors.New("credential missing")

// KeyringConfig selects the keyring backend. An empty Backend lets the
// library pick the platform default.
type KeyringConfig struct {
	Backend  string
	FileDir  string
	Password string
}

// OpenKeyring opens the OS keyring, or an encrypted file keyring when the
// file backend is requested.
func OpenKeyring(cfg KeyringConfig) (keyring.Keyring, error) {
	kcfg := keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(cfg.Password),
	}
	if cfg.Backend != "" {
		kcfg.AllowedBackends = []keyring.BackendType{keyring.BackendType(cfg.Backend)}
	}
	ring, err := keyring.Open(kcfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

// KeyringService stores provider API keys per client scope.
type KeyringService struct {
	ring keyring.Keyring
}

func NewKeyringService(ring keyring.Keyring) *KeyringService {
	return &KeyringService{ring: ring}
}

func itemKey(scope, provider string) string {
	return scope + "." + provider
}

func (s *KeyringService) StoreApiKey(scope, provider string, apiKey []byte) error {
	if len(apiKey) == 0 {
		return errors.New("API key is empty")
	}
	if provider == "" {
		return errors.New("provider is required")
	}

	return s.ring.Set(keyring.Item{
		Key:         itemKey(scope, provider),
		Data:        apiKey,
		Label:       provider + " API key",
		Description: "API key for " + provider + " used by MegBot",
	})
}

func (s *KeyringService) GetApiKey(scope, provider string) (string, error) {
	if provider == "" {
		return "", errors.New("provider is required")
	}
	item, err := s.ring.Get(itemKey(scope, provider))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%s: %w", provider, ErrCredentialMissing)
	}
	if err != nil {
		return "", err
	}
	if len(item.Data) == 0 {
		return "", fmt.Errorf("%s: %w", provider, ErrCredentialMissing)
	}
	return string(item.Data), nil
}

func (s *KeyringService) DeleteApiKey(scope, provider string) error {
	if provider == "" {
		return errors.New("provider is required")
	}
	err := s.ring.Remove(itemKey(scope, provider))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

// ListApiKeys describes the providers with a stored key for scope. Secrets
// are never returned.
func (s *KeyringService) ListApiKeys(scope string) ([]models.CredentialInfo, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	prefix := scope + "."
	results := []models.CredentialInfo{}
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		provider := strings.TrimPrefix(key, prefix)
		results = append(results, models.CredentialInfo{
			Provider:    provider,
			Label:       provider + " API key",
			Description: "API key for " + provider + " used by MegBot",
		})
	}
	return results, nil
}
