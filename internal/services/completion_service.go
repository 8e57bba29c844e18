package services

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"megbot/internal/llm/client"
	"megbot/internal/models"
)

// CredentialSource looks up the provider secret for a client scope.
type CredentialSource interface {
	GetApiKey(scope, provider string) (string, error)
}

type CompletionConfig struct {
	MaxTokens int
	Factory   client.Factory
	Logger    *zap.Logger
}

// CompletionService answers one user message with the selected provider
// model, over the client's history.
type CompletionService struct {
	catalog   ModelCatalogService
	vault     CredentialSource
	history   *HistoryService
	factory   client.Factory
	maxTokens int
	log       *zap.Logger
}

func NewCompletionService(catalog ModelCatalogService, vault CredentialSource, history *HistoryService, cfg CompletionConfig) *CompletionService {
	if cfg.Factory == nil {
		cfg.Factory = client.NewChatModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = client.DefaultMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &CompletionService{
		catalog:   catalog,
		vault:     vault,
		history:   history,
		factory:   cfg.Factory,
		maxTokens: cfg.MaxTokens,
		log:       cfg.Logger,
	}
}

// Complete resolves modelKey, appends the user message to the scope's
// history and returns the assistant reply. An empty modelKey selects the
// catalog default. The user message stays in history when the provider fails.
func (s *CompletionService) Complete(ctx context.Context, scope, content, modelKey string) (string, error) {
	mdl, err := s.resolve(modelKey)
	if err != nil {
		return "", err
	}

	apiKey, err := s.vault.GetApiKey(scope, mdl.ProviderID)
	if err != nil {
		return "", err
	}

	chat, err := s.factory(ctx, client.Options{
		Provider:  mdl.ProviderID,
		APIKey:    apiKey,
		Model:     mdl.APIName,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("build %s model: %w", mdl.ProviderID, err)
	}

	s.history.Append(scope, models.HistoryMessage{Role: string(models.RoleUser), Content: content})
	reply, err := client.Generate(ctx, chat, toSchemaMessages(s.history.Snapshot(scope)))
	if err != nil {
		s.log.Warn("completion failed",
			zap.String("model", mdl.Key),
			zap.String("provider", mdl.ProviderID),
			zap.Error(err))
		return "", err
	}

	s.history.Append(scope, models.HistoryMessage{Role: string(models.RoleAssistant), Content: reply})
	s.log.Debug("completion",
		zap.String("model", mdl.Key),
		zap.Int("reply_len", len(reply)))
	return reply, nil
}

func (s *CompletionService) resolve(modelKey string) (*models.LLMModel, error) {
	if modelKey == "" {
		def := s.catalog.DefaultModel()
		return &def, nil
	}
	return s.catalog.GetModel(modelKey)
}

func toSchemaMessages(history []models.HistoryMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case roleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case string(models.RoleUser):
			out = append(out, schema.UserMessage(m.Content))
		case string(models.RoleAssistant):
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}
