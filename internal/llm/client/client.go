package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	DefaultMaxTokens = 500

	defaultFallbackPrompt = "Continue the conversation."
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrMissingAPIKey       = errors.New("api key is required")
	ErrEmptyCompletion     = errors.New("model returned an empty completion")
)

// Options selects and configures one provider chat model.
type Options struct {
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string
}

// Factory builds a chat model. NewChatModel is the production factory.
type Factory func(ctx context.Context, opts Options) (model.BaseChatModel, error)

// SupportedProviders lists the providers NewChatModel can build.
func SupportedProviders() []string {
	return []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini}
}

// IsSupportedProvider reports whether provider is known.
func IsSupportedProvider(provider string) bool {
	for _, p := range SupportedProviders() {
		if p == provider {
			return true
		}
	}
	return false
}

func NewChatModel(ctx context.Context, opts Options) (model.BaseChatModel, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("model name is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	switch opts.Provider {
	case ProviderOpenAI:
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:    opts.APIKey,
			Model:     opts.Model,
			MaxTokens: &maxTokens,
			BaseURL:   opts.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return m, nil

	case ProviderAnthropic:
		cfg := &claude.Config{
			APIKey:    opts.APIKey,
			Model:     opts.Model,
			MaxTokens: maxTokens,
		}
		if opts.BaseURL != "" {
			base := opts.BaseURL
			cfg.BaseURL = &base
		}
		m, err := claude.NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create claude model: %w", err)
		}
		return m, nil

	case ProviderGemini:
		clientCfg := &genai.ClientConfig{
			APIKey:  opts.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if opts.BaseURL != "" {
			clientCfg.HTTPOptions.BaseURL = opts.BaseURL
		}
		gc, err := genai.NewClient(ctx, clientCfg)
		if err != nil {
			return nil, fmt.Errorf("create genai client: %w", err)
		}
		m, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:    gc,
			Model:     opts.Model,
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini model: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, opts.Provider)
}

// Generate runs one completion over history and returns the reply text.
func Generate(ctx context.Context, m model.BaseChatModel, history []*schema.Message) (string, error) {
	input, _ := normalizeConversationHistory(history, "")
	out, err := m.Generate(ctx, input)
	if err != nil {
		return "", err
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return out.Content, nil
}

// normalizeConversationHistory makes the first non-system message a user
// message, which Claude and Gemini require. Leading assistant messages are
// dropped; when no user message exists a fallback prompt is inserted. The
// bool reports whether the slice was rewritten.
func normalizeConversationHistory(msgs []*schema.Message, fallback string) ([]*schema.Message, bool) {
	prefix := 0
	for prefix < len(msgs) && msgs[prefix].Role == schema.System {
		prefix++
	}
	if prefix < len(msgs) && msgs[prefix].Role == schema.User {
		return msgs, false
	}

	firstUser := -1
	for i := prefix; i < len(msgs); i++ {
		if msgs[i].Role == schema.User {
			firstUser = i
			break
		}
	}

	out := make([]*schema.Message, 0, len(msgs)+1)
	out = append(out, msgs[:prefix]...)
	if firstUser >= 0 {
		return append(out, msgs[firstUser:]...), true
	}

	if strings.TrimSpace(fallback) == "" {
		fallback = defaultFallbackPrompt
	}
	out = append(out, schema.UserMessage(fallback))
	return append(out, msgs[prefix:]...), true
}
