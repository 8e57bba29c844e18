package client

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func msg(role schema.RoleType, content string) *schema.Message {
	return &schema.Message{Role: role, Content: content}
}

func TestNormalizeConversationHistory_PreservesValidHistory(t *testing.T) {
	original := []*schema.Message{
		msg(schema.User, "first"),
		msg(schema.Assistant, "reply"),
	}

	result, changed := normalizeConversationHistory(original, "ignored")

	if changed {
		t.Fatalf("expected no change, got changed history")
	}
	if len(result) != len(original) {
		t.Fatalf("unexpected length: got %d want %d", len(result), len(original))
	}
	for i := range original {
		if result[i] != original[i] {
			t.Fatalf("message pointer at %d changed", i)
		}
	}
}

func TestNormalizeConversationHistory_AllowsLeadingSystem(t *testing.T) {
	original := []*schema.Message{
		msg(schema.System, "You are a helpful assistant."),
		msg(schema.User, "first"),
	}

	result, changed := normalizeConversationHistory(original, "ignored")

	if changed {
		t.Fatalf("expected no change when first non-system is user")
	}
	if len(result) != len(original) {
		t.Fatalf("unexpected length: got %d want %d", len(result), len(original))
	}
}

func TestNormalizeConversationHistory_DropsLeadingAssistant(t *testing.T) {
	original := []*schema.Message{
		msg(schema.System, "sys"),
		msg(schema.Assistant, "intro"),
		msg(schema.User, "question"),
		msg(schema.Assistant, "answer"),
	}

	result, changed := normalizeConversationHistory(original, "fallback")

	if !changed {
		t.Fatalf("expected change when leading assistant present")
	}
	if len(result) != 3 {
		t.Fatalf("unexpected length: got %d want 3", len(result))
	}
	if result[0].Role != schema.System {
		t.Fatalf("system prompt must stay first, got %q", result[0].Role)
	}
	if result[1].Role != schema.User || result[1].Content != "question" {
		t.Fatalf("unexpected first turn: %q %q", result[1].Role, result[1].Content)
	}
}

func TestNormalizeConversationHistory_InsertsFallbackWhenNoUser(t *testing.T) {
	original := []*schema.Message{
		msg(schema.Assistant, "reply"),
	}

	result, changed := normalizeConversationHistory(original, "fallback message")

	if !changed {
		t.Fatalf("expected change when inserting fallback")
	}
	if len(result) != 2 {
		t.Fatalf("unexpected length: got %d want 2", len(result))
	}
	if result[0].Role != schema.User {
		t.Fatalf("first message role %q, expected user", result[0].Role)
	}
	if result[0].Content != "fallback message" {
		t.Fatalf("fallback content mismatch: %q", result[0].Content)
	}
}

func TestNormalizeConversationHistory_UsesDefaultFallbackWhenEmpty(t *testing.T) {
	original := []*schema.Message{
		msg(schema.Assistant, "reply"),
	}

	result, changed := normalizeConversationHistory(original, "")

	if !changed {
		t.Fatalf("expected change when inserting default fallback")
	}
	if result[0].Role != schema.User {
		t.Fatalf("first message role %q, expected user", result[0].Role)
	}
	if result[0].Content == "" {
		t.Fatalf("default fallback content should not be empty")
	}
}

func TestNewChatModel_Validation(t *testing.T) {
	ctx := context.Background()

	if _, err := NewChatModel(ctx, Options{Provider: ProviderOpenAI, Model: "gpt-3.5-turbo"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewChatModel(ctx, Options{Provider: ProviderOpenAI, APIKey: "sk-test"}); err == nil {
		t.Fatalf("expected error for missing model name")
	}
	if _, err := NewChatModel(ctx, Options{Provider: "mistral", APIKey: "k", Model: "m"}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestNewChatModel_BuildsProviders(t *testing.T) {
	ctx := context.Background()
	for _, provider := range []string{ProviderOpenAI, ProviderAnthropic} {
		m, err := NewChatModel(ctx, Options{Provider: provider, APIKey: "test-key", Model: "test-model"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", provider, err)
		}
		if m == nil {
			t.Fatalf("%s: expected a model", provider)
		}
	}
}

func TestIsSupportedProvider(t *testing.T) {
	for _, p := range SupportedProviders() {
		if !IsSupportedProvider(p) {
			t.Fatalf("%s should be supported", p)
		}
	}
	if IsSupportedProvider("OpenAI") {
		t.Fatalf("provider ids are case sensitive")
	}
}

type stubModel struct {
	reply *schema.Message
	err   error
	seen  []*schema.Message
}

func (s *stubModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	s.seen = input
	return s.reply, s.err
}

func (s *stubModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	s.seen = input
	if s.err != nil {
		return nil, s.err
	}
	return schema.StreamReaderFromArray([]*schema.Message{s.reply}), nil
}

func TestGenerate(t *testing.T) {
	stub := &stubModel{reply: schema.AssistantMessage("hello", nil)}
	history := []*schema.Message{msg(schema.Assistant, "stale"), msg(schema.User, "hi")}

	got, err := Generate(context.Background(), stub, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("unexpected reply %q", got)
	}
	if len(stub.seen) != 1 || stub.seen[0].Role != schema.User {
		t.Fatalf("history was not normalized: %+v", stub.seen)
	}
}

func TestGenerate_Errors(t *testing.T) {
	boom := errors.New("rate limited")
	if _, err := Generate(context.Background(), &stubModel{err: boom}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if _, err := Generate(context.Background(), &stubModel{reply: schema.AssistantMessage("  ", nil)}, nil); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}
