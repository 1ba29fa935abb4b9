// Package persona wraps the text-generation capability behind a single
// contract: role instructions plus a context bundle in, untrusted free-form
// analysis text out.
package persona

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/chimeralabs/chimera/config"
	"github.com/chimeralabs/chimera/internal/models"
)

// GenerationError reports a failed model call. Callers own the recovery
// policy; no retries happen at this boundary.
type GenerationError struct {
	Persona string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for %s: %v", e.Persona, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Service produces analysis text for a persona. Output carries no guaranteed
// structure and must be treated as natural language.
type Service interface {
	Generate(ctx context.Context, p Persona, bundle models.ContextBundle) (string, error)
}

// ChatService is the eino-backed Service used in production.
type ChatService struct {
	model model.BaseChatModel
}

// NewChatService builds a chat service against the configured
// openai-compatible backend.
func NewChatService(ctx context.Context, cfg *config.Config) (*ChatService, error) {
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	temperature := float32(0.1)
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BackendURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return &ChatService{model: chatModel}, nil
}

// NewChatServiceWithModel wraps an existing chat model.
func NewChatServiceWithModel(m model.BaseChatModel) *ChatService {
	return &ChatService{model: m}
}

// Generate renders the persona's instructions and the bundle's facts into a
// two-message exchange and returns the model's reply.
func (s *ChatService) Generate(ctx context.Context, p Persona, bundle models.ContextBundle) (string, error) {
	tpl := prompt.FromMessages(schema.FString,
		schema.SystemMessage("{instructions}"),
		schema.UserMessage("{facts}"),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"instructions": p.Instructions,
		"facts":        bundle.Format(),
	})
	if err != nil {
		return "", &GenerationError{Persona: p.Name, Err: err}
	}

	out, err := s.model.Generate(ctx, msgs)
	if err != nil {
		return "", &GenerationError{Persona: p.Name, Err: err}
	}
	return out.Content, nil
}
