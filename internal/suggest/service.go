// Package suggest asks an OpenAI-compatible model for replacement text
// for a selected span. The engine only consumes the returned string;
// how it was generated is outside this service's contract.
package suggest

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are an editor embedded in a document tool. " +
	"Rewrite the selected passage as asked and return ONLY the replacement text, " +
	"with no quotes, preamble, or commentary."

// completer is the slice of the OpenAI client we use; tests substitute
// a fake.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Service requests replacement suggestions. A nil *Service is valid
// and reports itself unconfigured.
type Service struct {
	client completer
	model  string
}

// New creates a suggestion service. Returns nil when no API key is
// configured so callers can feature-gate the endpoint.
func New(apiKey, baseURL, model string) *Service {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Service{client: openai.NewClientWithConfig(cfg), model: model}
}

// NewWithClient wraps an existing client, used by tests.
func NewWithClient(client completer, model string) *Service {
	return &Service{client: client, model: model}
}

// Enabled reports whether suggestions are configured.
func (s *Service) Enabled() bool {
	return s != nil
}

// RequestReplacement asks the model for replacement text for
// selectedText. The surrounding context and the user's instruction
// steer the rewrite; the result is trimmed to the bare replacement.
func (s *Service) RequestReplacement(ctx context.Context, selectedText, surrounding, instruction string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("suggestions not configured")
	}
	if strings.TrimSpace(selectedText) == "" {
		return "", fmt.Errorf("empty selection")
	}
	if strings.TrimSpace(instruction) == "" {
		instruction = "Improve clarity and concision without changing the meaning."
	}

	userPrompt := fmt.Sprintf(
		"Surrounding context:\n%s\n\nSelected passage:\n%s\n\nInstruction: %s",
		surrounding, selectedText, instruction,
	)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("request replacement: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	replacement := strings.TrimSpace(resp.Choices[0].Message.Content)
	replacement = strings.Trim(replacement, `"`)
	if replacement == "" {
		return "", fmt.Errorf("model returned empty replacement")
	}
	return replacement, nil
}
