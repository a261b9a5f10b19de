package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type fakeCompleter struct {
	fn func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return f.fn(req)
}

func respondWith(content string) *fakeCompleter {
	return &fakeCompleter{fn: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: content}},
			},
		}, nil
	}}
}

func TestRequestReplacementTrimsResponse(t *testing.T) {
	svc := NewWithClient(respondWith("  \"The dog sprinted.\"  "), "test-model")

	got, err := svc.RequestReplacement(context.Background(), "The dog ran.", "", "make it vivid")
	if err != nil {
		t.Fatalf("RequestReplacement failed: %v", err)
	}
	if got != "The dog sprinted." {
		t.Errorf("replacement = %q", got)
	}
}

func TestRequestReplacementIncludesSelectionInPrompt(t *testing.T) {
	var captured openai.ChatCompletionRequest
	fake := &fakeCompleter{fn: func(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		captured = req
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "ok"}},
			},
		}, nil
	}}
	svc := NewWithClient(fake, "test-model")

	if _, err := svc.RequestReplacement(context.Background(), "The dog ran.", "The cat sat. The dog ran.", ""); err != nil {
		t.Fatalf("RequestReplacement failed: %v", err)
	}
	if captured.Model != "test-model" {
		t.Errorf("model = %q", captured.Model)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(captured.Messages))
	}
	if !strings.Contains(captured.Messages[1].Content, "The dog ran.") {
		t.Error("user prompt missing selected text")
	}
}

func TestRequestReplacementErrors(t *testing.T) {
	svc := NewWithClient(respondWith("anything"), "m")
	if _, err := svc.RequestReplacement(context.Background(), "   ", "", ""); err == nil {
		t.Error("expected error for empty selection")
	}

	empty := NewWithClient(&fakeCompleter{fn: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, nil
	}}, "m")
	if _, err := empty.RequestReplacement(context.Background(), "text", "", ""); err == nil {
		t.Error("expected error for empty choice list")
	}

	failing := NewWithClient(&fakeCompleter{fn: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, errors.New("rate limited")
	}}, "m")
	if _, err := failing.RequestReplacement(context.Background(), "text", "", ""); err == nil {
		t.Error("expected wrapped transport error")
	}
}

func TestNewFeatureGate(t *testing.T) {
	if svc := New("", "", "model"); svc.Enabled() {
		t.Error("service without API key should be disabled")
	}
	if svc := New("key", "", "model"); !svc.Enabled() {
		t.Error("service with API key should be enabled")
	}

	var nilSvc *Service
	if _, err := nilSvc.RequestReplacement(context.Background(), "x", "", ""); err == nil {
		t.Error("nil service must error, not panic")
	}
}
