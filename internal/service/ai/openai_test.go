package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kieran/voicechat/internal/config"
)

type capturedChatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, body string, captured *capturedChatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
}

func TestOpenAICompleterComplete(t *testing.T) {
	var captured capturedChatRequest
	server := newChatServer(t, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hi! How can I help you today?"},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`, &captured)
	defer server.Close()

	completer, err := NewOpenAICompleter(config.AIConfig{
		Provider:  config.ProviderOpenAI,
		APIKey:    "sk-test",
		Model:     "gpt-test",
		BaseURL:   server.URL + "/v1",
		MaxTokens: config.DefaultMaxTokens,
	})
	if err != nil {
		t.Fatalf("NewOpenAICompleter err: %v", err)
	}

	reply, err := completer.Complete(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}

	if reply != "Hi! How can I help you today?" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if captured.Model != "gpt-test" || captured.MaxTokens != 1000 {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" || captured.Messages[0].Content != "hello there" {
		t.Fatalf("expected a single user message, got %+v", captured.Messages)
	}
}

func TestOpenAICompleterNoChoices(t *testing.T) {
	server := newChatServer(t, `{"id":"1","object":"chat.completion","choices":[]}`, nil)
	defer server.Close()

	completer, err := NewOpenAICompleter(config.AIConfig{APIKey: "sk-test", Model: "gpt-test", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewOpenAICompleter err: %v", err)
	}

	if _, err := completer.Complete(context.Background(), "hello"); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
}

func TestNewCompleterValidation(t *testing.T) {
	if _, err := NewCompleter(context.Background(), config.AIConfig{Provider: config.ProviderOpenAI, Model: "gpt-test"}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := NewCompleter(context.Background(), config.AIConfig{Provider: "oracle", APIKey: "k", Model: "m"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
