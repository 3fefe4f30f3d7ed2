package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/houndlabs/newshound/internal/config"
	"github.com/houndlabs/newshound/internal/engine"
)

func TestNewOpenAIProvider(t *testing.T) {
	cfg := config.ProviderConfig{
		BaseURL: "https://api.openai.com/v1",
		APIKey:  "test-key",
	}

	p := NewOpenAIProvider("openai", cfg)

	if p.Name() != "openai" {
		t.Errorf("expected name 'openai', got '%s'", p.Name())
	}
	if p.apiKey != "test-key" {
		t.Errorf("expected API key 'test-key', got %s", p.apiKey)
	}
}

func TestOpenAIChatSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("expected Authorization header")
		}

		resp := `{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"model": "qwen-plus",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "hello there"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
	defer server.Close()

	p := NewOpenAIProvider("dashscope", config.ProviderConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
	})

	resp, err := p.Chat(context.Background(), engine.ChatRequest{
		Model:    "qwen-plus",
		Messages: []engine.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "hello there" {
		t.Errorf("expected content 'hello there', got %q", resp.Content)
	}
	if resp.TokensInput != 10 || resp.TokensOutput != 5 {
		t.Errorf("expected usage 10/5, got %d/%d", resp.TokensInput, resp.TokensOutput)
	}
}

func TestOpenAIChatAttachesToolsWithChoiceNone(t *testing.T) {
	var captured openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"model":"m","choices":[{"message":{"role":"assistant","content":"[]"},"finish_reason":"stop"}],"usage":{}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("x", config.ProviderConfig{BaseURL: server.URL, APIKey: "k"})

	_, err := p.Chat(context.Background(), engine.ChatRequest{
		Model:    "m",
		Messages: []engine.ChatMessage{{Role: "user", Content: "q"}},
		Tools: []engine.ToolDescriptor{
			{Name: "search_news", Description: "d", InputSchema: map[string]any{"type": "object"}},
		},
		ToolChoice: "none",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if len(captured.Tools) != 1 {
		t.Fatalf("expected 1 tool on the wire, got %d", len(captured.Tools))
	}
	if captured.Tools[0].Function.Name != "search_news" {
		t.Errorf("expected function name search_news, got %s", captured.Tools[0].Function.Name)
	}
	if captured.ToolChoice != "none" {
		t.Errorf("expected tool_choice none, got %q", captured.ToolChoice)
	}
}

func TestOpenAIChatSystemPromptFirst(t *testing.T) {
	var captured openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"model":"m","choices":[{"message":{"content":"ok"},"finish_reason":"stop"}],"usage":{}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("x", config.ProviderConfig{BaseURL: server.URL, APIKey: "k"})
	_, err := p.Chat(context.Background(), engine.ChatRequest{
		Model:        "m",
		SystemPrompt: "plan things",
		Messages:     []engine.ChatMessage{{Role: "user", Content: "q"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content != "plan things" {
		t.Errorf("expected system message first, got %+v", captured.Messages[0])
	}
}

func TestOpenAIChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"auth_error","code":"401"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("x", config.ProviderConfig{BaseURL: server.URL, APIKey: "bad"})
	_, err := p.Chat(context.Background(), engine.ChatRequest{
		Model:    "m",
		Messages: []engine.ChatMessage{{Role: "user", Content: "q"}},
	})
	if err == nil {
		t.Fatal("expected error from 401 response")
	}
}
