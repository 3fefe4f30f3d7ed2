package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockProvider returns canned responses in order and records every request.
type mockProvider struct {
	responses []string
	requests  []ChatRequest
	err       error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	content := ""
	if len(m.responses) > 0 {
		content = m.responses[0]
		m.responses = m.responses[1:]
	}
	return &ChatResponse{Content: content, Model: req.Model}, nil
}

var testCatalog = []ToolDescriptor{
	{Name: "search_news", Description: "Search news by keyword", InputSchema: map[string]any{"type": "object"}},
	{Name: "analyze_sentiment", Description: "Score sentiment of text", InputSchema: map[string]any{"type": "object"}},
}

func TestGenerateFencedPlan(t *testing.T) {
	provider := &mockProvider{responses: []string{
		"Here is the plan:\n```json\n[{\"name\": \"search_news\", \"arguments\": {\"keyword\": \"ev\"}}]\n```",
	}}
	g := NewPlanGenerator(provider, "mock/m1", nil)

	plan, err := g.Generate(context.Background(), "ev news", testCatalog)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan))
	}
	if plan[0].Tool != "search_news" {
		t.Errorf("expected search_news, got %s", plan[0].Tool)
	}
	if plan[0].Arguments["keyword"] != "ev" {
		t.Errorf("expected keyword ev, got %v", plan[0].Arguments["keyword"])
	}
}

func TestGenerateRawJSONWithoutFence(t *testing.T) {
	provider := &mockProvider{responses: []string{
		`[{"tool": "search_news", "arguments": {"keyword": "ai"}}]`,
	}}
	g := NewPlanGenerator(provider, "mock/m1", nil)

	plan, err := g.Generate(context.Background(), "ai news", testCatalog)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(plan) != 1 || plan[0].Tool != "search_news" {
		t.Fatalf("expected parsed raw JSON plan, got %v", plan)
	}
}

func TestGenerateGarbageYieldsEmptyPlan(t *testing.T) {
	cases := []string{
		"I cannot help with that.",
		`{"tool": "search_news"}`, // object, not array
		`"just a string"`,
		"```json\nnot json at all\n```",
	}
	for _, resp := range cases {
		provider := &mockProvider{responses: []string{resp}}
		g := NewPlanGenerator(provider, "mock/m1", nil)

		plan, err := g.Generate(context.Background(), "q", testCatalog)
		if err != nil {
			t.Fatalf("generate %q: %v", resp, err)
		}
		if len(plan) != 0 {
			t.Errorf("expected empty plan for %q, got %d steps", resp, len(plan))
		}
	}
}

func TestGenerateMissingArgumentsDefaulted(t *testing.T) {
	provider := &mockProvider{responses: []string{`[{"name": "search_news"}]`}}
	g := NewPlanGenerator(provider, "mock/m1", nil)

	plan, _ := g.Generate(context.Background(), "q", testCatalog)
	if len(plan) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan))
	}
	if plan[0].Arguments == nil {
		t.Error("expected non-nil arguments map")
	}
}

func TestGenerateProviderErrorPropagates(t *testing.T) {
	provider := &mockProvider{err: errors.New("boom")}
	g := NewPlanGenerator(provider, "mock/m1", nil)

	if _, err := g.Generate(context.Background(), "q", testCatalog); err == nil {
		t.Fatal("expected error from provider failure")
	}
}

func TestGenerateRequestShape(t *testing.T) {
	provider := &mockProvider{responses: []string{"[]"}}
	g := NewPlanGenerator(provider, "mock/m1", nil)

	if _, err := g.Generate(context.Background(), "the query", testCatalog); err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(provider.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(provider.requests))
	}
	req := provider.requests[0]

	// Catalog attached with tool-calling disabled
	if len(req.Tools) != 2 {
		t.Errorf("expected 2 tools attached, got %d", len(req.Tools))
	}
	if req.ToolChoice != "none" {
		t.Errorf("expected tool choice none, got %q", req.ToolChoice)
	}

	// Two-message exchange: system instruction plus the raw query
	if !strings.Contains(req.SystemPrompt, "search_news") ||
		!strings.Contains(req.SystemPrompt, "Score sentiment of text") {
		t.Error("expected every tool name and description in the system prompt")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "the query" {
		t.Errorf("expected single user message with raw query, got %v", req.Messages)
	}
}
