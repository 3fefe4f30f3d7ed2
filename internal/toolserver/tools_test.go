package toolserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/houndlabs/newshound/internal/config"
	"github.com/houndlabs/newshound/internal/engine"
	"github.com/houndlabs/newshound/internal/report"
)

func TestNewsToolSearch(t *testing.T) {
	var gotKey, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		var req serperRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotQuery = req.Q
		json.NewEncoder(w).Encode(map[string]any{
			"news": []map[string]string{
				{"title": "Xiaomi ships SU7", "link": "https://example.com/1", "source": "Reuters", "date": "2 hours ago", "snippet": "Deliveries begin."},
				{"title": "EV market heats up", "link": "https://example.com/2", "source": "Bloomberg"},
			},
		})
	}))
	defer srv.Close()

	tool := NewNewsTool(config.SerperConfig{APIKey: "k123", BaseURL: srv.URL})
	out, err := tool.Invoke(context.Background(), map[string]any{"keyword": "小米汽车"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if gotKey != "k123" {
		t.Errorf("expected API key header, got %q", gotKey)
	}
	if gotQuery != "小米汽车" {
		t.Errorf("expected query forwarded, got %q", gotQuery)
	}
	if !strings.Contains(out, "1. Xiaomi ships SU7") {
		t.Errorf("expected numbered headline, got:\n%s", out)
	}
	if !strings.Contains(out, "https://example.com/2") {
		t.Errorf("expected link for second result, got:\n%s", out)
	}
}

func TestNewsToolNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"news": []any{}})
	}))
	defer srv.Close()

	tool := NewNewsTool(config.SerperConfig{APIKey: "k", BaseURL: srv.URL})
	out, err := tool.Invoke(context.Background(), map[string]any{"keyword": "nothing"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(out, "No news found") {
		t.Errorf("expected empty-result message, got %q", out)
	}
}

func TestNewsToolAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer srv.Close()

	tool := NewNewsTool(config.SerperConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := tool.Invoke(context.Background(), map[string]any{"keyword": "go"})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("expected 403 error, got %v", err)
	}
}

func TestNewsToolRequiresKeyword(t *testing.T) {
	tool := NewNewsTool(config.SerperConfig{APIKey: "k"})
	if _, err := tool.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing keyword")
	}
}

type fakeProvider struct {
	response string
	gotReq   engine.ChatRequest
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Chat(_ context.Context, req engine.ChatRequest) (*engine.ChatResponse, error) {
	p.gotReq = req
	return &engine.ChatResponse{Content: p.response, Model: req.Model}, nil
}

func TestSentimentToolWritesReport(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeProvider{response: "## 情感倾向\npositive"}
	tool := NewSentimentTool(provider, "qwen-plus", dir)

	out, err := tool.Invoke(context.Background(), map[string]any{
		"text":     "Xiaomi ships SU7",
		"filename": "小米汽车_报道.md",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "## 情感倾向\npositive" {
		t.Errorf("expected report text returned, got %q", out)
	}
	if provider.gotReq.Model != "qwen-plus" {
		t.Errorf("expected configured model used, got %q", provider.gotReq.Model)
	}
	if len(provider.gotReq.Messages) != 1 || provider.gotReq.Messages[0].Content != "Xiaomi ships SU7" {
		t.Errorf("expected news text as the user message, got %+v", provider.gotReq.Messages)
	}

	artifact, err := report.Read(filepath.Join(dir, "小米汽车_报道.md"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if artifact.Body != "## 情感倾向\npositive" {
		t.Errorf("expected report body persisted, got %q", artifact.Body)
	}
	if artifact.Meta.Title != "Sentiment report" {
		t.Errorf("expected frontmatter title, got %q", artifact.Meta.Title)
	}
}

func TestSentimentToolRequiresText(t *testing.T) {
	tool := NewSentimentTool(&fakeProvider{}, "m", t.TempDir())
	if _, err := tool.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing text")
	}
}

func TestEmailToolSendsAttachment(t *testing.T) {
	dir := t.TempDir()
	attachPath := filepath.Join(dir, "report.md")
	if err := os.WriteFile(attachPath, []byte("report body"), 0o644); err != nil {
		t.Fatalf("write attachment: %v", err)
	}

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	tool := NewEmailTool(config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		User:     "bot@example.com",
		Password: "secret",
	})
	tool.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	out, err := tool.Invoke(context.Background(), map[string]any{
		"to":              "user@example.com",
		"subject":         "每日新闻摘要",
		"body":            "see attached",
		"attachment_path": attachPath,
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(out, "report.md") {
		t.Errorf("expected attachment named in confirmation, got %q", out)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("expected smtp address, got %q", gotAddr)
	}
	if gotFrom != "bot@example.com" {
		t.Errorf("expected from fallback to user, got %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "user@example.com" {
		t.Errorf("unexpected recipients: %v", gotTo)
	}

	msg := string(gotMsg)
	if !strings.Contains(msg, "multipart/mixed") {
		t.Error("expected multipart message")
	}
	if !strings.Contains(msg, `filename="report.md"`) {
		t.Error("expected attachment disposition header")
	}
	if !strings.Contains(msg, "Content-Transfer-Encoding: base64") {
		t.Error("expected base64 attachment encoding")
	}
}

func TestEmailToolPlainMessage(t *testing.T) {
	tool := NewEmailTool(config.SMTPConfig{Host: "h", Port: 25, User: "u", From: "noreply@example.com"})
	var gotMsg []byte
	tool.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	if _, err := tool.Invoke(context.Background(), map[string]any{
		"to": "a@b.c", "subject": "hi", "body": "plain text",
	}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	msg := string(gotMsg)
	if strings.Contains(msg, "multipart") {
		t.Error("expected a plain message without attachment")
	}
	if !strings.Contains(msg, "From: noreply@example.com") {
		t.Error("expected configured from address")
	}
	if !strings.Contains(msg, "plain text") {
		t.Error("expected body in message")
	}
}

func TestEmailToolMissingAttachment(t *testing.T) {
	tool := NewEmailTool(config.SMTPConfig{Host: "h", Port: 25, User: "u"})
	tool.send = func(string, smtp.Auth, string, []string, []byte) error { return nil }

	_, err := tool.Invoke(context.Background(), map[string]any{
		"to": "a@b.c", "subject": "s", "body": "b",
		"attachment_path": "/nonexistent/report.md",
	})
	if err == nil || !strings.Contains(err.Error(), "read attachment") {
		t.Errorf("expected attachment read error, got %v", err)
	}
}
