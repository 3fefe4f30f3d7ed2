package engine

import (
	"reflect"
	"testing"
)

func TestResolvePlaceholder(t *testing.T) {
	r := NewResolver("", "")
	outputs := ToolOutputs{"A": "foo"}

	got := r.Resolve("x", map[string]any{"x": "{{A}}"}, outputs, SessionFiles{})
	if got["x"] != "foo" {
		t.Errorf("expected \"foo\", got %v", got["x"])
	}
}

func TestResolveMissingPlaceholderUnchanged(t *testing.T) {
	r := NewResolver("", "")

	got := r.Resolve("x", map[string]any{"x": "{{A}}"}, ToolOutputs{}, SessionFiles{})
	if got["x"] != "{{A}}" {
		t.Errorf("expected placeholder left unchanged, got %v", got["x"])
	}
}

func TestResolveWhitespaceInsideBraces(t *testing.T) {
	r := NewResolver("", "")
	outputs := ToolOutputs{"search_news": "headlines"}

	got := r.Resolve("x", map[string]any{"text": "{{ search_news }}"}, outputs, SessionFiles{})
	if got["text"] != "headlines" {
		t.Errorf("expected \"headlines\", got %v", got["text"])
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := NewResolver("", "")
	args := map[string]any{"x": "literal", "n": 42, "b": true}

	once := r.Resolve("x", args, ToolOutputs{}, SessionFiles{})
	twice := r.Resolve("x", once, ToolOutputs{}, SessionFiles{})
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("expected idempotent resolve, got %v then %v", once, twice)
	}
}

func TestResolveNonStringPassthrough(t *testing.T) {
	r := NewResolver("", "")

	got := r.Resolve("x", map[string]any{"n": 7, "list": []any{"{{A}}"}}, ToolOutputs{"A": "foo"}, SessionFiles{})
	if got["n"] != 7 {
		t.Errorf("expected 7, got %v", got["n"])
	}
	// Placeholders inside larger structures are not substituted
	list, ok := got["list"].([]any)
	if !ok || list[0] != "{{A}}" {
		t.Errorf("expected nested placeholder untouched, got %v", got["list"])
	}
}

func TestResolvePartialInterpolationNotSupported(t *testing.T) {
	r := NewResolver("", "")

	got := r.Resolve("x", map[string]any{"x": "result: {{A}}"}, ToolOutputs{"A": "foo"}, SessionFiles{})
	if got["x"] != "result: {{A}}" {
		t.Errorf("expected embedded placeholder untouched, got %v", got["x"])
	}
}

func TestResolveSessionFileInjections(t *testing.T) {
	r := NewResolver("analyze_sentiment", "send_email_with_attachment")
	files := SessionFiles{ReportName: "report.md", ReportPath: "/data/reports/report.md"}

	got := r.Resolve("analyze_sentiment", map[string]any{"text": "hi"}, ToolOutputs{}, files)
	if got["filename"] != "report.md" {
		t.Errorf("expected filename injected, got %v", got["filename"])
	}

	got = r.Resolve("send_email_with_attachment", map[string]any{"to": "a@b.c"}, ToolOutputs{}, files)
	if got["attachment_path"] != "/data/reports/report.md" {
		t.Errorf("expected attachment_path injected, got %v", got["attachment_path"])
	}

	// Other tools get nothing
	got = r.Resolve("search_news", map[string]any{}, ToolOutputs{}, files)
	if _, set := got["filename"]; set {
		t.Error("expected no injection for unrelated tool")
	}
}

func TestResolveInjectionDoesNotOverwrite(t *testing.T) {
	r := NewResolver("analyze_sentiment", "send_email_with_attachment")
	files := SessionFiles{ReportName: "default.md", ReportPath: "/default.md"}

	got := r.Resolve("analyze_sentiment", map[string]any{"filename": "mine.md"}, ToolOutputs{}, files)
	if got["filename"] != "mine.md" {
		t.Errorf("expected explicit filename kept, got %v", got["filename"])
	}
}
