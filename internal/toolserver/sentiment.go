package toolserver

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/houndlabs/newshound/internal/engine"
	"github.com/houndlabs/newshound/internal/report"
)

const sentimentPrompt = `You are a news sentiment analyst. Analyze the news content below and write a
concise markdown report with these sections:

## 情感倾向 (Sentiment)
Overall sentiment: positive, negative, or mixed, with a one-line justification.

## 关键信息 (Key points)
3-5 bullet points summarizing the most important facts.

## 综合评价 (Assessment)
A short paragraph assessing what the coverage suggests.

Respond with the report only, no preamble.`

// SentimentTool analyzes news text with a language model and persists the
// resulting report as a markdown artifact.
type SentimentTool struct {
	provider  engine.ModelProvider
	model     string
	reportDir string
}

// NewSentimentTool creates the analyze_sentiment tool. Reports are written
// under reportDir using the filename supplied by the caller.
func NewSentimentTool(provider engine.ModelProvider, model, reportDir string) *SentimentTool {
	return &SentimentTool{
		provider:  provider,
		model:     model,
		reportDir: reportDir,
	}
}

func (t *SentimentTool) Name() string { return "analyze_sentiment" }

func (t *SentimentTool) Description() string {
	return "Analyze the sentiment of news content and save a markdown report. Returns the report text."
}

func (t *SentimentTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "News content to analyze",
			},
			"filename": map[string]any{
				"type":        "string",
				"description": "Filename for the saved report",
			},
		},
		"required": []string{"text"},
	}
}

func (t *SentimentTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	text, _ := args["text"].(string)
	if text == "" {
		return "", fmt.Errorf("text is required")
	}

	resp, err := t.provider.Chat(ctx, engine.ChatRequest{
		Model:        t.model,
		SystemPrompt: sentimentPrompt,
		Messages: []engine.ChatMessage{
			{Role: "user", Content: text},
		},
		MaxTokens:   2000,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("sentiment analysis: %w", err)
	}

	filename, _ := args["filename"].(string)
	if filename == "" {
		filename = report.Filename("sentiment", time.Now(), "报道")
	}
	path := filepath.Join(t.reportDir, filename)
	artifact := report.Artifact{
		Meta: report.Meta{
			Title:   "Sentiment report",
			Created: time.Now(),
			Tools:   []string{t.Name()},
		},
		Body: resp.Content,
	}
	if err := report.Write(path, artifact); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	return resp.Content, nil
}
