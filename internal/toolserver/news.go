package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/houndlabs/newshound/internal/config"
)

const maxHeadlines = 5

// NewsTool searches Google News through a Serper-style API and returns a
// formatted headline digest.
type NewsTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type serperRequest struct {
	Q string `json:"q"`
}

type serperResponse struct {
	News []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Source  string `json:"source"`
		Date    string `json:"date"`
		Snippet string `json:"snippet"`
	} `json:"news"`
}

// NewNewsTool creates the search_news tool.
func NewNewsTool(cfg config.SerperConfig) *NewsTool {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://google.serper.dev"
	}
	return &NewsTool{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *NewsTool) Name() string { return "search_news" }

func (t *NewsTool) Description() string {
	return "Search recent news articles for a keyword and return the top headlines with sources and snippets."
}

func (t *NewsTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"keyword": map[string]any{
				"type":        "string",
				"description": "Search keyword or phrase",
			},
		},
		"required": []string{"keyword"},
	}
}

func (t *NewsTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	keyword, _ := args["keyword"].(string)
	if keyword == "" {
		return "", fmt.Errorf("keyword is required")
	}
	if t.apiKey == "" {
		return "", fmt.Errorf("serper API key not configured (set SERPER_API_KEY)")
	}

	body, err := json.Marshal(serperRequest{Q: keyword})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/news", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("search API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result serperResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(result.News) == 0 {
		return fmt.Sprintf("No news found for %q.", keyword), nil
	}

	var b strings.Builder
	for i, item := range result.News {
		if i >= maxHeadlines {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Title)
		if item.Source != "" || item.Date != "" {
			fmt.Fprintf(&b, "   %s %s\n", item.Source, item.Date)
		}
		if item.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", item.Snippet)
		}
		fmt.Fprintf(&b, "   %s\n", item.Link)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
