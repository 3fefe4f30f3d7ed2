package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTransport POSTs each JSON-RPC message to a tool host endpoint. An
// optional bearer token authenticates against JWT-protected hosts.
type HTTPTransport struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPTransport creates a transport that POSTs JSON-RPC to the given URL.
// token may be empty for unauthenticated hosts.
func NewHTTPTransport(url, token string) *HTTPTransport {
	return &HTTPTransport{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, msg json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(msg))
	if err != nil {
		return nil, fmt.Errorf("http: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http: read response: %w", err)
	}

	// Notifications get no body back
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http: status %d: %s", resp.StatusCode, string(body))
	}

	return json.RawMessage(body), nil
}

func (t *HTTPTransport) Close() error { return nil }
