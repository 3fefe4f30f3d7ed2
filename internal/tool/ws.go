package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// WSTransport keeps one WebSocket open to a tool host and runs strict
// request/response pairs over it. The mutex serializes in-flight calls;
// the engine only ever has one anyway.
type WSTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewWSTransport dials the host. token may be empty for unauthenticated
// hosts.
func NewWSTransport(ctx context.Context, url, token string) (*WSTransport, error) {
	opts := &websocket.DialOptions{}
	if token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + token}}
	}

	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("ws: dial %q: %w", url, err)
	}
	// Tool results can be large
	conn.SetReadLimit(1 << 22)

	return &WSTransport{conn: conn}, nil
}

func (t *WSTransport) Send(ctx context.Context, msg json.RawMessage) (json.RawMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return nil, fmt.Errorf("ws: write: %w", err)
	}

	_, data, err := t.conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ws: read: %w", err)
	}

	return json.RawMessage(data), nil
}

func (t *WSTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "session closed")
}
