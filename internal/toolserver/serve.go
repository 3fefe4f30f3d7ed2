package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/coder/websocket"
)

// ServeStdio reads newline-delimited JSON-RPC messages from r and writes
// responses to w, one per line. It returns when r is exhausted or ctx is
// cancelled.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<22)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp, ok := s.HandleMessage(ctx, json.RawMessage(line))
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\n", resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}

	return scanner.Err()
}

// Handler returns an HTTP handler serving one JSON-RPC message per POST.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, `{"error":"read body"}`, http.StatusBadRequest)
			return
		}

		resp, ok := s.HandleMessage(r.Context(), json.RawMessage(body))
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	})
}

// WSHandler returns an HTTP handler that upgrades to WebSocket and serves
// JSON-RPC messages over the socket until the client disconnects.
func (s *Server) WSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.logger.Warn("ws accept failed", "error", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "server closing")

		conn.SetReadLimit(1 << 22)
		ctx := r.Context()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}

			resp, ok := s.HandleMessage(ctx, json.RawMessage(data))
			if !ok {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, resp); err != nil {
				return
			}
		}
	})
}
