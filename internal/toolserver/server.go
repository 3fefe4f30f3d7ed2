// Package toolserver implements the host side of the tool protocol: a
// JSON-RPC 2.0 server exposing registered tools over stdio, HTTP, or
// WebSocket, with the news, sentiment, and email tools built in.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Tool is one invocable capability exposed by the host.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// Server dispatches JSON-RPC messages to registered tools.
type Server struct {
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewServer creates an empty tool server.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		tools:  make(map[string]Tool),
		logger: logger.With("component", "toolserver"),
	}
}

// Register adds a tool. A later registration under the same name replaces
// the earlier one (manifests override built-ins this way).
func (s *Server) Register(t Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[t.Name()]; !exists {
		s.order = append(s.order, t.Name())
	}
	s.tools[t.Name()] = t
	s.logger.Info("tool registered", "name", t.Name())
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tool, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tools[name])
	}
	return out
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolWire struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type callResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// HandleMessage processes one JSON-RPC message and returns the encoded
// response. ok is false for notifications (no id), which get no reply.
func (s *Server) HandleMessage(ctx context.Context, raw json.RawMessage) (resp json.RawMessage, ok bool) {
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return encodeError("", codeParseError, fmt.Sprintf("parse request: %v", err)), true
	}

	if req.ID == "" {
		// Fire-and-forget notification
		s.logger.Debug("notification received", "method", req.Method)
		return nil, false
	}

	switch req.Method {
	case "initialize":
		return encodeResult(req.ID, map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]string{
				"name":    "newshound-tools",
				"version": "0.1.0",
			},
		}), true

	case "notifications/initialized":
		// Clients send this with an id to keep request/response paired on
		// stream transports; acknowledge with an empty result.
		return encodeResult(req.ID, map[string]any{}), true

	case "tools/list":
		return encodeResult(req.ID, map[string]any{"tools": s.listTools()}), true

	case "tools/call":
		return s.handleCall(ctx, req), true

	default:
		return encodeError(req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method)), true
	}
}

func (s *Server) listTools() []toolWire {
	tools := s.Tools()
	out := make([]toolWire, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolWire{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return out
}

func (s *Server) handleCall(ctx context.Context, req rpcRequest) json.RawMessage {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return encodeError(req.ID, codeInvalidParams, fmt.Sprintf("parse params: %v", err))
	}

	s.mu.RLock()
	t, found := s.tools[params.Name]
	s.mu.RUnlock()

	if !found {
		return encodeError(req.ID, codeInvalidParams, fmt.Sprintf("unknown tool %q", params.Name))
	}

	s.logger.Info("tool call", "tool", params.Name)

	output, err := t.Invoke(ctx, params.Arguments)
	if err != nil {
		// Tool-level failures ride inside the result so the client can
		// attribute them to the tool rather than the transport.
		s.logger.Error("tool failed", "tool", params.Name, "error", err)
		return encodeResult(req.ID, callResult{
			Content: []contentBlock{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}

	return encodeResult(req.ID, callResult{
		Content: []contentBlock{{Type: "text", Text: output}},
	})
}

func encodeResult(id string, result any) json.RawMessage {
	data, err := json.Marshal(rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
	if err != nil {
		return encodeError(id, codeInternalError, err.Error())
	}
	return data
}

func encodeError(id string, code int, msg string) json.RawMessage {
	data, _ := json.Marshal(rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: msg},
	})
	return data
}
