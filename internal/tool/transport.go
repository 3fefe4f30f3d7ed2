// Package tool speaks the tool-host protocol: JSON-RPC 2.0 with an MCP-style
// initialize handshake, tools/list discovery, and tools/call invocation. A
// HostClient runs the protocol over any Transport; the Registry aggregates
// hosts into the session tool catalog and implements engine.ToolInvoker.
package tool

import (
	"context"
	"encoding/json"
)

const protocolVersion = "2024-11-05"

// Transport abstracts how a JSON-RPC message reaches a tool host: spawned
// process stdio, HTTP POST, WebSocket, or MQTT request/reply.
type Transport interface {
	Send(ctx context.Context, msg json.RawMessage) (json.RawMessage, error)
	Close() error
}

// --- JSON-RPC 2.0 types ---

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- protocol payloads ---

type toolsListResult struct {
	Tools []toolDef `json:"tools"`
}

type toolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type callToolResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}
