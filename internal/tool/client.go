package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/houndlabs/newshound/internal/engine"
)

// HostClient manages one tool host connection: handshake, discovery, and
// tool invocation.
type HostClient struct {
	name      string
	transport Transport
	tools     []engine.ToolDescriptor
}

// NewHostClient performs the initialize handshake and discovers the host's
// tools.
func NewHostClient(ctx context.Context, name string, transport Transport) (*HostClient, error) {
	c := &HostClient{
		name:      name,
		transport: transport,
	}

	if err := c.initialize(ctx); err != nil {
		return nil, err
	}
	if err := c.discoverTools(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// call sends one request and decodes the host's result.
func (c *HostClient) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respData, err := c.transport.Send(ctx, data)
	if err != nil {
		return nil, err
	}

	var resp rpcResponse
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	return resp.Result, nil
}

func (c *HostClient) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]string{
			"name":    "newshound",
			"version": "0.1.0",
		},
	}

	if _, err := c.call(ctx, "initialize", params); err != nil {
		return fmt.Errorf("initialize %q: %w", c.name, err)
	}

	// The handshake notification carries an ID like every other message so
	// request/response stays strictly paired on all transports; hosts reply
	// with an empty result.
	if _, err := c.call(ctx, "notifications/initialized", nil); err != nil {
		return fmt.Errorf("initialized notification %q: %w", c.name, err)
	}

	return nil
}

func (c *HostClient) discoverTools(ctx context.Context) error {
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return fmt.Errorf("tools/list %q: %w", c.name, err)
	}

	var list toolsListResult
	if err := json.Unmarshal(result, &list); err != nil {
		return fmt.Errorf("parse tools list: %w", err)
	}

	for _, td := range list.Tools {
		c.tools = append(c.tools, engine.ToolDescriptor{
			Name:        td.Name,
			Description: td.Description,
			InputSchema: td.InputSchema,
		})
	}

	return nil
}

// CallTool invokes a tool on the host and returns its joined text content.
func (c *HostClient) CallTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	result, err := c.call(ctx, "tools/call", callToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		return "", err
	}

	var callResult callToolResult
	if err := json.Unmarshal(result, &callResult); err != nil {
		return "", fmt.Errorf("parse tool result: %w", err)
	}

	var parts []string
	for _, block := range callResult.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	output := strings.Join(parts, "\n")

	if callResult.IsError {
		return "", fmt.Errorf("tool %q failed: %s", name, output)
	}

	return output, nil
}

// Name returns the host's configured name.
func (c *HostClient) Name() string { return c.name }

// Tools returns the host's discovered tool descriptors.
func (c *HostClient) Tools() []engine.ToolDescriptor { return c.tools }

// Close shuts down the transport.
func (c *HostClient) Close() error {
	return c.transport.Close()
}
