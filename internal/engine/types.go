package engine

import "context"

// ChatMessage is one entry in a model conversation. Tool results carry the
// originating tool's name in ToolCallID so the synthesis call can attribute
// them.
type ChatMessage struct {
	Role       string `json:"role"` // "system", "user", "assistant", "tool"
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ChatRequest is sent to a model provider.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	Messages     []ChatMessage
	// Tools attached to the request. The planner attaches the catalog with
	// ToolChoice "none" so the model describes a plan instead of calling.
	Tools       []ToolDescriptor
	ToolChoice  string
	MaxTokens   int
	Temperature float64
}

// ChatResponse is a model provider's completion.
type ChatResponse struct {
	Content      string
	Model        string
	TokensInput  int
	TokensOutput int
	FinishReason string
}

// ModelProvider is the interface for LLM providers
type ModelProvider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ToolInvoker executes a named tool with arguments and returns its textual
// result. Unknown tool names, schema-invalid arguments, and host failures all
// surface as errors.
type ToolInvoker interface {
	Call(ctx context.Context, tool string, args map[string]any) (string, error)
}

// ToolDescriptor describes one tool as presented to the planning model.
// The wire shape matches what tool hosts return from tools/list.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// PlanStep is a single planned invocation: target tool plus arguments.
type PlanStep struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Plan is an ordered list of tool invocations. Order is execution order.
type Plan []PlanStep

// Transcript is the ordered conversation record for one query: the user
// message followed by one tool message per executed step.
type Transcript []ChatMessage

// ToolOutputs maps a tool name to its most recent textual output. A tool
// name recurring in a plan overwrites its earlier entry.
type ToolOutputs map[string]string

// SessionFiles carries the per-query artifact paths the resolver injects as
// argument defaults for the analysis and email tools.
type SessionFiles struct {
	ReportName string
	ReportPath string
}
