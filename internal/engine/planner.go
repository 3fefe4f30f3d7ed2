package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// PlanGenerator asks the model for an ordered call plan. Parse problems
// degrade to an empty plan; only transport/provider failures propagate.
type PlanGenerator struct {
	provider ModelProvider
	model    string
	logger   *slog.Logger
}

// NewPlanGenerator creates a plan generator bound to one provider and model.
func NewPlanGenerator(provider ModelProvider, model string, logger *slog.Logger) *PlanGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanGenerator{
		provider: provider,
		model:    model,
		logger:   logger.With("component", "planner"),
	}
}

// Generate produces a Plan for the query against the given catalog.
func (g *PlanGenerator) Generate(ctx context.Context, query string, catalog []ToolDescriptor) (Plan, error) {
	req := ChatRequest{
		Model:        g.model,
		SystemPrompt: buildPlanningPrompt(catalog),
		Messages: []ChatMessage{
			{Role: "user", Content: query},
		},
		Tools:       catalog,
		ToolChoice:  "none", // describe the plan, never call directly
		MaxTokens:   2000,
		Temperature: 0.3,
	}

	resp, err := g.provider.Chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("planning call: %w", err)
	}

	plan := g.parsePlan(resp.Content)
	g.logger.Info("plan generated", "steps", len(plan))
	return plan, nil
}

// buildPlanningPrompt enumerates every tool verbatim and demands a JSON
// array of {name, arguments} objects only.
func buildPlanningPrompt(catalog []ToolDescriptor) string {
	var b strings.Builder
	b.WriteString("You are a planning assistant. You can use the following tools:\n\n")
	for _, t := range catalog {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	b.WriteString(`
Based on the user's question, decide which tools to call and in what order.
Respond with ONLY a JSON array of steps, each of the form:
[{"name": "tool_name", "arguments": {...}}]

If one step needs the result of an earlier step, reference it with the
placeholder {{tool_name}} as the argument value. If no tools apply, respond
with an empty array: [].`)
	return b.String()
}

var jsonBlockRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parsePlan extracts and decodes the model's plan. Extraction tries a fenced
// code block first, then the raw text. Anything that does not decode to a
// JSON array yields an empty plan.
func (g *PlanGenerator) parsePlan(text string) Plan {
	candidate := strings.TrimSpace(text)
	if m := jsonBlockRE.FindStringSubmatch(candidate); len(m) > 1 {
		candidate = strings.TrimSpace(m[1])
	}

	var steps []planStepWire
	if err := json.Unmarshal([]byte(candidate), &steps); err != nil {
		g.logger.Warn("plan parse failed, using empty plan", "error", err, "response", text)
		return Plan{}
	}

	plan := make(Plan, 0, len(steps))
	for _, s := range steps {
		tool := s.Tool
		if tool == "" {
			tool = s.Name
		}
		args := s.Arguments
		if args == nil {
			args = map[string]any{}
		}
		plan = append(plan, PlanStep{Tool: tool, Arguments: args})
	}
	return plan
}

// planStepWire tolerates both "tool" and "name" as the step's tool key.
type planStepWire struct {
	Tool      string         `json:"tool"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}
