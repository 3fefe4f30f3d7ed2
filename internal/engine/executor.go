package engine

import (
	"context"
	"log/slog"
)

// ChainExecutor drives an ordered plan against a ToolInvoker, threading each
// step's output into later steps via the resolver. Execution is strictly
// sequential; a step only ever sees outputs committed by prior steps.
type ChainExecutor struct {
	invoker  ToolInvoker
	resolver *Resolver
	logger   *slog.Logger
}

// NewChainExecutor creates an executor.
func NewChainExecutor(invoker ToolInvoker, resolver *Resolver, logger *slog.Logger) *ChainExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainExecutor{
		invoker:  invoker,
		resolver: resolver,
		logger:   logger.With("component", "executor"),
	}
}

// Run executes the plan in order. The returned transcript starts with the
// user query and carries one tool message per executed step. An invocation
// failure aborts the remaining steps and returns a ToolInvocationError; the
// transcript and outputs accumulated so far are returned alongside it.
func (e *ChainExecutor) Run(ctx context.Context, query string, plan Plan, files SessionFiles) (Transcript, ToolOutputs, error) {
	outputs := make(ToolOutputs)
	transcript := Transcript{
		{Role: "user", Content: query},
	}

	for i, step := range plan {
		args := e.resolver.Resolve(step.Tool, step.Arguments, outputs, files)

		e.logger.Info("invoking tool", "step", i, "tool", step.Tool)
		result, err := e.invoker.Call(ctx, step.Tool, args)
		if err != nil {
			e.logger.Error("tool invocation failed", "step", i, "tool", step.Tool, "error", err)
			return transcript, outputs, &ToolInvocationError{Tool: step.Tool, Err: err}
		}

		// Last-write-wins when a tool name repeats in the plan
		outputs[step.Tool] = result
		transcript = append(transcript, ChatMessage{
			Role:       "tool",
			Content:    result,
			ToolCallID: step.Tool,
		})
	}

	return transcript, outputs, nil
}
