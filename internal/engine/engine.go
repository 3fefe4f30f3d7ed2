// Package engine implements the tool-chain planning and execution core: a
// natural-language query is turned into an ordered tool-call plan, executed
// step by step against a ToolInvoker with placeholder chaining, and the
// resulting transcript is synthesized into a final answer.
package engine

import (
	"context"
	"log/slog"
)

// Engine wires the planner, executor, and synthesizer for one session. The
// catalog is snapshotted at construction and read-only thereafter; plan,
// outputs, and transcript live for a single query.
type Engine struct {
	planner     *PlanGenerator
	executor    *ChainExecutor
	synthesizer *Synthesizer
	catalog     []ToolDescriptor
	files       func(query string) SessionFiles
	logger      *slog.Logger
}

// Result carries everything produced for one query.
type Result struct {
	Answer     string
	Plan       Plan
	Transcript Transcript
	Outputs    ToolOutputs
	Files      SessionFiles
}

// Option configures an Engine.
type Option func(*Engine)

// WithSessionFiles sets the hook that derives the per-query report filename
// and path injected as tool argument defaults.
func WithSessionFiles(fn func(query string) SessionFiles) Option {
	return func(e *Engine) { e.files = fn }
}

// WithResolver overrides the default resolver (no injections).
func WithResolver(r *Resolver) Option {
	return func(e *Engine) { e.executor.resolver = r }
}

// New creates an Engine for a session. catalog is the session's tool
// catalog, obtained once from the invoker's hosts.
func New(provider ModelProvider, model string, invoker ToolInvoker, catalog []ToolDescriptor, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		planner:     NewPlanGenerator(provider, model, logger),
		executor:    NewChainExecutor(invoker, NewResolver("", ""), logger),
		synthesizer: NewSynthesizer(provider, model, logger),
		catalog:     catalog,
		files:       func(string) SessionFiles { return SessionFiles{} },
		logger:      logger.With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the session's tool catalog snapshot.
func (e *Engine) Catalog() []ToolDescriptor {
	return e.catalog
}

// Answer runs one query through plan, execute, and synthesize. An empty plan
// (including plan-parse failures) means synthesis sees only the user
// message. Tool invocation and synthesis failures propagate.
func (e *Engine) Answer(ctx context.Context, query string) (*Result, error) {
	plan, err := e.planner.Generate(ctx, query, e.catalog)
	if err != nil {
		return nil, err
	}

	files := e.files(query)

	transcript, outputs, err := e.executor.Run(ctx, query, plan, files)
	if err != nil {
		return nil, err
	}

	answer, err := e.synthesizer.Synthesize(ctx, transcript)
	if err != nil {
		return nil, err
	}

	return &Result{
		Answer:     answer,
		Plan:       plan,
		Transcript: transcript,
		Outputs:    outputs,
		Files:      files,
	}, nil
}
