package engine

import "fmt"

// ToolInvocationError wraps a failed tool invocation. It aborts the rest of
// the plan for that query; the executor never retries.
type ToolInvocationError struct {
	Tool string
	Err  error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %q: %v", e.Tool, e.Err)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

// SynthesisError wraps a completion failure during final-answer generation.
// There is no fallback text; the caller sees the error.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize answer: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
