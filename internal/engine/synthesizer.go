package engine

import (
	"context"
	"log/slog"
)

const synthesisPrompt = `You have gathered tool results for the user's question.
Write a clear, natural-language answer based on the conversation and the tool
results. Do not repeat raw JSON or tool internals.`

// Synthesizer turns the accumulated transcript into the final answer. No
// tools are attached; the model is asked for free-form text.
type Synthesizer struct {
	provider ModelProvider
	model    string
	logger   *slog.Logger
}

// NewSynthesizer creates a synthesizer bound to one provider and model.
func NewSynthesizer(provider ModelProvider, model string, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		provider: provider,
		model:    model,
		logger:   logger.With("component", "synthesizer"),
	}
}

// Synthesize sends the full transcript and returns the completion's content
// unmodified. Failure is fatal to the query.
func (s *Synthesizer) Synthesize(ctx context.Context, transcript Transcript) (string, error) {
	req := ChatRequest{
		Model:        s.model,
		SystemPrompt: synthesisPrompt,
		Messages:     []ChatMessage(transcript),
		MaxTokens:    2000,
		Temperature:  0.5,
	}

	resp, err := s.provider.Chat(ctx, req)
	if err != nil {
		return "", &SynthesisError{Err: err}
	}

	s.logger.Info("answer synthesized",
		"tokens_in", resp.TokensInput,
		"tokens_out", resp.TokensOutput,
	)
	return resp.Content, nil
}
