// Package llm wraps the two model providers behind a single completion
// interface and owns the contract-enforcement boundary between free-text
// model output and typed internal data.
package llm

import "context"

// Client is a minimal completion interface implemented by each provider.
// Implementations are expected to enforce their own per-call timeouts.
type Client interface {
	// Complete sends a system instruction and a user prompt to the model and
	// returns the raw text of its reply.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
