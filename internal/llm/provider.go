// Package llm defines the external multimodal-model provider interface
// (spec.md §6) plus the resilience layer around it: a circuit breaker
// (grounded on original_source/llm/circuit_breaker.py) and a fixed-window
// requests-per-minute rate limiter (adapted from the teacher's internal/server/ratelimit.go).
package llm

import "context"

// Message is one entry of the conversation sent to a provider. Role is one
// of "system", "user", "assistant"; ImageBase64 is empty for text-only
// messages.
type Message struct {
	Role        string
	Text        string
	ImageBase64 string
}

// Response is a provider's reply to one turn.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider is the external interface GIANT requires of a multimodal LLM
// collaborator. Production builds wire this to an OpenAI- or
// Anthropic-compatible HTTP client; tests use a scripted mock.
type Provider interface {
	// Model returns the wire model identifier used for pricing lookups.
	Model() string
	// Call sends messages and returns the model's next turn.
	Call(ctx context.Context, messages []Message) (Response, error)
}
