// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// Generator turns a constructed prompt into natural-language text.
// This is an optional service - when nil, LLM delivery mode is disabled.
//
// Implementations may include:
//   - Ollama (local models, llama3.2:1b by default)
//   - OpenAI (GPT-4o mini)
//   - Anthropic (Claude)
type Generator interface {
	// Generate returns the complete response for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Stream returns a channel of response tokens. The channel is closed
	// after a token with Done set or a token carrying an Error.
	// Cancelling ctx stops generation and closes the channel.
	Stream(ctx context.Context, prompt string) (<-chan StreamToken, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// StreamToken is one piece of streamed generator output.
type StreamToken struct {
	// Content is the text produced since the previous token.
	Content string

	// Done marks the final token.
	Done bool

	// Error is set when generation failed; it is always the last token.
	Error error
}
