// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from normalised text.
// Identical input must produce bit-identical output, and EmbedBatch must
// return the same vectors, in the same order, as repeated calls to Embed.
//
// Note: This is separate from VectorIndex which stores and searches vectors.
// EmbeddingService generates vectors; VectorIndex searches them.
//
// Implementations may include:
//   - Hashing (built-in, deterministic, no network)
//   - Ollama (all-minilm)
//   - OpenAI (text-embedding-3-small with reduced dimensions)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The result is positionally aligned with texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// Every vector returned by Embed and EmbedBatch has this length.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup to verify connectivity before serving.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
