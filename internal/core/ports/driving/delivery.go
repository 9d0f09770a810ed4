package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/askme/internal/core/domain"
)

// DeliveryService turns answers into incrementally deliverable chunks.
// Every stream passes through a process-wide concurrency gate; callers
// beyond its capacity wait for a slot. A stream ends with at most one
// chunk carrying an error and is always closed.
type DeliveryService interface {
	// StreamAnswer emits the answer in chunks of one to three words with
	// delay between chunks.
	StreamAnswer(ctx context.Context, answer string, delay time.Duration) <-chan domain.Chunk

	// StreamGenerated relays the generator's output for prompt.
	StreamGenerated(ctx context.Context, prompt string) <-chan domain.Chunk

	// BuildPrompt renders the FAQ answering prompt from retrieved results,
	// the prior conversation and the user's question.
	BuildPrompt(results []domain.SearchResult, query string, history []domain.ChatMessage) string

	// Deliver streams an answer for already retrieved results in the
	// requested mode.
	Deliver(ctx context.Context, req domain.DeliveryRequest) <-chan domain.Chunk
}

// AskService answers a user question for a tenant end to end.
type AskService interface {
	// Ask retrieves similar FAQs and starts delivery in the requested mode.
	// Retrieval errors are returned directly; delivery errors arrive as a
	// terminal chunk on the response stream.
	Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResponse, error)
}
