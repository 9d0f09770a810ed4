package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
	"github.com/custodia-labs/askme/internal/core/ports/driving"
	"github.com/custodia-labs/askme/internal/logger"
)

// Ensure DeliveryService implements the interfaces.
var (
	_ driving.DeliveryService = (*DeliveryService)(nil)
	_ driven.PromptStoreAware = (*DeliveryService)(nil)
)

// DefaultDeliveryConcurrency is the number of streams allowed at once.
const DefaultDeliveryConcurrency = 10

// Direct-mode chunk size bounds, in words.
const (
	minChunkWords = 1
	maxChunkWords = 3
)

// streamErrorPrefix starts the text of a terminal error chunk.
const streamErrorPrefix = "Error occurred during streaming: "

// defaultFAQAnswerPrompt is used when no prompt store is configured.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const defaultFAQAnswerPrompt = `You are A customer support chatbot, designed to give precise, relevant answers based on the provided FAQ. Use the FAQ entries and conversation history below to craft a direct, helpful response to the user's question. If the exact answer isn't in the FAQ, infer the best possible answer or advise on next steps.

FAQs:
%s

Conversation so far:
%s

User question: %s

Please provide a clear answer based on the information above. Use a polite, concise tone and avoid unnecessary elaboration.`

// DeliveryService streams answers to callers through a shared concurrency gate.
type DeliveryService struct {
	gate      *semaphore.Weighted
	generator driven.Generator
	prompts   driven.PromptStore

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewDeliveryService creates a delivery service allowing at most
// concurrency simultaneous streams. The generator is optional (can be nil);
// without it LLM delivery ends in an error chunk.
func NewDeliveryService(concurrency int, generator driven.Generator) *DeliveryService {
	if concurrency <= 0 {
		concurrency = DefaultDeliveryConcurrency
	}
	seed := uint64(time.Now().UnixNano())
	return &DeliveryService{
		gate:      semaphore.NewWeighted(int64(concurrency)),
		generator: generator,
		rng:       rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// SetPromptStore sets the prompt store used by BuildPrompt.
func (s *DeliveryService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// SetRand replaces the source of chunk sizes.
func (s *DeliveryService) SetRand(r *rand.Rand) {
	s.rngMu.Lock()
	s.rng = r
	s.rngMu.Unlock()
}

// HasGenerator reports whether LLM delivery is available.
func (s *DeliveryService) HasGenerator() bool {
	return s.generator != nil
}

// ModelName returns the generator's model, or "" without one.
func (s *DeliveryService) ModelName() string {
	if s.generator == nil {
		return ""
	}
	return s.generator.ModelName()
}

// StreamAnswer emits the answer's words in chunks of one to three words.
func (s *DeliveryService) StreamAnswer(ctx context.Context, answer string, delay time.Duration) <-chan domain.Chunk {
	out := make(chan domain.Chunk)
	go func() {
		defer close(out)
		if err := s.gate.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.gate.Release(1)

		words := strings.Fields(answer)
		for i := 0; i < len(words); {
			end := min(i+s.chunkSize(), len(words))
			if !send(ctx, out, domain.Chunk{Text: strings.Join(words[i:end], " ") + " "}) {
				return
			}
			i = end
			if i < len(words) && !sleep(ctx, delay) {
				return
			}
		}
	}()
	return out
}

// StreamGenerated relays the generator's streamed output for prompt.
func (s *DeliveryService) StreamGenerated(ctx context.Context, prompt string) <-chan domain.Chunk {
	out := make(chan domain.Chunk)
	go func() {
		defer close(out)
		if err := s.gate.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.gate.Release(1)

		if s.generator == nil {
			sendError(ctx, out, domain.ErrLLMUnavailable)
			return
		}

		tokens, err := s.generator.Stream(ctx, prompt)
		if err != nil {
			sendError(ctx, out, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err))
			return
		}
		for tok := range tokens {
			if tok.Error != nil {
				sendError(ctx, out, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, tok.Error))
				return
			}
			if tok.Content != "" && !send(ctx, out, domain.Chunk{Text: tok.Content}) {
				return
			}
			if tok.Done {
				return
			}
		}
	}()
	return out
}

// BuildPrompt renders the FAQ answering prompt.
func (s *DeliveryService) BuildPrompt(
	results []domain.SearchResult, query string, history []domain.ChatMessage,
) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = "Q: " + r.Question + "\nA: " + r.Answer
	}
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = m.Speaker() + ": " + m.Content
	}
	return fmt.Sprintf(s.promptTemplate(), strings.Join(blocks, "\n\n"), strings.Join(lines, "\n"), query)
}

// Deliver streams the best stored answer in direct mode, or a generated
// answer grounded on all results in LLM mode.
func (s *DeliveryService) Deliver(ctx context.Context, req domain.DeliveryRequest) <-chan domain.Chunk {
	switch req.Mode {
	case domain.DeliveryModeLLM:
		logger.Debug("Delivering via %s", s.ModelName())
		return s.StreamGenerated(ctx, s.BuildPrompt(req.Results, req.Query, req.History))
	default:
		if len(req.Results) == 0 {
			return errorStream(domain.ErrNoResults)
		}
		return s.StreamAnswer(ctx, req.Results[0].Answer, req.Delay)
	}
}

func (s *DeliveryService) promptTemplate() string {
	if s.prompts == nil {
		return defaultFAQAnswerPrompt
	}
	tmpl, err := s.prompts.Load(driven.PromptFAQAnswer)
	if err != nil || strings.Count(tmpl, "%s") != 3 {
		logger.Warn("Using built-in prompt for %s", driven.PromptFAQAnswer)
		return defaultFAQAnswerPrompt
	}
	return tmpl
}

func (s *DeliveryService) chunkSize() int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return minChunkWords + s.rng.IntN(maxChunkWords-minChunkWords+1)
}

// send delivers c unless ctx is cancelled first.
func send(ctx context.Context, out chan<- domain.Chunk, c domain.Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func sendError(ctx context.Context, out chan<- domain.Chunk, err error) {
	logger.Warn("Stream failed: %v", err)
	send(ctx, out, domain.Chunk{Text: streamErrorPrefix + err.Error(), Err: err})
}

// errorStream returns a closed stream holding a single error chunk.
func errorStream(err error) <-chan domain.Chunk {
	out := make(chan domain.Chunk, 1)
	out <- domain.Chunk{Text: streamErrorPrefix + err.Error(), Err: err}
	close(out)
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
