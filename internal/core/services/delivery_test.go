package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askme/internal/core/domain"
)

func drain(ch <-chan domain.Chunk) []domain.Chunk {
	var out []domain.Chunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestStreamAnswer_PreservesWords(t *testing.T) {
	svc := NewDeliveryService(2, nil)
	answer := "one two three four five six seven eight nine ten"

	for seed := uint64(0); seed < 20; seed++ {
		svc.SetRand(rand.New(rand.NewPCG(seed, seed)))
		chunks := drain(svc.StreamAnswer(context.Background(), answer, 0))

		var words []string
		for _, c := range chunks {
			require.NoError(t, c.Err)
			assert.True(t, strings.HasSuffix(c.Text, " "))
			w := strings.Fields(c.Text)
			assert.GreaterOrEqual(t, len(w), 1)
			assert.LessOrEqual(t, len(w), 3)
			words = append(words, w...)
		}
		assert.Equal(t, strings.Fields(answer), words)
	}
}

func TestStreamAnswer_SeededRandIsDeterministic(t *testing.T) {
	svc := NewDeliveryService(1, nil)
	answer := "a b c d e f g h i j k l"

	svc.SetRand(rand.New(rand.NewPCG(7, 7)))
	first := drain(svc.StreamAnswer(context.Background(), answer, 0))
	svc.SetRand(rand.New(rand.NewPCG(7, 7)))
	second := drain(svc.StreamAnswer(context.Background(), answer, 0))

	assert.Equal(t, first, second)
}

func TestStreamAnswer_Empty(t *testing.T) {
	svc := NewDeliveryService(1, nil)
	assert.Empty(t, drain(svc.StreamAnswer(context.Background(), "   ", 0)))
}

func TestStreamAnswer_AppliesDelayBetweenChunks(t *testing.T) {
	svc := NewDeliveryService(1, nil)
	svc.SetRand(rand.New(rand.NewPCG(1, 1)))

	start := time.Now()
	chunks := drain(svc.StreamAnswer(context.Background(), "a b c d e f", 20*time.Millisecond))

	assert.GreaterOrEqual(t, time.Since(start), time.Duration(len(chunks)-1)*20*time.Millisecond)
}

func TestStreamAnswer_CancelReleasesSlot(t *testing.T) {
	svc := NewDeliveryService(1, nil)
	ctx, cancel := context.WithCancel(context.Background())

	ch := svc.StreamAnswer(ctx, "a b c d e f g h i j", time.Hour)
	<-ch
	cancel()
	for range ch {
	}

	// The only slot is free again.
	done := drain(svc.StreamAnswer(context.Background(), "x", 0))
	assert.Len(t, done, 1)
}

func TestStreamAnswer_CancelWhileWaitingForSlot(t *testing.T) {
	svc := NewDeliveryService(1, nil)
	holder, release := context.WithCancel(context.Background())
	defer release()
	held := svc.StreamAnswer(holder, "a b c d e f", time.Hour)
	<-held

	ctx, cancel := context.WithCancel(context.Background())
	waiting := svc.StreamAnswer(ctx, "never sent", 0)
	cancel()

	assert.Empty(t, drain(waiting))
}

func TestDelivery_ConcurrencyBound(t *testing.T) {
	gen := &mockGenerator{tokens: []string{"a", "b", "c"}, tokenWait: 5 * time.Millisecond}
	svc := NewDeliveryService(2, gen)

	var wg sync.WaitGroup
	completed := make([]string, 8)
	for i := range completed {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text, err := Collect(svc.StreamGenerated(context.Background(), "p"))
			assert.NoError(t, err)
			completed[i] = text
		}(i)
	}
	wg.Wait()

	for _, text := range completed {
		assert.Equal(t, "abc", text)
	}
	assert.LessOrEqual(t, gen.maxActive.Load(), int32(2))
}

func TestStreamGenerated_RelaysTokens(t *testing.T) {
	svc := NewDeliveryService(1, &mockGenerator{tokens: []string{"Hello", ", ", "world"}})

	chunks := drain(svc.StreamGenerated(context.Background(), "prompt"))

	require.Len(t, chunks, 3)
	assert.Equal(t, ", ", chunks[1].Text)
}

func TestStreamGenerated_MidStreamErrorIsTerminalChunk(t *testing.T) {
	svc := NewDeliveryService(1, &mockGenerator{tokens: []string{"partial"}, midErr: errors.New("model crashed")})

	chunks := drain(svc.StreamGenerated(context.Background(), "prompt"))

	require.Len(t, chunks, 2)
	assert.Equal(t, "partial", chunks[0].Text)
	last := chunks[1]
	assert.ErrorIs(t, last.Err, domain.ErrGenerationFailed)
	assert.True(t, strings.HasPrefix(last.Text, "Error occurred during streaming: "))
	assert.Contains(t, last.Text, "model crashed")
}

func TestStreamGenerated_StartFailure(t *testing.T) {
	svc := NewDeliveryService(1, &mockGenerator{streamErr: errors.New("refused")})

	chunks := drain(svc.StreamGenerated(context.Background(), "prompt"))

	require.Len(t, chunks, 1)
	assert.ErrorIs(t, chunks[0].Err, domain.ErrGenerationFailed)
}

func TestStreamGenerated_NoGenerator(t *testing.T) {
	svc := NewDeliveryService(1, nil)

	chunks := drain(svc.StreamGenerated(context.Background(), "prompt"))

	require.Len(t, chunks, 1)
	assert.ErrorIs(t, chunks[0].Err, domain.ErrLLMUnavailable)
	assert.False(t, svc.HasGenerator())
}

func TestBuildPrompt(t *testing.T) {
	svc := NewDeliveryService(1, nil)
	results := []domain.SearchResult{
		{Question: "What is X?", Answer: "X is Y."},
		{Question: "Where?", Answer: "Here."},
	}
	history := []domain.ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}

	prompt := svc.BuildPrompt(results, "what is x", history)

	assert.True(t, strings.HasPrefix(prompt, "You are A customer support chatbot"))
	assert.Contains(t, prompt, "FAQs:\nQ: What is X?\nA: X is Y.\n\nQ: Where?\nA: Here.\n\n")
	assert.Contains(t, prompt, "Conversation so far:\nUser: hi\nAssistant: hello\n\n")
	assert.Contains(t, prompt, "User question: what is x\n\n")
	assert.True(t, strings.HasSuffix(prompt, "avoid unnecessary elaboration."))
}

type stubPrompts struct{ tmpl string }

func (s stubPrompts) Load(string) (string, error) { return s.tmpl, nil }
func (s stubPrompts) Reload() {}

func TestBuildPrompt_CustomTemplate(t *testing.T) {
	svc := NewDeliveryService(1, nil)
	svc.SetPromptStore(stubPrompts{tmpl: "[%s|%s|%s]"})
	assert.Equal(t, "[Q: a\nA: b||q]", svc.BuildPrompt([]domain.SearchResult{{Question: "a", Answer: "b"}}, "q", nil))

	svc.SetPromptStore(stubPrompts{tmpl: "broken %s"})
	assert.Contains(t, svc.BuildPrompt(nil, "q", nil), "User question: q")
}

func TestDeliver_Modes(t *testing.T) {
	svc := NewDeliveryService(1, &mockGenerator{tokens: []string{"generated"}})
	results := []domain.SearchResult{{Question: "q1", Answer: "best answer"}, {Question: "q2", Answer: "other"}}

	direct, err := Collect(svc.Deliver(context.Background(), domain.DeliveryRequest{
		Mode: domain.DeliveryModeDirect, Results: results,
	}))
	require.NoError(t, err)
	assert.Equal(t, "best answer", strings.TrimSpace(direct))

	llm, err := Collect(svc.Deliver(context.Background(), domain.DeliveryRequest{
		Mode: domain.DeliveryModeLLM, Results: results, Query: "q",
	}))
	require.NoError(t, err)
	assert.Equal(t, "generated", llm)

	_, err = Collect(svc.Deliver(context.Background(), domain.DeliveryRequest{Mode: domain.DeliveryModeDirect}))
	assert.ErrorIs(t, err, domain.ErrNoResults)
}
