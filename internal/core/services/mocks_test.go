package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askme/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/askme/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/askme/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
	"github.com/custodia-labs/askme/internal/normalisers/english"
)

// countingFAQStore wraps a FAQ store, counting reads and optionally
// failing or blocking them.
type countingFAQStore struct {
	driven.FAQStore
	reads   atomic.Int32
	getErr  error
	release chan struct{}
}

func (s *countingFAQStore) GetFAQs(ctx context.Context, tenantID string) ([]domain.FAQ, error) {
	s.reads.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.FAQStore.GetFAQs(ctx, tenantID)
}

// failingEmbedder rejects every batch.
type failingEmbedder struct {
	driven.EmbeddingService
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("model offline: %w", domain.ErrEmbeddingUnavailable)
}

// mockGenerator implements driven.Generator for testing.
type mockGenerator struct {
	tokens    []string
	streamErr error
	midErr    error
	tokenWait time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func (m *mockGenerator) Generate(context.Context, string) (string, error) {
	if m.streamErr != nil {
		return "", m.streamErr
	}
	out := ""
	for _, t := range m.tokens {
		out += t
	}
	return out, nil
}

func (m *mockGenerator) Stream(ctx context.Context, _ string) (<-chan driven.StreamToken, error) {
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	n := m.active.Add(1)
	for {
		cur := m.maxActive.Load()
		if n <= cur || m.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	out := make(chan driven.StreamToken)
	go func() {
		defer close(out)
		finished := false
		finish := func() {
			if !finished {
				finished = true
				m.active.Add(-1)
			}
		}
		defer finish()
		for _, t := range m.tokens {
			if m.tokenWait > 0 {
				time.Sleep(m.tokenWait)
			}
			select {
			case out <- driven.StreamToken{Content: t}:
			case <-ctx.Done():
				return
			}
		}
		finish()
		last := driven.StreamToken{Done: true}
		if m.midErr != nil {
			last = driven.StreamToken{Error: m.midErr}
		}
		select {
		case out <- last:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (m *mockGenerator) ModelName() string { return "mock-llm" }
func (m *mockGenerator) Ping(context.Context) error { return nil }
func (m *mockGenerator) Close() error { return nil }

// testEnv wires the retrieval stack over in-memory storage.
type testEnv struct {
	store     *memory.Store
	faqStore  *countingFAQStore
	indexes   *IndexCache
	queries   *QueryCache
	retrieval *RetrievalService
	faqs      *FAQService
	tenants   *TenantService
}

var (
	normaliserOnce sync.Once
	testNormaliser *english.Normaliser
)

func sharedNormaliser(t *testing.T) *english.Normaliser {
	t.Helper()
	normaliserOnce.Do(func() {
		n, err := english.Shared()
		require.NoError(t, err)
		testNormaliser = n
	})
	return testNormaliser
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	counting := &countingFAQStore{FAQStore: store.FAQStore()}
	embedder := hashing.NewEmbeddingService(hashing.Config{})
	normaliser := sharedNormaliser(t)

	indexes, err := NewIndexCache(counting, flat.Builder{}, 4)
	require.NoError(t, err)
	queries := NewQueryCache(16, time.Minute)
	retrieval := NewRetrievalService(normaliser, embedder, indexes, queries)

	return &testEnv{
		store:     store,
		faqStore:  counting,
		indexes:   indexes,
		queries:   queries,
		retrieval: retrieval,
		faqs:      NewFAQService(counting, normaliser, embedder, retrieval),
		tenants:   NewTenantService(store.TenantStore(), retrieval),
	}
}

func (e *testEnv) createTenant(t *testing.T, name string, settings domain.TenantSettings) *domain.Tenant {
	t.Helper()
	tenant, err := e.tenants.Create(context.Background(), name, settings)
	require.NoError(t, err)
	return tenant
}
