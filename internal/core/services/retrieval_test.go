package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askme/internal/core/domain"
)

var sampleFAQs = []domain.FAQInput{
	{Question: "What is X?", Answer: "X is Y."},
	{Question: "How do I reset my password?", Answer: "Use the reset link."},
	{Question: "Where are your offices located?", Answer: "In Lisbon."},
	{Question: "Can I cancel my subscription?", Answer: "Yes, anytime."},
}

func TestFindSimilar_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)

	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs)
	require.NoError(t, err)

	results, err := env.retrieval.FindSimilar(ctx, tenant.ID, "what is x", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "What is X?", results[0].Question)
	assert.Equal(t, "X is Y.", results[0].Answer)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
}

func TestFindSimilar_ExactQuestionHasZeroDistance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)
	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs)
	require.NoError(t, err)

	for _, f := range sampleFAQs {
		results, err := env.retrieval.FindSimilar(ctx, tenant.ID, f.Question, 1)
		require.NoError(t, err)
		assert.Equal(t, f.Question, results[0].Question)
		assert.InDelta(t, 0, results[0].Distance, 1e-6)
	}
}

func TestFindSimilar_KLimiting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)
	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs)
	require.NoError(t, err)

	tests := []struct {
		name string
		k    int
		want int
	}{
		{"default", 0, domain.DefaultTopK},
		{"negative uses default", -1, domain.DefaultTopK},
		{"one", 1, 1},
		{"all", 4, 4},
		{"more than stored", 10, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := env.retrieval.FindSimilar(ctx, tenant.ID, "password reset", tt.k)
			require.NoError(t, err)
			assert.Len(t, results, tt.want)
			for i := 1; i < len(results); i++ {
				assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
			}
		})
	}
}

func TestFindSimilar_EmptyTenant(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, "empty", nil)

	results, err := env.retrieval.FindSimilar(context.Background(), tenant.ID, "anything", 3)

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFindSimilar_TenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createTenant(t, "a", nil)
	b := env.createTenant(t, "b", nil)

	_, err := env.faqs.StoreFAQs(ctx, a.ID, sampleFAQs[:1])
	require.NoError(t, err)
	_, err = env.faqs.StoreFAQs(ctx, b.ID, sampleFAQs[1:])
	require.NoError(t, err)

	results, err := env.retrieval.FindSimilar(ctx, b.ID, "What is X?", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.NotEqual(t, "What is X?", r.Question)
	}
}

func TestFindSimilar_BlankQueriesStillRank(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)
	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs)
	require.NoError(t, err)

	for _, query := range []string{"", "   ", "the of and"} {
		results, err := env.retrieval.FindSimilar(ctx, tenant.ID, query, 3)
		require.NoError(t, err, "query %q", query)
		assert.Len(t, results, 3, "query %q", query)
	}

	results, err := env.retrieval.FindSimilar(ctx, tenant.ID, "   ", 10)
	require.NoError(t, err)
	assert.Len(t, results, len(sampleFAQs))
}

func TestFindSimilar_Deterministic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)
	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs)
	require.NoError(t, err)

	first, err := env.retrieval.FindSimilar(ctx, tenant.ID, "cancel plan", 4)
	require.NoError(t, err)
	env.retrieval.Invalidate(tenant.ID)
	second, err := env.retrieval.FindSimilar(ctx, tenant.ID, "cancel plan", 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFindSimilar_QueryCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)
	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs[:2])
	require.NoError(t, err)

	_, err = env.retrieval.FindSimilar(ctx, tenant.ID, "What is X?", 5)
	require.NoError(t, err)
	// Same normalised form hits the cache.
	_, err = env.retrieval.FindSimilar(ctx, tenant.ID, "what IS x", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, env.queries.Len())
	assert.Equal(t, domain.CacheStats{Indexes: 1, Queries: 1}, env.retrieval.CacheStats())

	// An upload makes the new FAQ visible immediately.
	_, err = env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs[2:])
	require.NoError(t, err)
	assert.Zero(t, env.queries.Len())

	results, err := env.retrieval.FindSimilar(ctx, tenant.ID, "what is x", 5)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestFindSimilar_StorageFailurePropagates(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, "acme", nil)
	env.faqStore.getErr = errors.New("connection reset")

	results, err := env.retrieval.FindSimilar(context.Background(), tenant.ID, "what is x", 3)

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNoResults)
	assert.Empty(t, results)
}

func TestIsExpected(t *testing.T) {
	assert.True(t, IsExpected(domain.ErrNoResults))
	assert.True(t, IsExpected(domain.ErrInvalidInput))
	assert.False(t, IsExpected(domain.ErrStorageUnavailable))
}
