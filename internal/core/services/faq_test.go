package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askme/internal/core/domain"
)

func TestStoreFAQs_PersistsNormalisedEmbeddings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)

	n, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs)
	require.NoError(t, err)
	assert.Equal(t, len(sampleFAQs), n)

	stored, err := env.faqs.ListFAQs(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, stored, len(sampleFAQs))
	for i, f := range stored {
		assert.Equal(t, sampleFAQs[i].Question, f.Question)
		assert.Len(t, f.Embedding, 384)
	}
}

func TestStoreFAQs_InvalidRowRejectsBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)

	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, []domain.FAQInput{
		{Question: "ok?", Answer: "fine"},
		{Question: "  ", Answer: "missing question"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	stored, err := env.faqs.ListFAQs(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestStoreFAQs_EmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, "acme", nil)

	_, err := env.faqs.StoreFAQs(context.Background(), tenant.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStoreFAQs_UnknownTenant(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.faqs.StoreFAQs(context.Background(), "ghost", sampleFAQs)
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestStoreFAQs_InvalidatesIndexBeforeReturning(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)

	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs[:1])
	require.NoError(t, err)
	_, err = env.retrieval.FindSimilar(ctx, tenant.ID, "x", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, env.indexes.Len())

	_, err = env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs[1:])
	require.NoError(t, err)
	assert.Zero(t, env.indexes.Len())

	results, err := env.retrieval.FindSimilar(ctx, tenant.ID, "x", 5)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestClearFAQs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)
	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs)
	require.NoError(t, err)
	_, err = env.retrieval.FindSimilar(ctx, tenant.ID, "x", 1)
	require.NoError(t, err)

	require.NoError(t, env.faqs.ClearFAQs(ctx, tenant.ID))

	results, err := env.retrieval.FindSimilar(ctx, tenant.ID, "x", 1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReplaceFAQs_SwapsSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)
	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs)
	require.NoError(t, err)
	_, err = env.retrieval.FindSimilar(ctx, tenant.ID, "x", 5)
	require.NoError(t, err)

	n, err := env.faqs.ReplaceFAQs(ctx, tenant.ID, []domain.FAQInput{{Question: "Do you ship abroad?", Answer: "Yes."}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, env.indexes.Len())

	results, err := env.retrieval.FindSimilar(ctx, tenant.ID, "x", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Do you ship abroad?", results[0].Question)
}

func TestReplaceFAQs_FailureKeepsExistingSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "acme", nil)
	_, err := env.faqs.StoreFAQs(ctx, tenant.ID, sampleFAQs)
	require.NoError(t, err)

	broken := NewFAQService(env.faqStore, sharedNormaliser(t), failingEmbedder{}, env.retrieval)
	_, err = broken.ReplaceFAQs(ctx, tenant.ID, []domain.FAQInput{{Question: "q", Answer: "a"}})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = env.faqs.ReplaceFAQs(ctx, tenant.ID, []domain.FAQInput{{Question: "q", Answer: ""}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.faqs.ReplaceFAQs(ctx, "ghost", []domain.FAQInput{{Question: "q", Answer: "a"}})
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	results, err := env.retrieval.FindSimilar(ctx, tenant.ID, "what is x", 10)
	require.NoError(t, err)
	assert.Len(t, results, len(sampleFAQs))
}
