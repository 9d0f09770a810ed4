package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
	"github.com/custodia-labs/askme/internal/core/ports/driving"
	"github.com/custodia-labs/askme/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService finds the FAQs whose questions are closest to a query.
type RetrievalService struct {
	normaliser driven.TextNormaliser
	embedder   driven.EmbeddingService
	indexes    *IndexCache
	queries    *QueryCache
}

// NewRetrievalService creates a retrieval service.
// The query cache is optional (can be nil).
func NewRetrievalService(
	normaliser driven.TextNormaliser,
	embedder driven.EmbeddingService,
	indexes *IndexCache,
	queries *QueryCache,
) *RetrievalService {
	return &RetrievalService{
		normaliser: normaliser,
		embedder:   embedder,
		indexes:    indexes,
		queries:    queries,
	}
}

// FindSimilar returns up to topK of the tenant's FAQs ordered by distance.
// The result is empty only when the tenant has no FAQs.
func (s *RetrievalService) FindSimilar(
	ctx context.Context, tenantID, query string, topK int,
) ([]domain.SearchResult, error) {
	logger.Section("Retrieval")
	logger.Debug("Tenant: %s, query: %q", tenantID, query)

	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	normalised := s.normaliser.Normalise(query)
	logger.Debug("Normalised: %q", normalised)

	generation := s.indexes.Generation(tenantID)
	if s.queries != nil {
		if cached, ok := s.queries.Get(tenantID, generation, normalised, topK); ok {
			logger.Debug("Query cache hit (%d results)", len(cached))
			return cached, nil
		}
	}

	vec, err := s.embedder.Embed(ctx, normalised)
	if err != nil {
		return []domain.SearchResult{}, fmt.Errorf("embed query: %w", err)
	}

	idx, err := s.indexes.Get(ctx, tenantID)
	if err != nil {
		logger.Warn("Index unavailable for %s: %v", tenantID, err)
		return []domain.SearchResult{}, fmt.Errorf("find similar: %w", err)
	}

	if idx.Index.Len() == 0 {
		logger.Debug("Tenant %s has no FAQs", tenantID)
		return []domain.SearchResult{}, nil
	}
	if idx.Index.Dimensions() != len(vec) {
		return []domain.SearchResult{}, fmt.Errorf(
			"find similar: query has %d dimensions, index has %d: %w",
			len(vec), idx.Index.Dimensions(), domain.ErrEmbeddingUnavailable)
	}

	matches := idx.Index.Search(vec, topK)
	results := make([]domain.SearchResult, len(matches))
	for i, m := range matches {
		pair := idx.Pairs[m.Position]
		results[i] = domain.SearchResult{
			Question: pair.Question,
			Answer:   pair.Answer,
			Distance: m.Distance,
		}
	}
	logger.Debug("Matches: %d of %d", len(results), idx.Index.Len())

	if s.queries != nil && s.indexes.Current(tenantID, idx) {
		s.queries.Put(tenantID, idx.Generation, normalised, topK, results)
	}
	return results, nil
}

// Invalidate drops the tenant's cached index and query results.
func (s *RetrievalService) Invalidate(tenantID string) {
	s.indexes.Invalidate(tenantID)
	if s.queries != nil {
		s.queries.Invalidate(tenantID)
	}
}

// Forget drops the cached state of a deleted tenant.
func (s *RetrievalService) Forget(tenantID string) {
	s.indexes.Forget(tenantID)
	if s.queries != nil {
		s.queries.Invalidate(tenantID)
	}
}

// CacheStats reports the current cache occupancy.
func (s *RetrievalService) CacheStats() domain.CacheStats {
	stats := domain.CacheStats{Indexes: s.indexes.Len()}
	if s.queries != nil {
		stats.Queries = s.queries.Len()
	}
	return stats
}

// IsExpected reports whether err is an outcome callers handle routinely
// rather than a failure worth logging as an error.
func IsExpected(err error) bool {
	return errors.Is(err, domain.ErrNoResults) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrTenantNotFound)
}
