package driving

import (
	"context"

	"github.com/custodia-labs/askme/internal/core/domain"
)

// RetrievalService finds the stored FAQs most similar to a query.
type RetrievalService interface {
	// FindSimilar returns up to topK results for the tenant ordered by
	// ascending distance. topK <= 0 selects the default.
	// The result is an empty slice and a nil error when the tenant has no FAQs.
	FindSimilar(ctx context.Context, tenantID, query string, topK int) ([]domain.SearchResult, error)

	// Invalidate discards cached indexes and query results for a tenant.
	Invalidate(tenantID string)

	// CacheStats reports the current cache occupancy.
	CacheStats() domain.CacheStats
}
