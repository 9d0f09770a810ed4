package services

import (
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/askme/internal/core/domain"
)

// Query cache defaults.
const (
	DefaultQueryCacheSize = 128
	DefaultQueryCacheTTL  = 5 * time.Minute
)

type queryKey struct {
	tenantID   string
	generation uint64
	query      string
	k          int
}

// QueryCache memoises retrieval results per tenant, normalised query and k.
// Entries are tagged with the index generation they were computed against,
// so results from before an invalidation are never served.
type QueryCache struct {
	lru *expirable.LRU[queryKey, []domain.SearchResult]
}

// NewQueryCache creates a cache of at most size entries that expire after ttl.
func NewQueryCache(size int, ttl time.Duration) *QueryCache {
	if size <= 0 {
		size = DefaultQueryCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultQueryCacheTTL
	}
	return &QueryCache{lru: expirable.NewLRU[queryKey, []domain.SearchResult](size, nil, ttl)}
}

// Get returns a copy of the cached results.
func (c *QueryCache) Get(tenantID string, generation uint64, query string, k int) ([]domain.SearchResult, bool) {
	results, ok := c.lru.Get(queryKey{tenantID, generation, query, k})
	if !ok {
		return nil, false
	}
	return slices.Clone(results), true
}

// Put stores a copy of the results.
func (c *QueryCache) Put(tenantID string, generation uint64, query string, k int, results []domain.SearchResult) {
	c.lru.Add(queryKey{tenantID, generation, query, k}, slices.Clone(results))
}

// Invalidate removes every entry for the tenant.
func (c *QueryCache) Invalidate(tenantID string) {
	for _, key := range c.lru.Keys() {
		if key.tenantID == tenantID {
			c.lru.Remove(key)
		}
	}
}

// Len returns the number of live entries.
func (c *QueryCache) Len() int {
	return c.lru.Len()
}
