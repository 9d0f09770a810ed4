package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
	"github.com/custodia-labs/askme/internal/logger"
)

// DefaultIndexCacheSize is the number of tenant indexes kept in memory.
const DefaultIndexCacheSize = 128

// TenantIndex is a fully built vector index over one tenant's questions,
// with the question/answer pairs aligned to index positions.
type TenantIndex struct {
	Index      driven.VectorIndex
	Pairs      []domain.FAQInput
	Generation uint64
}

// IndexCache holds built tenant indexes, rebuilding them from the FAQ store
// on demand. Concurrent misses for the same tenant share one build, and a
// build that overlaps an invalidation is handed to its waiters but not kept.
type IndexCache struct {
	faqs    driven.FAQStore
	builder driven.VectorIndexBuilder
	cache   *lru.Cache[string, *TenantIndex]
	group   singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
	epoch       uint64 // bumped by every Invalidate and Forget
	forgotten   uint64 // epoch of the latest Forget
}

// NewIndexCache creates a cache holding at most size tenant indexes.
func NewIndexCache(faqs driven.FAQStore, builder driven.VectorIndexBuilder, size int) (*IndexCache, error) {
	if size <= 0 {
		size = DefaultIndexCacheSize
	}
	cache, err := lru.NewWithEvict(size, func(tenantID string, _ *TenantIndex) {
		logger.Debug("index cache: evicted %s", tenantID)
	})
	if err != nil {
		return nil, fmt.Errorf("create index cache: %w", err)
	}
	return &IndexCache{
		faqs:        faqs,
		builder:     builder,
		cache:       cache,
		generations: make(map[string]uint64),
	}, nil
}

// Get returns the tenant's index, building it on a miss.
func (c *IndexCache) Get(ctx context.Context, tenantID string) (*TenantIndex, error) {
	if idx, ok := c.cache.Get(tenantID); ok {
		logger.Debug("index cache: hit %s", tenantID)
		return idx, nil
	}

	c.mu.Lock()
	gen, start := c.generations[tenantID], c.epoch
	c.mu.Unlock()
	key := tenantID + "@" + strconv.FormatUint(gen, 10)

	v, err, shared := c.group.Do(key, func() (any, error) {
		idx, err := c.build(context.WithoutCancel(ctx), tenantID, gen)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generations[tenantID] == gen && c.forgotten <= start {
			c.cache.Add(tenantID, idx)
		} else {
			logger.Debug("index cache: discarding stale build for %s", tenantID)
		}
		c.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("index cache: joined in-flight build for %s", tenantID)
	}
	return v.(*TenantIndex), nil
}

// Invalidate drops the tenant's index and starts a new generation.
// Generations come from one counter shared by all tenants, so a value is
// never reused after Forget.
func (c *IndexCache) Invalidate(tenantID string) {
	c.mu.Lock()
	c.epoch++
	c.generations[tenantID] = c.epoch
	c.cache.Remove(tenantID)
	c.mu.Unlock()
	logger.Debug("index cache: invalidated %s", tenantID)
}

// Forget drops everything held for a deleted tenant, including its
// generation. Builds already running when Forget is called are not kept.
func (c *IndexCache) Forget(tenantID string) {
	c.mu.Lock()
	c.epoch++
	c.forgotten = c.epoch
	delete(c.generations, tenantID)
	c.cache.Remove(tenantID)
	c.mu.Unlock()
	logger.Debug("index cache: forgot %s", tenantID)
}

// Current reports whether idx is the index cached for the tenant.
func (c *IndexCache) Current(tenantID string, idx *TenantIndex) bool {
	cached, ok := c.cache.Peek(tenantID)
	return ok && cached == idx
}

// Generation returns the tenant's current invalidation epoch.
func (c *IndexCache) Generation(tenantID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[tenantID]
}

// Len returns the number of cached tenant indexes.
func (c *IndexCache) Len() int {
	return c.cache.Len()
}

func (c *IndexCache) build(ctx context.Context, tenantID string, gen uint64) (*TenantIndex, error) {
	faqs, err := c.faqs.GetFAQs(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return nil, fmt.Errorf("load faqs: %w", err)
		}
		return nil, fmt.Errorf("load faqs: %w: %w", domain.ErrStorageUnavailable, err)
	}

	embeddings := make([][]float32, len(faqs))
	pairs := make([]domain.FAQInput, len(faqs))
	for i, f := range faqs {
		embeddings[i] = f.Embedding
		pairs[i] = domain.FAQInput{Question: f.Question, Answer: f.Answer}
	}

	index, err := c.builder.Build(embeddings)
	if err != nil {
		return nil, fmt.Errorf("build index: %w: %w", domain.ErrStorageUnavailable, err)
	}
	logger.Debug("index cache: built %s with %d vectors", tenantID, index.Len())

	return &TenantIndex{Index: index, Pairs: pairs, Generation: gen}, nil
}
