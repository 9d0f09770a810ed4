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

// Ensure FAQService implements the interface.
var _ driving.FAQService = (*FAQService)(nil)

// invalidator drops cached state derived from a tenant's FAQs.
type invalidator interface {
	Invalidate(tenantID string)
}

// FAQService ingests and manages tenant FAQs.
type FAQService struct {
	store      driven.FAQStore
	normaliser driven.TextNormaliser
	embedder   driven.EmbeddingService
	caches     invalidator
}

// NewFAQService creates a FAQ service. caches is invalidated after every
// successful write.
func NewFAQService(
	store driven.FAQStore,
	normaliser driven.TextNormaliser,
	embedder driven.EmbeddingService,
	caches invalidator,
) *FAQService {
	return &FAQService{
		store:      store,
		normaliser: normaliser,
		embedder:   embedder,
		caches:     caches,
	}
}

// StoreFAQs validates, embeds and persists a batch of FAQs.
func (s *FAQService) StoreFAQs(ctx context.Context, tenantID string, faqs []domain.FAQInput) (int, error) {
	logger.Section("FAQ Upload")
	logger.Debug("Tenant: %s, rows: %d", tenantID, len(faqs))

	embeddings, err := s.embed(ctx, faqs)
	if err != nil {
		return 0, fmt.Errorf("store faqs: %w", err)
	}
	if err := s.store.AddFAQBulk(ctx, tenantID, faqs, embeddings); err != nil {
		return 0, fmt.Errorf("store faqs: %w", storeError(err))
	}

	s.invalidate(tenantID)
	logger.Info("Stored %d FAQs for tenant %s", len(faqs), tenantID)
	return len(faqs), nil
}

// ReplaceFAQs swaps the tenant's FAQ set for faqs. Everything is embedded
// before the store is touched, and the swap itself is atomic, so a failure
// leaves the previous set in place.
func (s *FAQService) ReplaceFAQs(ctx context.Context, tenantID string, faqs []domain.FAQInput) (int, error) {
	logger.Section("FAQ Replace")
	logger.Debug("Tenant: %s, rows: %d", tenantID, len(faqs))

	embeddings, err := s.embed(ctx, faqs)
	if err != nil {
		return 0, fmt.Errorf("replace faqs: %w", err)
	}
	if err := s.store.ReplaceFAQs(ctx, tenantID, faqs, embeddings); err != nil {
		return 0, fmt.Errorf("replace faqs: %w", storeError(err))
	}

	s.invalidate(tenantID)
	logger.Info("Replaced FAQs for tenant %s with %d rows", tenantID, len(faqs))
	return len(faqs), nil
}

// embed validates the batch and embeds the normalised questions.
func (s *FAQService) embed(ctx context.Context, faqs []domain.FAQInput) ([][]float32, error) {
	if err := domain.ValidateFAQs(faqs); err != nil {
		return nil, err
	}

	questions := make([]string, len(faqs))
	for i, f := range faqs {
		questions[i] = f.Question
	}
	normalised := s.normaliser.NormaliseMany(questions)

	embeddings, err := s.embedder.EmbedBatch(ctx, normalised)
	if err != nil {
		return nil, fmt.Errorf("embed questions: %w", err)
	}
	if len(embeddings) != len(faqs) {
		return nil, fmt.Errorf("embed questions: got %d vectors for %d questions: %w",
			len(embeddings), len(faqs), domain.ErrEmbeddingUnavailable)
	}
	return embeddings, nil
}

func (s *FAQService) invalidate(tenantID string) {
	if s.caches != nil {
		s.caches.Invalidate(tenantID)
	}
}

func storeError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrTenantNotFound
	}
	return err
}

// ListFAQs returns the tenant's FAQs in insertion order.
func (s *FAQService) ListFAQs(ctx context.Context, tenantID string) ([]domain.FAQ, error) {
	faqs, err := s.store.GetFAQs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	return faqs, nil
}

// ClearFAQs removes every FAQ for the tenant.
func (s *FAQService) ClearFAQs(ctx context.Context, tenantID string) error {
	if err := s.store.DeleteFAQs(ctx, tenantID); err != nil {
		return fmt.Errorf("clear faqs: %w", err)
	}
	s.invalidate(tenantID)
	return nil
}
