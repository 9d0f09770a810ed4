package driving

import (
	"context"

	"github.com/custodia-labs/askme/internal/core/domain"
)

// FAQService manages a tenant's FAQ set.
type FAQService interface {
	// StoreFAQs normalises and embeds the questions, persists the batch and
	// invalidates the tenant's cached index before returning.
	// A single invalid row rejects the whole batch with ErrInvalidInput.
	StoreFAQs(ctx context.Context, tenantID string, faqs []domain.FAQInput) (int, error)

	// ReplaceFAQs embeds the batch and then atomically swaps it in for the
	// tenant's current FAQs. On any failure the existing set is kept.
	ReplaceFAQs(ctx context.Context, tenantID string, faqs []domain.FAQInput) (int, error)

	// ListFAQs returns the tenant's FAQs in insertion order.
	ListFAQs(ctx context.Context, tenantID string) ([]domain.FAQ, error)

	// ClearFAQs removes every FAQ for the tenant.
	ClearFAQs(ctx context.Context, tenantID string) error
}
