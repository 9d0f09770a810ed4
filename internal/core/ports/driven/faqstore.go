package driven

import (
	"context"

	"github.com/custodia-labs/askme/internal/core/domain"
)

// FAQStore persists FAQ text and question embeddings, keyed by tenant.
// It is the authoritative source from which tenant indexes are rebuilt.
type FAQStore interface {
	// AddFAQBulk stores the FAQs with their positionally aligned embeddings.
	// The write is atomic: either every row is stored or none is.
	AddFAQBulk(ctx context.Context, tenantID string, faqs []domain.FAQInput, embeddings [][]float32) error

	// ReplaceFAQs swaps the tenant's whole FAQ set for the given rows in one
	// atomic write. On failure the previous set is left untouched.
	ReplaceFAQs(ctx context.Context, tenantID string, faqs []domain.FAQInput, embeddings [][]float32) error

	// GetFAQs returns all FAQs for a tenant in insertion order.
	// A tenant with no FAQs yields an empty slice and no error.
	GetFAQs(ctx context.Context, tenantID string) ([]domain.FAQ, error)

	// CountFAQs returns the number of FAQs stored for a tenant.
	CountFAQs(ctx context.Context, tenantID string) (int, error)

	// DeleteFAQs removes every FAQ for a tenant.
	DeleteFAQs(ctx context.Context, tenantID string) error
}
