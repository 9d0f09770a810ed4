package driving

import (
	"context"

	"github.com/custodia-labs/askme/internal/core/domain"
)

// TenantService provisions tenants and resolves API keys.
type TenantService interface {
	// Create provisions a tenant with a freshly generated API key.
	Create(ctx context.Context, name string, settings domain.TenantSettings) (*domain.Tenant, error)

	// Resolve maps an API key to its tenant.
	// Returns ErrTenantNotFound for unknown or empty keys.
	Resolve(ctx context.Context, apiKey string) (*domain.Tenant, error)

	// Get retrieves a tenant by ID. Returns ErrTenantNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Tenant, error)

	// List returns all tenants.
	List(ctx context.Context) ([]domain.Tenant, error)

	// Delete removes a tenant, its FAQs and its settings.
	Delete(ctx context.Context, id string) error

	// Settings returns the tenant's settings.
	Settings(ctx context.Context, id string) (domain.TenantSettings, error)

	// SetSetting stores one tenant setting.
	SetSetting(ctx context.Context, id, key, value string) error
}
