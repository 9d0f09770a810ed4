package driven

import (
	"context"

	"github.com/custodia-labs/askme/internal/core/domain"
)

// TenantStore persists tenants and their settings.
type TenantStore interface {
	// CreateTenant stores a new tenant with its initial settings.
	// Returns ErrAlreadyExists if the ID or API key is taken.
	CreateTenant(ctx context.Context, tenant *domain.Tenant, settings domain.TenantSettings) error

	// GetTenant retrieves a tenant by ID.
	// Returns ErrNotFound if the tenant does not exist.
	GetTenant(ctx context.Context, id string) (*domain.Tenant, error)

	// GetTenantByAPIKey resolves an API key to its tenant.
	// Returns ErrNotFound if no tenant holds the key.
	GetTenantByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error)

	// ListTenants returns all tenants ordered by creation time.
	ListTenants(ctx context.Context) ([]domain.Tenant, error)

	// DeleteTenant removes a tenant along with its FAQs and settings.
	DeleteTenant(ctx context.Context, id string) error

	// GetSettings returns the tenant's settings. Unknown tenants yield ErrNotFound.
	GetSettings(ctx context.Context, tenantID string) (domain.TenantSettings, error)

	// SetSetting stores or replaces a single setting.
	SetSetting(ctx context.Context, tenantID, key, value string) error
}
