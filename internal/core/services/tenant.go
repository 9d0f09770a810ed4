package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
	"github.com/custodia-labs/askme/internal/core/ports/driving"
	"github.com/custodia-labs/askme/internal/logger"
)

// Ensure TenantService implements the interface.
var _ driving.TenantService = (*TenantService)(nil)

// apiKeyBytes is the entropy of a generated API key (32 hex characters).
const apiKeyBytes = 16

// TenantService provisions tenants and resolves their API keys.
type TenantService struct {
	store  driven.TenantStore
	caches forgetter
}

// forgetter drops cached state held for a deleted tenant.
type forgetter interface {
	Forget(tenantID string)
}

// NewTenantService creates a tenant service. caches is optional (can be nil)
// and forgets a tenant when it is deleted.
func NewTenantService(store driven.TenantStore, caches forgetter) *TenantService {
	return &TenantService{store: store, caches: caches}
}

// Create provisions a tenant with a new API key.
func (s *TenantService) Create(ctx context.Context, name string, settings domain.TenantSettings) (*domain.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("create tenant: empty name: %w", domain.ErrInvalidInput)
	}
	if mode, ok := settings[domain.TenantSettingDeliveryMode]; ok && !domain.DeliveryMode(mode).IsValid() {
		return nil, fmt.Errorf("create tenant: delivery mode %q: %w", mode, domain.ErrInvalidInput)
	}

	key, err := generateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	tenant := &domain.Tenant{
		ID:        uuid.NewString(),
		Name:      name,
		APIKey:    key,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateTenant(ctx, tenant, settings); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	logger.Info("Created tenant %s (%s)", tenant.ID, tenant.Name)
	return tenant, nil
}

// Resolve maps an API key to its tenant.
func (s *TenantService) Resolve(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	if apiKey == "" {
		return nil, domain.ErrTenantNotFound
	}
	tenant, err := s.store.GetTenantByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, tenantError("resolve tenant", err)
	}
	return tenant, nil
}

// Get retrieves a tenant by ID.
func (s *TenantService) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	tenant, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, tenantError("get tenant", err)
	}
	return tenant, nil
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context) ([]domain.Tenant, error) {
	tenants, err := s.store.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

// Delete removes a tenant with its FAQs and settings.
func (s *TenantService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTenant(ctx, id); err != nil {
		return tenantError("delete tenant", err)
	}
	if s.caches != nil {
		s.caches.Forget(id)
	}
	logger.Info("Deleted tenant %s", id)
	return nil
}

// Settings returns the tenant's settings.
func (s *TenantService) Settings(ctx context.Context, id string) (domain.TenantSettings, error) {
	settings, err := s.store.GetSettings(ctx, id)
	if err != nil {
		return nil, tenantError("get settings", err)
	}
	return settings, nil
}

// SetSetting stores one tenant setting.
func (s *TenantService) SetSetting(ctx context.Context, id, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("set setting: empty key: %w", domain.ErrInvalidInput)
	}
	if key == domain.TenantSettingDeliveryMode && !domain.DeliveryMode(value).IsValid() {
		return fmt.Errorf("set setting: delivery mode %q: %w", value, domain.ErrInvalidInput)
	}
	if err := s.store.SetSetting(ctx, id, key, value); err != nil {
		return tenantError("set setting", err)
	}
	return nil
}

// tenantError reports a missing tenant as ErrTenantNotFound.
func tenantError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrTenantNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func generateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
