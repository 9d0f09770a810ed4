// Package memory provides in-process implementations of the driven store
// ports. Nothing survives a restart; it backs tests and throwaway servers.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
)

// Ensure the stores implement the interfaces.
var (
	_ driven.FAQStore    = (*FAQStore)(nil)
	_ driven.TenantStore = (*TenantStore)(nil)
)

// Store groups a tenant store and a FAQ store that share tenant lifecycle:
// FAQs can only be added for existing tenants and are removed with them.
type Store struct {
	tenants *TenantStore
	faqs    *FAQStore
}

// NewStore creates linked in-memory tenant and FAQ stores.
func NewStore() *Store {
	faqs := NewFAQStore()
	tenants := NewTenantStore()
	tenants.faqs = faqs
	faqs.tenants = tenants
	return &Store{tenants: tenants, faqs: faqs}
}

// TenantStore returns the tenant store.
func (s *Store) TenantStore() driven.TenantStore { return s.tenants }

// FAQStore returns the FAQ store.
func (s *Store) FAQStore() driven.FAQStore { return s.faqs }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// FAQStore is an in-memory implementation of driven.FAQStore.
type FAQStore struct {
	mu      sync.RWMutex
	faqs    map[string][]domain.FAQ
	tenants *TenantStore
}

// NewFAQStore creates a standalone in-memory FAQ store that accepts any tenant ID.
func NewFAQStore() *FAQStore {
	return &FAQStore{faqs: make(map[string][]domain.FAQ)}
}

// AddFAQBulk appends the FAQs for a tenant.
func (s *FAQStore) AddFAQBulk(ctx context.Context, tenantID string, faqs []domain.FAQInput, embeddings [][]float32) error {
	batch, err := newBatch(tenantID, faqs, embeddings)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTenant(ctx, tenantID); err != nil {
		return err
	}
	s.faqs[tenantID] = append(s.faqs[tenantID], batch...)
	return nil
}

// ReplaceFAQs swaps the tenant's FAQs for the new set.
func (s *FAQStore) ReplaceFAQs(ctx context.Context, tenantID string, faqs []domain.FAQInput, embeddings [][]float32) error {
	batch, err := newBatch(tenantID, faqs, embeddings)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTenant(ctx, tenantID); err != nil {
		return err
	}
	s.faqs[tenantID] = batch
	return nil
}

// checkTenant runs with s.mu held, so a concurrent tenant delete either
// fails the write or removes the rows after it.
func (s *FAQStore) checkTenant(ctx context.Context, tenantID string) error {
	if s.tenants == nil {
		return nil
	}
	_, err := s.tenants.GetTenant(ctx, tenantID)
	return err
}

func newBatch(tenantID string, faqs []domain.FAQInput, embeddings [][]float32) ([]domain.FAQ, error) {
	if len(faqs) != len(embeddings) {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	batch := make([]domain.FAQ, len(faqs))
	for i, f := range faqs {
		batch[i] = domain.FAQ{
			ID:        uuid.NewString(),
			TenantID:  tenantID,
			Question:  f.Question,
			Answer:    f.Answer,
			Embedding: slices.Clone(embeddings[i]),
			CreatedAt: now,
		}
	}
	return batch, nil
}

// GetFAQs returns a copy of the tenant's FAQs in insertion order.
func (s *FAQStore) GetFAQs(_ context.Context, tenantID string) ([]domain.FAQ, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FAQ, len(s.faqs[tenantID]))
	copy(out, s.faqs[tenantID])
	return out, nil
}

// CountFAQs returns the number of FAQs for a tenant.
func (s *FAQStore) CountFAQs(_ context.Context, tenantID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.faqs[tenantID]), nil
}

// DeleteFAQs removes every FAQ for a tenant.
func (s *FAQStore) DeleteFAQs(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faqs, tenantID)
	return nil
}

// TenantStore is an in-memory implementation of driven.TenantStore.
type TenantStore struct {
	mu       sync.RWMutex
	tenants  map[string]domain.Tenant
	byKey    map[string]string
	settings map[string]domain.TenantSettings
	faqs     *FAQStore
}

// NewTenantStore creates a standalone in-memory tenant store.
func NewTenantStore() *TenantStore {
	return &TenantStore{
		tenants:  make(map[string]domain.Tenant),
		byKey:    make(map[string]string),
		settings: make(map[string]domain.TenantSettings),
	}
}

// CreateTenant stores a new tenant.
func (s *TenantStore) CreateTenant(_ context.Context, tenant *domain.Tenant, settings domain.TenantSettings) error {
	if tenant.ID == "" || tenant.APIKey == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenant.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if _, ok := s.byKey[tenant.APIKey]; ok {
		return domain.ErrAlreadyExists
	}
	s.tenants[tenant.ID] = *tenant
	s.byKey[tenant.APIKey] = tenant.ID
	copied := domain.TenantSettings{}
	for k, v := range settings {
		copied[k] = v
	}
	s.settings[tenant.ID] = copied
	return nil
}

// GetTenant retrieves a tenant by ID.
func (s *TenantStore) GetTenant(_ context.Context, id string) (*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

// GetTenantByAPIKey resolves an API key to its tenant.
func (s *TenantStore) GetTenantByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	s.mu.RLock()
	id, ok := s.byKey[apiKey]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.GetTenant(ctx, id)
}

// ListTenants returns all tenants ordered by creation time.
func (s *TenantStore) ListTenants(_ context.Context) ([]domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b domain.Tenant) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

// DeleteTenant removes a tenant, its settings and, when linked, its FAQs.
func (s *TenantStore) DeleteTenant(ctx context.Context, id string) error {
	s.mu.Lock()
	t, ok := s.tenants[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(s.tenants, id)
	delete(s.byKey, t.APIKey)
	delete(s.settings, id)
	s.mu.Unlock()

	if s.faqs != nil {
		return s.faqs.DeleteFAQs(ctx, id)
	}
	return nil
}

// GetSettings returns a copy of the tenant's settings.
func (s *TenantStore) GetSettings(_ context.Context, tenantID string) (domain.TenantSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.tenants[tenantID]; !ok {
		return nil, domain.ErrNotFound
	}
	out := domain.TenantSettings{}
	for k, v := range s.settings[tenantID] {
		out[k] = v
	}
	return out, nil
}

// SetSetting stores one tenant setting.
func (s *TenantStore) SetSetting(_ context.Context, tenantID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenantID]; !ok {
		return domain.ErrNotFound
	}
	s.settings[tenantID][key] = value
	return nil
}
