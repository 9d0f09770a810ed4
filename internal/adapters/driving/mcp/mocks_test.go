package mcp

import (
	"context"

	"github.com/custodia-labs/askme/internal/core/domain"
)

type mockRetrievalService struct {
	results []domain.SearchResult
	err     error

	gotTenant string
	gotTopK   int
}

func (m *mockRetrievalService) FindSimilar(_ context.Context, tenantID, _ string, topK int) ([]domain.SearchResult, error) {
	m.gotTenant = tenantID
	m.gotTopK = topK
	return m.results, m.err
}

func (m *mockRetrievalService) Invalidate(string) {}

func (m *mockRetrievalService) CacheStats() domain.CacheStats { return domain.CacheStats{} }

type mockAskService struct {
	chunks  []domain.Chunk
	results []domain.SearchResult
	err     error

	got domain.AskRequest
}

func (m *mockAskService) Ask(_ context.Context, req domain.AskRequest) (*domain.AskResponse, error) {
	m.got = req
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.Chunk, len(m.chunks))
	for _, c := range m.chunks {
		ch <- c
	}
	close(ch)
	mode := req.Mode
	if mode == "" {
		mode = domain.DeliveryModeDirect
	}
	return &domain.AskResponse{Results: m.results, Mode: mode, Chunks: ch}, nil
}

type mockTenantService struct {
	tenants []domain.Tenant
	err     error
}

func (m *mockTenantService) Create(context.Context, string, domain.TenantSettings) (*domain.Tenant, error) {
	return nil, m.err
}

func (m *mockTenantService) Resolve(context.Context, string) (*domain.Tenant, error) {
	return nil, m.err
}

func (m *mockTenantService) Get(context.Context, string) (*domain.Tenant, error) {
	return nil, m.err
}

func (m *mockTenantService) List(context.Context) ([]domain.Tenant, error) {
	return m.tenants, m.err
}

func (m *mockTenantService) Delete(context.Context, string) error { return m.err }

func (m *mockTenantService) Settings(context.Context, string) (domain.TenantSettings, error) {
	return nil, m.err
}

func (m *mockTenantService) SetSetting(context.Context, string, string, string) error { return m.err }

type mockFAQService struct {
	faqs []domain.FAQ
	err  error
}

func (m *mockFAQService) StoreFAQs(context.Context, string, []domain.FAQInput) (int, error) {
	return 0, m.err
}

func (m *mockFAQService) ReplaceFAQs(context.Context, string, []domain.FAQInput) (int, error) {
	return 0, m.err
}

func (m *mockFAQService) ListFAQs(context.Context, string) ([]domain.FAQ, error) {
	return m.faqs, m.err
}

func (m *mockFAQService) ClearFAQs(context.Context, string) error { return m.err }
