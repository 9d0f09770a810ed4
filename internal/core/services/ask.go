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

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// AskService answers questions by retrieving FAQs and delivering an answer.
type AskService struct {
	retrieval driving.RetrievalService
	delivery  driving.DeliveryService
	tenants   driven.TenantStore
	defaults  domain.AppSettings
}

// NewAskService creates an ask service. Tenant settings override defaults
// for top-k, delivery mode and delay; the request overrides both.
func NewAskService(
	retrieval driving.RetrievalService,
	delivery driving.DeliveryService,
	tenants driven.TenantStore,
	defaults domain.AppSettings,
) *AskService {
	return &AskService{
		retrieval: retrieval,
		delivery:  delivery,
		tenants:   tenants,
		defaults:  defaults,
	}
}

// Ask retrieves the closest FAQs and starts delivering an answer.
func (s *AskService) Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResponse, error) {
	settings, err := s.tenants.GetSettings(ctx, req.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("ask: %w", domain.ErrTenantNotFound)
		}
		return nil, fmt.Errorf("ask: %w", err)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = settings.TopK(s.defaults.Retrieval.TopK)
	}
	mode := req.Mode
	if mode == "" {
		mode = settings.DeliveryMode(s.defaults.Delivery.Mode)
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("ask: delivery mode %q: %w", mode, domain.ErrInvalidInput)
	}

	results, err := s.retrieval.FindSimilar(ctx, req.TenantID, req.Query, topK)
	if err != nil {
		if IsExpected(err) {
			logger.Debug("Ask: %v", err)
		} else {
			logger.Error("Ask failed for tenant %s: %v", req.TenantID, err)
		}
		return nil, err
	}
	if len(results) == 0 {
		logger.Debug("Ask: tenant %s has no FAQs", req.TenantID)
		return nil, fmt.Errorf("ask: %w", domain.ErrNoResults)
	}

	chunks := s.delivery.Deliver(ctx, domain.DeliveryRequest{
		Mode:    mode,
		Results: results,
		Query:   req.Query,
		History: req.History,
		Delay:   settings.Delay(s.defaults.Delivery.Delay),
	})

	return &domain.AskResponse{Results: results, Mode: mode, Chunks: chunks}, nil
}

// Collect drains a chunk stream into a single string. It returns the
// terminal chunk's error, if any, along with the text gathered before it.
func Collect(chunks <-chan domain.Chunk) (string, error) {
	var text []byte
	for c := range chunks {
		if c.Err != nil {
			return string(text), c.Err
		}
		text = append(text, c.Text...)
	}
	return string(text), nil
}
