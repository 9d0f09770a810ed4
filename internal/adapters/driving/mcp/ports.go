package mcp

import (
	"github.com/custodia-labs/askme/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Retrieval answers find_similar.
	Retrieval driving.RetrievalService

	// Ask answers ask_faq.
	Ask driving.AskService

	// Tenants backs list_tenants and the tenants resource. Optional.
	Tenants driving.TenantService

	// FAQs backs the per-tenant FAQ resource. Optional.
	FAQs driving.FAQService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Ask == nil {
		return ErrMissingAskService
	}
	return nil
}
