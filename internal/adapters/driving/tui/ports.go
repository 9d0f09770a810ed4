// Package tui provides an interactive terminal chat for one tenant.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/askme/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Ask answers each submitted question.
	Ask driving.AskService

	// Tenants supplies the tenant name and greeting. Optional.
	Tenants driving.TenantService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	return nil
}
