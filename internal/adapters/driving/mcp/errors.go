// Package mcp provides an MCP (Model Context Protocol) server adapter for askme.
// It lets AI assistants query a tenant's FAQs and fetch delivered answers.
package mcp

import "errors"

// Errors returned when required ports are missing.
var (
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
	ErrMissingAskService       = errors.New("mcp: ask service is required")
)
