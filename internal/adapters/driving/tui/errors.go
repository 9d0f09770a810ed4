package tui

import "errors"

// ErrMissingAskService is returned when the ask service is not provided.
var ErrMissingAskService = errors.New("tui: ask service is required")

// ErrMissingTenant is returned when no tenant is selected.
var ErrMissingTenant = errors.New("tui: tenant id is required")
