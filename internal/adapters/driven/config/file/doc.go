// Package file provides filesystem-backed implementations of driven ports.
//
// Adapters:
//   - ConfigStore: TOML configuration with ASKME_* environment overrides
//   - PromptStore: editable prompt templates with built-in defaults
package file
