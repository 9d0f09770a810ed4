package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors. Adapters translate backend
// failures into these sentinels and wrap them with %w.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	// An FAQ upload containing a single invalid row is rejected as a whole.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, backend or file format.
	ErrUnsupportedType = errors.New("unsupported type")

	// Retrieval Errors.

	// ErrTenantNotFound indicates an unknown tenant or an unresolvable API key.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrNoResults indicates the tenant has no stored FAQs to search.
	// This is an expected outcome, not a fault.
	ErrNoResults = errors.New("no FAQs found")

	// ErrStorageUnavailable indicates the persistence layer failed while
	// loading or storing FAQs. Reads are safe to retry; bulk writes must be
	// retried as a whole batch.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Generation Errors.

	// ErrLLMUnavailable indicates no text-generation model is configured.
	// LLM delivery mode is disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrGenerationFailed indicates the text-generation model failed.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrEmbeddingUnavailable indicates the embedding service cannot be reached.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates a tenant exceeded its request rate.
	ErrRateLimited = errors.New("rate limited")
)
