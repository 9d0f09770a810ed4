package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a service provider for embeddings or text generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHashing is the built-in deterministic feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHashing, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHashing:
		return "Hashing (built-in)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects the persistence implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageBackendSQLite stores tenants and FAQs in a SQLite database file.
	StorageBackendSQLite StorageBackend = "sqlite"

	// StorageBackendBadger stores tenants and FAQs in a Badger key-value store.
	StorageBackendBadger StorageBackend = "badger"

	// StorageBackendMemory keeps everything in process memory.
	StorageBackendMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageBackendSQLite, StorageBackendBadger, StorageBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	// Backend is the storage implementation.
	Backend StorageBackend

	// Path is the data directory. Empty means the default under the config dir.
	Path string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return e.Dimensions > 0
}

// LLMSettings holds text-generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider. Empty disables LLM delivery.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHashing {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// AdminToken guards tenant provisioning. Empty disables the endpoint.
	AdminToken string

	// RateLimit is the sustained per-tenant request rate (requests/second).
	// Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the per-tenant burst size.
	RateBurst int
}

// CacheSettings bounds the in-memory index and query caches.
type CacheSettings struct {
	// IndexTenants is the maximum number of tenant indexes held in memory.
	IndexTenants int

	// QuerySize is the maximum number of cached query results.
	QuerySize int

	// QueryTTL is how long a cached query result stays valid.
	QueryTTL time.Duration
}

// DeliverySettings holds answer delivery configuration.
type DeliverySettings struct {
	// Mode is the default delivery mode when the tenant does not set one.
	Mode DeliveryMode

	// Concurrency is the maximum number of simultaneous streaming deliveries.
	Concurrency int

	// Delay is the pause between direct-mode chunks.
	Delay time.Duration
}

// RetrievalSettings holds similarity search configuration.
type RetrievalSettings struct {
	// TopK is the default number of results.
	TopK int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Storage   StorageSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Server    ServerSettings
	Cache     CacheSettings
	Delivery  DeliverySettings
	Retrieval RetrievalSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings use the built-in hashing provider; LLM delivery is left
// unconfigured until a provider is chosen.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{
			Backend: StorageBackendSQLite,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Model:      DefaultEmbeddingModels()[AIProviderHashing],
			Dimensions: DefaultEmbeddingDimensions,
		},
		LLM: LLMSettings{},
		Server: ServerSettings{
			Addr:      ":8080",
			RateLimit: 10,
			RateBurst: 20,
		},
		Cache: CacheSettings{
			IndexTenants: 128,
			QuerySize:    128,
			QueryTTL:     5 * time.Minute,
		},
		Delivery: DeliverySettings{
			Mode:        DeliveryModeDirect,
			Concurrency: 10,
			Delay:       100 * time.Millisecond,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
	}
}

// DefaultEmbeddingDimensions is the embedding size of the reference deployment.
const DefaultEmbeddingDimensions = 384

// DefaultTopK is the number of results returned when the caller does not ask.
const DefaultTopK = 3

// Validate reports the first setting that cannot be used.
func (s AppSettings) Validate() error {
	if !s.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: storage backend %q", ErrUnsupportedType, s.Storage.Backend)
	}
	if !s.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured", ErrInvalidInput, s.Embedding.Provider)
	}
	if s.LLM.Provider != "" && !s.LLM.IsConfigured() {
		return fmt.Errorf("%w: llm provider %q is not configured", ErrInvalidInput, s.LLM.Provider)
	}
	if !s.Delivery.Mode.IsValid() {
		return fmt.Errorf("%w: delivery mode %q", ErrUnsupportedType, s.Delivery.Mode)
	}
	if s.Delivery.Concurrency <= 0 {
		return fmt.Errorf("%w: delivery concurrency must be positive", ErrInvalidInput)
	}
	if s.Cache.IndexTenants <= 0 || s.Cache.QuerySize <= 0 {
		return fmt.Errorf("%w: cache sizes must be positive", ErrInvalidInput)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHashing,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support text generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHashing: "xxhash-bigram",
		AIProviderOllama:  "all-minilm",
		AIProviderOpenAI:  "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2:1b",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}
