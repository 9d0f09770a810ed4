package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
	"github.com/custodia-labs/askme/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyStorageBackend      = "storage.backend"
	keyStoragePath         = "storage.path"
	keyEmbedProvider       = "embedding.provider"
	keyEmbedModel          = "embedding.model"
	keyEmbedBaseURL        = "embedding.base_url"
	keyEmbedAPIKey         = "embedding.api_key"
	keyEmbedDims           = "embedding.dimensions"
	keyLLMProvider         = "llm.provider"
	keyLLMModel            = "llm.model"
	keyLLMBaseURL          = "llm.base_url"
	keyLLMAPIKey           = "llm.api_key"
	keyServerAddr          = "server.addr"
	keyServerAdminToken    = "server.admin_token"
	keyServerRateLimit     = "server.rate_limit"
	keyServerRateBurst     = "server.rate_burst"
	keyCacheIndexTenants   = "cache.index_tenants"
	keyCacheQuerySize      = "cache.query_size"
	keyCacheQueryTTL       = "cache.query_ttl"
	keyDeliveryMode        = "delivery.mode"
	keyDeliveryConcurrency = "delivery.concurrency"
	keyDeliveryDelayMS     = "delivery.delay_ms"
	keyRetrievalTopK       = "retrieval.top_k"
)

// defaultOllamaURL is used for local providers without a configured base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// The aiValidator parameter is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings. Unset or unusable values
// fall back to the defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			Backend: s.getBackend(d.Storage.Backend),
			Path:    s.configStore.GetString(keyStoragePath),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, d.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			BaseURL: s.configStore.GetString(keyLLMBaseURL),
			APIKey:  s.configStore.GetString(keyLLMAPIKey),
		},
		Server: domain.ServerSettings{
			Addr:       s.getString(keyServerAddr, d.Server.Addr),
			AdminToken: s.configStore.GetString(keyServerAdminToken),
			RateLimit:  s.getFloat(keyServerRateLimit, d.Server.RateLimit),
			RateBurst:  s.getInt(keyServerRateBurst, d.Server.RateBurst),
		},
		Cache: domain.CacheSettings{
			IndexTenants: s.getInt(keyCacheIndexTenants, d.Cache.IndexTenants),
			QuerySize:    s.getInt(keyCacheQuerySize, d.Cache.QuerySize),
			QueryTTL:     s.getDuration(keyCacheQueryTTL, d.Cache.QueryTTL),
		},
		Delivery: domain.DeliverySettings{
			Mode:        s.getDeliveryMode(d.Delivery.Mode),
			Concurrency: s.getInt(keyDeliveryConcurrency, d.Delivery.Concurrency),
			Delay:       s.getMillis(keyDeliveryDelayMS, d.Delivery.Delay),
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyRetrievalTopK, d.Retrieval.TopK),
		},
	}

	// Model defaults follow the chosen provider.
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	if llm := s.configStore.GetString(keyLLMProvider); llm != "" {
		settings.LLM.Provider = domain.AIProvider(llm)
		settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyStorageBackend, settings.Storage.Backend.String()},
		{keyStoragePath, settings.Storage.Path},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyServerAddr, settings.Server.Addr},
		{keyServerRateLimit, settings.Server.RateLimit},
		{keyServerRateBurst, settings.Server.RateBurst},
		{keyCacheIndexTenants, settings.Cache.IndexTenants},
		{keyCacheQuerySize, settings.Cache.QuerySize},
		{keyCacheQueryTTL, settings.Cache.QueryTTL.String()},
		{keyDeliveryMode, settings.Delivery.Mode.String()},
		{keyDeliveryConcurrency, settings.Delivery.Concurrency},
		{keyDeliveryDelayMS, int(settings.Delivery.Delay / time.Millisecond)},
		{keyRetrievalTopK, settings.Retrieval.TopK},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets are only written when present so an env-supplied key never
	// blanks a stored one.
	secrets := map[string]string{
		keyEmbedAPIKey:      settings.Embedding.APIKey,
		keyLLMAPIKey:        settings.LLM.APIKey,
		keyServerAdminToken: settings.Server.AdminToken,
	}
	for key, value := range secrets {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// SetStorageBackend selects the persistence backend.
func (s *SettingsService) SetStorageBackend(backend domain.StorageBackend, path string) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid storage backend: %s", backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Storage.Backend = backend
	settings.Storage.Path = path
	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetValue stores a single scalar setting given as text, checking it
// against the key's type.
func (s *SettingsService) SetValue(key, value string) error {
	switch key {
	case keyStorageBackend:
		if !domain.StorageBackend(value).IsValid() {
			return fmt.Errorf("invalid storage backend: %s", value)
		}
	case keyDeliveryMode:
		if !domain.DeliveryMode(value).IsValid() {
			return fmt.Errorf("invalid delivery mode: %s", value)
		}
	case keyEmbedProvider, keyLLMProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("invalid provider: %s", value)
		}
	case keyEmbedDims, keyServerRateBurst, keyCacheIndexTenants, keyCacheQuerySize,
		keyDeliveryConcurrency, keyDeliveryDelayMS, keyRetrievalTopK:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		return s.configStore.Set(key, n)
	case keyServerRateLimit:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%s must be a non-negative number", key)
		}
		return s.configStore.Set(key, f)
	case keyCacheQueryTTL:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a duration: %w", key, err)
		}
	case keyStoragePath, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey,
		keyLLMModel, keyLLMBaseURL, keyLLMAPIKey, keyServerAddr, keyServerAdminToken:
	default:
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	return s.configStore.Set(key, value)
}

// Keys returns every recognised setting key, sorted.
func (s *SettingsService) Keys() []string {
	keys := []string{
		keyStorageBackend, keyStoragePath,
		keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedDims,
		keyLLMProvider, keyLLMModel, keyLLMBaseURL, keyLLMAPIKey,
		keyServerAddr, keyServerAdminToken, keyServerRateLimit, keyServerRateBurst,
		keyCacheIndexTenants, keyCacheQuerySize, keyCacheQueryTTL,
		keyDeliveryMode, keyDeliveryConcurrency, keyDeliveryDelayMS,
		keyRetrievalTopK,
	}
	slices.Sort(keys)
	return keys
}

// Validate checks that current settings can be used to serve.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if settings.LLM.Provider == "" {
		return nil
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func baseURLFor(provider domain.AIProvider, current string) string {
	if provider != domain.AIProviderOllama {
		return ""
	}
	if current == "" {
		return defaultOllamaURL
	}
	return current
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if val := s.configStore.GetInt(key); val > 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	if val := s.configStore.GetFloat(key); val >= 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s.configStore.GetString(key)))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	if ms := s.configStore.GetInt(key); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	if b := domain.StorageBackend(s.configStore.GetString(keyStorageBackend)); b.IsValid() {
		return b
	}
	return defaultVal
}

func (s *SettingsService) getDeliveryMode(defaultVal domain.DeliveryMode) domain.DeliveryMode {
	if m := domain.DeliveryMode(s.configStore.GetString(keyDeliveryMode)); m.IsValid() {
		return m
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	if p := domain.AIProvider(s.configStore.GetString(key)); p.IsValid() {
		return p
	}
	return defaultVal
}
