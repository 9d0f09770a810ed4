package domain

import (
	"strconv"
	"time"
)

// Tenant is an isolated customer account. All retrieval is scoped to one tenant.
type Tenant struct {
	// ID is the unique identifier for the tenant.
	ID string

	// Name is the human-readable name.
	Name string

	// APIKey authenticates requests on behalf of the tenant.
	APIKey string

	// CreatedAt is when the tenant was provisioned.
	CreatedAt time.Time
}

// Tenant setting keys recognised by the service.
const (
	// TenantSettingDeliveryMode selects the default delivery mode ("direct" or "llm").
	TenantSettingDeliveryMode = "delivery.mode"

	// TenantSettingDeliveryDelayMS is the pause between direct-mode chunks.
	TenantSettingDeliveryDelayMS = "delivery.delay_ms"

	// TenantSettingTopK is the default number of results to retrieve.
	TenantSettingTopK = "retrieval.top_k"

	// TenantSettingGreeting is shown when a chat session opens.
	TenantSettingGreeting = "chatbot.greeting"
)

// TenantSettings is the key/value configuration attached to a tenant.
type TenantSettings map[string]string

// DeliveryMode returns the configured mode or fallback when unset or invalid.
func (s TenantSettings) DeliveryMode(fallback DeliveryMode) DeliveryMode {
	if m := DeliveryMode(s[TenantSettingDeliveryMode]); m.IsValid() {
		return m
	}
	return fallback
}

// TopK returns the configured result count or fallback.
func (s TenantSettings) TopK(fallback int) int {
	return s.positiveInt(TenantSettingTopK, fallback)
}

// Delay returns the configured chunk delay or fallback.
func (s TenantSettings) Delay(fallback time.Duration) time.Duration {
	ms, ok := s[TenantSettingDeliveryDelayMS]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(ms)
	if err != nil || n < 0 {
		return fallback
	}
	return time.Duration(n) * time.Millisecond
}

func (s TenantSettings) positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(s[key])
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
