package domain

import "time"

// AskRequest is a user question addressed to one tenant.
type AskRequest struct {
	// TenantID scopes retrieval.
	TenantID string

	// Query is the raw question text.
	Query string

	// TopK is the number of FAQs to retrieve. Zero uses the tenant default.
	TopK int

	// Mode overrides the tenant's delivery mode when set.
	Mode DeliveryMode

	// History is the prior conversation, oldest first. Used in LLM mode.
	History []ChatMessage
}

// AskResponse carries the retrieved FAQs and the answer stream.
type AskResponse struct {
	// Results are the retrieved FAQs, closest first.
	Results []SearchResult

	// Mode is the delivery mode actually used.
	Mode DeliveryMode

	// Chunks delivers the answer. It is closed when delivery ends.
	Chunks <-chan Chunk
}

// CacheStats reports how many entries the retrieval caches hold.
type CacheStats struct {
	Indexes int `json:"indexes"`
	Queries int `json:"queries"`
}

// DeliveryRequest describes how to deliver an answer for retrieved results.
type DeliveryRequest struct {
	Mode    DeliveryMode
	Results []SearchResult
	Query   string
	History []ChatMessage

	// Delay is the pause between direct-mode chunks.
	Delay time.Duration
}
