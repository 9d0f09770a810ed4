// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/askme/internal/core/domain"
)

// GreetingLoaded carries the tenant's display name and greeting.
type GreetingLoaded struct {
	TenantName string
	Greeting   string
}

// AnswerStarted is sent once retrieval succeeded and delivery began.
type AnswerStarted struct {
	Results []domain.SearchResult
	Mode    domain.DeliveryMode
	Chunks  <-chan domain.Chunk
}

// ChunkReceived carries one fragment of the answer being delivered.
type ChunkReceived struct {
	Text string
}

// AnswerFinished is sent when the chunk stream ends. Err is the
// terminal chunk's error, nil on a clean finish.
type AnswerFinished struct {
	Err error
}

// AskFailed is sent when a question could not be answered at all.
type AskFailed struct {
	Err error
}
