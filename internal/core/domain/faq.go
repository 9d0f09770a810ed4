package domain

import (
	"fmt"
	"strings"
	"time"
)

// FAQ is a stored question/answer pair belonging to exactly one tenant.
// It is immutable once ingested.
type FAQ struct {
	// ID is the unique identifier for the FAQ.
	ID string

	// TenantID links to the owning Tenant.
	TenantID string

	// Question is the raw question text as uploaded.
	Question string

	// Answer is the raw answer text as uploaded.
	Answer string

	// Embedding is the vector of the normalised question.
	// It is computed once at ingestion and never recomputed.
	Embedding []float32

	// CreatedAt is when the FAQ was ingested.
	CreatedAt time.Time
}

// FAQInput is a question/answer pair awaiting ingestion.
type FAQInput struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Validate returns ErrInvalidInput if either field is blank.
func (f FAQInput) Validate() error {
	if strings.TrimSpace(f.Question) == "" {
		return fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if strings.TrimSpace(f.Answer) == "" {
		return fmt.Errorf("%w: answer is required", ErrInvalidInput)
	}
	return nil
}

// ValidateFAQs checks every row and fails on the first invalid one.
// The row number in the error is 1-based.
func ValidateFAQs(faqs []FAQInput) error {
	if len(faqs) == 0 {
		return fmt.Errorf("%w: no FAQs supplied", ErrInvalidInput)
	}
	for i, f := range faqs {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

// SearchResult is one candidate returned by similarity search.
type SearchResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`

	// Distance is the squared Euclidean distance between the query
	// embedding and the stored question embedding. Smaller is closer.
	Distance float32 `json:"distance"`
}
