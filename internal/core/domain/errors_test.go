package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrTenantNotFound", ErrTenantNotFound},
		{"ErrNoResults", ErrNoResults},
		{"ErrStorageUnavailable", ErrStorageUnavailable},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrGenerationFailed", ErrGenerationFailed},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnsupportedType,
		ErrTenantNotFound, ErrNoResults, ErrStorageUnavailable,
		ErrLLMUnavailable, ErrGenerationFailed, ErrEmbeddingUnavailable, ErrRateLimited,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

// TestErrors_Wrapped tests that wrapped errors still match their sentinel
func TestErrors_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("index build: %w", fmt.Errorf("get faqs: %w", ErrStorageUnavailable))

	assert.True(t, errors.Is(wrapped, ErrStorageUnavailable))
	assert.False(t, errors.Is(wrapped, ErrNoResults))
	assert.Equal(t, "index build: get faqs: storage unavailable", wrapped.Error())
}

func TestErrNoResults(t *testing.T) {
	assert.Equal(t, "no FAQs found", ErrNoResults.Error())
}
