package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryMode_IsValid(t *testing.T) {
	assert.True(t, DeliveryModeDirect.IsValid())
	assert.True(t, DeliveryModeLLM.IsValid())
	assert.False(t, DeliveryMode("").IsValid())
	assert.False(t, DeliveryMode("stream").IsValid())
}

func TestChatMessage_Speaker(t *testing.T) {
	tests := []struct {
		role     string
		expected string
	}{
		{"user", "User"},
		{"ASSISTANT", "Assistant"},
		{"system", "System"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.expected, ChatMessage{Role: tt.role}.Speaker())
		})
	}
}
