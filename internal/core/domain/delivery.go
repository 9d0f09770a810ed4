package domain

import "strings"

// DeliveryMode selects how an answer is delivered to the caller.
type DeliveryMode string

// Available delivery modes.
const (
	// DeliveryModeDirect streams the best stored answer in small word chunks.
	DeliveryModeDirect DeliveryMode = "direct"

	// DeliveryModeLLM prompts a language model with the retrieved FAQs
	// and relays its output.
	DeliveryModeLLM DeliveryMode = "llm"
)

// IsValid returns true if the delivery mode is recognised.
func (m DeliveryMode) IsValid() bool {
	return m == DeliveryModeDirect || m == DeliveryModeLLM
}

// String returns the string representation.
func (m DeliveryMode) String() string {
	return string(m)
}

// Chat roles used in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one prior turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Speaker returns the role with its first letter upper-cased and the rest
// lower-cased, as rendered in prompts ("User", "Assistant").
func (m ChatMessage) Speaker() string {
	if m.Role == "" {
		return ""
	}
	r := strings.ToLower(m.Role)
	return strings.ToUpper(r[:1]) + r[1:]
}

// Chunk is one incrementally delivered fragment of an answer.
// A chunk with a non-nil Err is terminal: no chunks follow it.
type Chunk struct {
	Text string
	Err  error
}
