package models

import "time"

// API types accepted by the relay. Routing is a closed set: anything else is
// rejected as a bad request rather than falling through to a default provider.
const (
	APITypeDeepseek = "deepseek"
	APITypeQwen     = "qwen"
	APITypeQwen2    = "qwen2"
	APITypeGemini   = "gemini"
	APITypeCustom   = "custom"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn of a conversation in the normalized format shared by
// every provider adapter.
type ChatMessage struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Model   string    `json:"model,omitempty"`
	SentAt  time.Time `json:"sent_at,omitempty"`
}

// ChatRequest is the relay request envelope. Exactly one of APIType or
// Endpoint selects the route; an Endpoint pointing at a loopback host selects
// the no-credential local-model path.
type ChatRequest struct {
	Message      string        `json:"message,omitempty"`
	Messages     []ChatMessage `json:"messages,omitempty"`
	SystemPrompt string        `json:"system_prompt,omitempty"`
	Model        string        `json:"model,omitempty"`
	Temperature  float64       `json:"temperature,omitempty"`
	MaxTokens    int           `json:"max_tokens,omitempty"`
	APIType      string        `json:"apiType,omitempty"`
	Endpoint     string        `json:"endpoint,omitempty"`
}

// TurnList returns the request's turns in normalized form. A bare Message
// field is promoted to a single user turn so adapters only deal with one
// shape.
func (r *ChatRequest) TurnList() []ChatMessage {
	if len(r.Messages) > 0 {
		return r.Messages
	}
	if r.Message != "" {
		return []ChatMessage{{Role: RoleUser, Content: r.Message}}
	}
	return nil
}
