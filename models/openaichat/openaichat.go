// Package openaichat translates the normalized chat request into the
// OpenAI-chat-compatible wire format used by DeepSeek, Qwen and most
// self-hosted model servers, and extracts the single reply string from the
// provider's response. Translation only: no retries, no outbound calls, no
// credential handling.
package openaichat

import (
	"encoding/json"
	"fmt"

	models "github.com/airelay/airelay/models"
)

const DefaultModel = "deepseek-chat"

// BuildRequest produces the provider request body. The system prompt, when
// present, is prepended as a "system" role message.
func BuildRequest(model string, req models.ChatRequest) RequestBody {
	if model == "" {
		model = DefaultModel
	}

	var messages []WireMessage
	if req.SystemPrompt != "" {
		messages = append(messages, WireMessage{Role: models.RoleSystem, Content: req.SystemPrompt})
	}
	for _, turn := range req.TurnList() {
		messages = append(messages, WireMessage{Role: turn.Role, Content: turn.Content})
	}

	return RequestBody{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}
}

// ParseResponse extracts choices[0].message.content from a provider response
// body. A body with no choices is ErrMalformedResponse.
func ParseResponse(body []byte) (string, error) {
	var response ResponseBody
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal provider response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", models.ErrMalformedResponse
	}

	content := response.Choices[0].Message.Content
	if content == "" {
		return "", models.ErrMalformedResponse
	}

	return content, nil
}
