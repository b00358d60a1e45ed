// Package gemini translates the normalized chat request into Gemini's
// contents/parts wire format and extracts the reply text from the response.
// Like the openaichat adapter this is pure translation: the relay owns the
// outbound call and the API key.
package gemini

import (
	"encoding/json"
	"fmt"

	models "github.com/airelay/airelay/models"
)

const (
	DefaultModel = "gemini-2.0-flash"

	defaultTopP = 0.95
	defaultTopK = 40
)

// defaultSafetySettings covers the four harm categories at the API's standard
// medium threshold.
var defaultSafetySettings = []SafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// BuildRequest produces the generateContent request body. Conversation turns
// map user->"user" and assistant->"model"; a system prompt is folded into the
// first user turn since the v1beta endpoint has no separate field for it.
// When the history carries no user turn at all, the prompt becomes a
// synthetic leading user turn rather than being dropped.
func BuildRequest(req models.ChatRequest) RequestBody {
	var contents []Content

	system := req.SystemPrompt
	for _, turn := range req.TurnList() {
		role := "user"
		if turn.Role == models.RoleAssistant {
			role = "model"
		}
		text := turn.Content
		if system != "" && role == "user" {
			text = system + "\n\n" + text
			system = ""
		}
		contents = append(contents, Content{
			Role:  role,
			Parts: []Part{{Text: text}},
		})
	}
	if system != "" {
		contents = append([]Content{{Role: "user", Parts: []Part{{Text: system}}}}, contents...)
	}

	return RequestBody{
		Contents: contents,
		GenerationConfig: GenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			TopP:            defaultTopP,
			TopK:            defaultTopK,
		},
		SafetySettings: defaultSafetySettings,
	}
}

// ParseResponse extracts candidates[0].content.parts[0].text. A response with
// no candidates or no text part is ErrEmptyGeneration: the call succeeded but
// the model produced nothing usable (safety filtering is the common cause),
// which callers must surface differently from a transport failure.
func ParseResponse(body []byte) (string, error) {
	var response ResponseBody
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal Gemini response: %w", err)
	}

	if len(response.Candidates) == 0 {
		return "", models.ErrEmptyGeneration
	}

	parts := response.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", models.ErrEmptyGeneration
	}

	return parts[0].Text, nil
}
