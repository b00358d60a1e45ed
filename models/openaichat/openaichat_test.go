package openaichat

import (
	"errors"
	"testing"

	models "github.com/airelay/airelay/models"
)

func TestBuildRequest_MultiTurn(t *testing.T) {
	req := models.ChatRequest{
		Messages: []models.ChatMessage{
			{Role: "user", Content: "Hello"},
			{Role: "assistant", Content: "Hi there"},
			{Role: "user", Content: "How are you?"},
		},
		Temperature: 0.6,
		MaxTokens:   2048,
	}

	body := BuildRequest("deepseek-chat", req)

	if body.Model != "deepseek-chat" {
		t.Errorf("Expected model deepseek-chat, got %s", body.Model)
	}
	if len(body.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(body.Messages))
	}
	if body.Messages[2].Role != "user" || body.Messages[2].Content != "How are you?" {
		t.Errorf("Last message not preserved: %+v", body.Messages[2])
	}
	if body.Stream {
		t.Error("Stream must be false")
	}
	if body.Temperature != 0.6 || body.MaxTokens != 2048 {
		t.Errorf("Generation parameters not carried: temp=%v max=%d", body.Temperature, body.MaxTokens)
	}
}

func TestBuildRequest_SystemPromptPrepended(t *testing.T) {
	req := models.ChatRequest{
		SystemPrompt: "You are helpful.",
		Messages:     []models.ChatMessage{{Role: "user", Content: "Hello"}},
	}

	body := BuildRequest("", req)

	if len(body.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(body.Messages))
	}
	if body.Messages[0].Role != "system" || body.Messages[0].Content != "You are helpful." {
		t.Errorf("System prompt not first: %+v", body.Messages[0])
	}
	if body.Model != DefaultModel {
		t.Errorf("Expected default model, got %s", body.Model)
	}
}

func TestBuildRequest_SingleMessagePromoted(t *testing.T) {
	req := models.ChatRequest{Message: "Hello"}

	body := BuildRequest("", req)

	if len(body.Messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(body.Messages))
	}
	if body.Messages[0].Role != "user" || body.Messages[0].Content != "Hello" {
		t.Errorf("Bare message not promoted to a user turn: %+v", body.Messages[0])
	}
}

func TestParseResponse_ExtractsContent(t *testing.T) {
	body := []byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Hi there"},"finish_reason":"stop"}]}`)

	reply, err := ParseResponse(body)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "Hi there" {
		t.Errorf("Expected 'Hi there', got %q", reply)
	}
}

func TestParseResponse_EmptyChoices(t *testing.T) {
	body := []byte(`{"choices":[]}`)

	_, err := ParseResponse(body)
	if !errors.Is(err, models.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestParseResponse_MissingChoices(t *testing.T) {
	body := []byte(`{"id":"x","object":"chat.completion"}`)

	_, err := ParseResponse(body)
	if !errors.Is(err, models.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestParseResponse_InvalidJSON(t *testing.T) {
	_, err := ParseResponse([]byte(`not json`))
	if err == nil {
		t.Fatal("Expected an error for invalid JSON")
	}
	if errors.Is(err, models.ErrMalformedResponse) {
		t.Error("A parse failure must not be reported as ErrMalformedResponse")
	}
}
