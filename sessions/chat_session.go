package sessions

import (
	"context"
	"strings"
	"time"

	"github.com/airelay/airelay/models"
	"github.com/airelay/airelay/stores"
)

// Send runs one complete send cycle: Idle -> Sending -> Idle. The user
// message is appended optimistically before the relay call; a relay failure
// becomes a visible assistant-role error message rather than terminating the
// session. There is no automatic retry: the caller sends again.
func (s *ChatSession) Send(ctx context.Context, text string) (SendResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return SendResult{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return SendResult{}, ErrSendInFlight
	}
	s.sending = true

	if s.active == nil {
		s.startNewLocked()
	}

	// Optimistic append: the user message is visible and persisted before the
	// network round-trip. A persistence failure is logged, not fatal.
	if err := s.appendLocked(stores.Message{
		Role:    models.RoleUser,
		Content: trimmed,
		SentAt:  time.Now(),
	}); err != nil {
		s.Logger.Printf("Warning: failed to persist user message: %v", err)
	}

	req := s.buildRequestLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	reply, err := s.Relay.Send(ctx, req)
	if err != nil {
		s.Logger.Printf("Relay error: %v", err)
		errorReply := "Error: " + err.Error()

		s.mu.Lock()
		if appendErr := s.appendLocked(stores.Message{
			Role:    models.RoleAssistant,
			Content: errorReply,
			SentAt:  time.Now(),
		}); appendErr != nil {
			s.Logger.Printf("Warning: failed to persist error message: %v", appendErr)
		}
		s.mu.Unlock()

		return SendResult{Reply: errorReply, Failed: true, SentAt: time.Now()}, err
	}

	s.mu.Lock()
	if appendErr := s.appendLocked(stores.Message{
		Role:    models.RoleAssistant,
		Content: reply,
		Model:   s.Settings.Model,
		SentAt:  time.Now(),
	}); appendErr != nil {
		s.Logger.Printf("Warning: failed to persist assistant message: %v", appendErr)
	}
	s.mu.Unlock()

	return SendResult{Reply: reply, SentAt: time.Now()}, nil
}

// Sending reports whether a send is in flight.
func (s *ChatSession) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// buildRequestLocked assembles the relay request from the settings and the
// trailing context window of the active conversation.
func (s *ChatSession) buildRequestLocked() models.ChatRequest {
	req := models.ChatRequest{
		Model:       s.Settings.Model,
		Temperature: s.Settings.Temperature,
		MaxTokens:   s.Settings.MaxTokens,
		APIType:     s.Settings.ModelType,
	}
	if s.Settings.ModelType == models.APITypeCustom {
		req.Endpoint = s.Settings.Endpoint
	}

	window := s.active.Messages
	if len(window) > ContextWindowSize {
		window = window[len(window)-ContextWindowSize:]
	}

	if s.FlattenHistory {
		req.Message = flattenPrompt(s.active.Title, window)
		return req
	}

	req.Messages = make([]models.ChatMessage, len(window))
	for i, msg := range window {
		req.Messages[i] = models.ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return req
}

// flattenPrompt folds the context window into one prompt string for relay
// paths that only accept a single message field.
func flattenPrompt(title string, window []stores.Message) string {
	var b strings.Builder
	b.WriteString("The following is a conversation titled \"" + title + "\". Continue it as the assistant.\n")
	for _, msg := range window {
		switch msg.Role {
		case models.RoleAssistant:
			b.WriteString("\nAssistant: " + msg.Content)
		default:
			b.WriteString("\nUser: " + msg.Content)
		}
	}
	b.WriteString("\nAssistant:")
	return b.String()
}
