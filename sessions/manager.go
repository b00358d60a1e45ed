package sessions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/airelay/airelay/models"
	"github.com/airelay/airelay/stores"
	"github.com/google/uuid"
)

// newConversationID builds a fresh id: unpredictable enough that collisions
// are negligible, not a cryptographic guarantee.
func newConversationID() string {
	return fmt.Sprintf("conv_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// StartNew makes a fresh empty conversation active. Nothing is written to the
// store until the first message is appended: an empty conversation never
// becomes a durable entry.
func (s *ChatSession) StartNew() *stores.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startNewLocked()
}

func (s *ChatSession) startNewLocked() *stores.Conversation {
	s.active = &stores.Conversation{
		ConversationID: newConversationID(),
		Title:          DefaultTitle,
	}
	return s.active
}

// SwitchTo persists the active conversation, then loads the requested one and
// makes it active. When the id no longer exists (e.g. it raced with a
// deletion), the session falls back to a fresh conversation and the NotFound
// error is returned so the caller can refresh its listing.
func (s *ChatSession) SwitchTo(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && len(s.active.Messages) > 0 {
		if err := s.Store.Save(s.active); err != nil {
			s.Logger.Printf("Warning: failed to persist active conversation before switch: %v", err)
		}
	}

	conv, err := s.Store.Load(conversationID)
	if err != nil {
		if errors.Is(err, stores.ErrConversationNotFound) {
			s.startNewLocked()
			return err
		}
		return fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}

	s.active = conv
	return nil
}

// Append adds a message to the active conversation, recomputes the derived
// title and persists. The message is immutable once appended.
func (s *ChatSession) Append(msg stores.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(msg)
}

func (s *ChatSession) appendLocked(msg stores.Message) error {
	if s.active == nil {
		s.startNewLocked()
	}

	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	msg.ConversationID = s.active.ConversationID
	msg.Sequence = len(s.active.Messages) + 1

	s.active.Messages = append(s.active.Messages, msg)
	s.active.Title = TitleFor(s.active)

	if err := s.Store.Save(s.active); err != nil {
		return fmt.Errorf("failed to persist conversation: %w", err)
	}
	return nil
}

// Remove deletes a conversation from the store. Removing the active one
// starts a fresh conversation so the session never points at a deleted id.
func (s *ChatSession) Remove(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Store.Delete(conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", conversationID, err)
	}

	if s.active != nil && s.active.ConversationID == conversationID {
		s.startNewLocked()
	}
	return nil
}

// Active returns a snapshot of the active conversation.
func (s *ChatSession) Active() stores.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		s.startNewLocked()
	}

	snapshot := *s.active
	snapshot.Messages = append([]stores.Message(nil), s.active.Messages...)
	return snapshot
}

// List returns the stored conversations, newest first. A failing store
// degrades to an empty listing: history is a convenience, not a requirement
// of the running session.
func (s *ChatSession) List() []stores.ConversationInfo {
	infos, err := s.Store.List()
	if err != nil {
		s.Logger.Printf("Warning: failed to list conversations: %v", err)
		return nil
	}
	return infos
}

// TitleFor derives the conversation title: the first user message's content,
// truncated to TitleMaxLen characters with an ellipsis marker when longer, or
// the default placeholder when no user message exists. Pure and idempotent.
func TitleFor(conv *stores.Conversation) string {
	for _, msg := range conv.Messages {
		if msg.Role != models.RoleUser {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > TitleMaxLen {
			return string(runes[:TitleMaxLen]) + "..."
		}
		return msg.Content
	}
	return DefaultTitle
}

// ExportText renders the conversation as plain text. The format round-trips
// through ParseExport, preserving every message's role, content and order.
// Content lines that would read as a role marker (markdown "### " headings)
// get a backslash escape so the parser can tell them apart from real ones.
func ExportText(conv *stores.Conversation) string {
	var b strings.Builder
	b.WriteString("# " + conv.Title + "\n")
	for _, msg := range conv.Messages {
		b.WriteString("\n### " + msg.Role + "\n")
		b.WriteString(escapeMarkers(msg.Content) + "\n")
	}
	return b.String()
}

// escapeMarkers prefixes marker-shaped content lines with a backslash. Lines
// already carrying backslashes before the marker get one more, so unescaping
// is always a single strip.
func escapeMarkers(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, `\`), "### ") {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}

func unescapeMarker(line string) string {
	if strings.HasPrefix(line, `\`) && strings.HasPrefix(strings.TrimLeft(line, `\`), "### ") {
		return line[1:]
	}
	return line
}

// ParseExport reads text produced by ExportText back into messages.
func ParseExport(text string) []stores.Message {
	var messages []stores.Message
	var current *stores.Message

	flush := func() {
		if current != nil {
			current.Content = strings.TrimSuffix(current.Content, "\n")
			current.Sequence = len(messages) + 1
			messages = append(messages, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if role, ok := strings.CutPrefix(line, "### "); ok {
			flush()
			current = &stores.Message{Role: role}
			continue
		}
		if current != nil {
			if current.Content != "" {
				current.Content += "\n"
			}
			current.Content += unescapeMarker(line)
		}
	}
	flush()
	return messages
}
