package sessions

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/airelay/airelay/models"
	"github.com/airelay/airelay/stores"
	"github.com/gorilla/websocket"
)

// ContextWindowSize is how many trailing messages are fed back to the model
// on each send, whether as a native message array or flattened into a prompt.
const ContextWindowSize = 15

// TitleMaxLen is the derived-title truncation point, in characters.
const TitleMaxLen = 50

// DefaultTitle is used while a conversation has no user message yet.
const DefaultTitle = "New Conversation"

var (
	// ErrEmptyMessage rejects empty or whitespace-only sends.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSendInFlight rejects a second send while one is pending. Sends are
	// not queued; the caller retries after the pending one settles.
	ErrSendInFlight = errors.New("a send is already in progress")
)

// RelaySender is the session's view of the relay. Implemented by relay.Client;
// tests substitute fakes.
type RelaySender interface {
	Send(ctx context.Context, req models.ChatRequest) (string, error)
}

// ChatSession owns exactly one active conversation and mediates all store
// access on behalf of the caller. A session is single-user: one send may be in
// flight at a time, enforced by the busy flag rather than a queue.
type ChatSession struct {
	Store    stores.ConversationStore
	Relay    RelaySender
	Settings *stores.Settings
	Logger   *log.Logger

	// FlattenHistory folds the trailing context window into one synthesized
	// prompt string instead of a native multi-turn message array, for relay
	// paths that only accept a single message field.
	FlattenHistory bool

	mu      sync.Mutex
	active  *stores.Conversation
	sending bool
}

// SendResult is what a completed send cycle produced. Failed is set when the
// assistant message is a synthesized error rather than a model reply; failed
// sends are still part of the visible conversation history.
type SendResult struct {
	Reply  string
	Failed bool
	SentAt time.Time
}

// WebSocketWriter serializes writes to one socket connection.
type WebSocketWriter struct {
	Conn   *websocket.Conn
	Logger *log.Logger
	mu     sync.Mutex
}

func (w *WebSocketWriter) WriteResponse(resp interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(resp)
}

func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"error": message})
}

func (w *WebSocketWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": "done"})
}

// SessionSocket runs the send cycle over a websocket connection.
type SessionSocket struct {
	Session *ChatSession
	Writer  *WebSocketWriter
	Logger  *log.Logger
}
