package stores

import (
	"errors"
	"time"
)

// MaxConversations is the retention cap. When a save would leave more than
// this many conversations, the one with the oldest LastActive is evicted.
// Eviction is purely by timestamp: the caller's active conversation is not
// protected if it happens to be the oldest.
const MaxConversations = 20

// ErrConversationNotFound is returned by Load for an unknown id.
var ErrConversationNotFound = errors.New("conversation not found")

// Message is one immutable turn within a conversation. Ordering within a
// conversation is Sequence ascending, append-only.
type Message struct {
	ID             uint      `gorm:"primarykey" json:"-"`
	ConversationID string    `gorm:"index;not null" json:"-"`
	Sequence       int       `gorm:"not null" json:"sequence"`
	Role           string    `gorm:"not null" json:"role"` // "user", "assistant"
	Content        string    `gorm:"type:text" json:"content"`
	Model          string    `json:"model,omitempty"`
	SentAt         time.Time `gorm:"index" json:"sent_at"`
}

// Conversation is a titled, ordered sequence of messages. Identity is
// ConversationID; LastActive is the eviction/ordering key and is refreshed on
// every save. Title is derived from the first user message, never edited
// independently.
type Conversation struct {
	ID             uint      `gorm:"primarykey" json:"-"`
	ConversationID string    `gorm:"uniqueIndex;not null" json:"conversation_id"`
	Title          string    `gorm:"type:text" json:"title"`
	LastActive     time.Time `gorm:"index" json:"last_active"`
	Messages       []Message `gorm:"foreignKey:ConversationID;references:ConversationID" json:"messages"`
}

// ConversationInfo holds conversation metadata for listing.
type ConversationInfo struct {
	ConversationID string
	Title          string
	MessageCount   int
	LastActive     time.Time
}

// ConversationStore abstracts durable conversation persistence. Stores are
// safe for a single writer; concurrent writers from separate processes race
// with last-write-wins semantics (no cross-process locking).
type ConversationStore interface {
	// Save upserts by ConversationID, refreshes LastActive, then enforces
	// MaxConversations by evicting the oldest entry.
	Save(conv *Conversation) error

	// Load returns the conversation or ErrConversationNotFound.
	Load(conversationID string) (*Conversation, error)

	// List returns all conversations, newest LastActive first.
	List() ([]ConversationInfo, error)

	// Delete removes the conversation; deleting an absent id is a no-op.
	Delete(conversationID string) error

	// Close releases any underlying resources.
	Close() error
}

// StoreConfig holds configuration for conversation stores.
type StoreConfig struct {
	Type       string            `json:"type"`       // "file", "sqlite", "postgres"
	Connection string            `json:"connection"` // file path or DSN
	Options    map[string]string `json:"options"`
}

// NewStoreConfig creates a new store configuration.
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration.
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
