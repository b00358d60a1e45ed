package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileStore keeps conversations in memory and mirrors them to a single JSON
// file, the Go equivalent of the browser's ai_chat_conversations blob. The
// file is a JSON object mapping conversation id to Conversation. An unreadable
// or unparsable file degrades to an empty collection: persistence is a
// convenience, losing it must never kill the chat session.
type FileStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	path          string
}

// NewFileStore creates a FileStore backed by the given path. A corrupt file is
// logged and replaced by an empty collection on the next save.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is empty")
	}

	store := &FileStore{
		conversations: make(map[string]*Conversation),
		path:          path,
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// NewFileStoreDefault creates a FileStore at the default location.
func NewFileStoreDefault() (*FileStore, error) {
	return NewFileStore("ai_chat_conversations.json")
}

func (s *FileStore) Save(conv *Conversation) error {
	if conv == nil || conv.ConversationID == "" {
		return fmt.Errorf("conversation id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *conv
	stored.LastActive = time.Now()
	conv.LastActive = stored.LastActive
	s.conversations[conv.ConversationID] = &stored

	s.evictLocked()
	return s.persistLocked()
}

func (s *FileStore) Load(conversationID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}

	copied := *conv
	copied.Messages = append([]Message(nil), conv.Messages...)
	return &copied, nil
}

func (s *FileStore) List() ([]ConversationInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ConversationInfo, 0, len(s.conversations))
	for _, conv := range s.conversations {
		infos = append(infos, ConversationInfo{
			ConversationID: conv.ConversationID,
			Title:          conv.Title,
			MessageCount:   len(conv.Messages),
			LastActive:     conv.LastActive,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastActive.After(infos[j].LastActive)
	})
	return infos, nil
}

func (s *FileStore) Delete(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil
	}
	delete(s.conversations, conversationID)
	return s.persistLocked()
}

func (s *FileStore) Close() error {
	return nil
}

// evictLocked removes the globally-oldest conversations until the cap holds.
// Linear scan: the cap is small.
func (s *FileStore) evictLocked() {
	for len(s.conversations) > MaxConversations {
		oldestID := ""
		var oldest time.Time
		for id, conv := range s.conversations {
			if oldestID == "" || conv.LastActive.Before(oldest) {
				oldestID = id
				oldest = conv.LastActive
			}
		}
		delete(s.conversations, oldestID)
	}
}

func (s *FileStore) load() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		log.Printf("Warning: file store read %s: %v, starting empty", s.path, err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var raw map[string]*Conversation
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("Warning: file store %s is corrupt: %v, starting empty", s.path, err)
		return nil
	}

	s.conversations = raw
	return nil
}

// persistLocked writes the whole collection atomically via a temp file and
// rename. Two processes sharing the path race with last-write-wins.
func (s *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.conversations, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
