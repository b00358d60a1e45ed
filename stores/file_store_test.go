package stores

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return store
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	store := newTestFileStore(t)

	conv := &Conversation{
		ConversationID: "conv_1",
		Title:          "Hello",
		Messages: []Message{
			{Sequence: 1, Role: "user", Content: "Hello", SentAt: time.Now()},
			{Sequence: 2, Role: "assistant", Content: "Hi there", SentAt: time.Now()},
		},
	}
	if err := store.Save(conv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("conv_1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Title != "Hello" {
		t.Errorf("Expected title Hello, got %s", loaded.Title)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != "user" || loaded.Messages[1].Role != "assistant" {
		t.Errorf("Message roles not preserved: %+v", loaded.Messages)
	}
	if loaded.LastActive.IsZero() {
		t.Error("Save must refresh LastActive")
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	if err := store.Save(&Conversation{
		ConversationID: "conv_1",
		Title:          "Hello",
		Messages:       []Message{{Sequence: 1, Role: "user", Content: "Hello"}},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("failed to reopen file store: %v", err)
	}
	loaded, err := reopened.Load("conv_1")
	if err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
	if loaded.Messages[0].Content != "Hello" {
		t.Errorf("Content not durable: %q", loaded.Messages[0].Content)
	}
}

func TestFileStore_LoadNotFound(t *testing.T) {
	store := newTestFileStore(t)

	_, err := store.Load("missing")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}
}

func TestFileStore_ListNewestFirst(t *testing.T) {
	store := newTestFileStore(t)

	for i := 1; i <= 3; i++ {
		conv := &Conversation{
			ConversationID: fmt.Sprintf("conv_%d", i),
			Title:          fmt.Sprintf("Conversation %d", i),
			Messages:       []Message{{Sequence: 1, Role: "user", Content: "hi"}},
		}
		if err := store.Save(conv); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 conversations, got %d", len(infos))
	}
	if infos[0].ConversationID != "conv_3" || infos[2].ConversationID != "conv_1" {
		t.Errorf("Listing not newest-first: %v, %v, %v",
			infos[0].ConversationID, infos[1].ConversationID, infos[2].ConversationID)
	}
}

func TestFileStore_DeleteIsIdempotent(t *testing.T) {
	store := newTestFileStore(t)

	if err := store.Save(&Conversation{
		ConversationID: "conv_1",
		Messages:       []Message{{Sequence: 1, Role: "user", Content: "hi"}},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete("conv_1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("conv_1"); err != nil {
		t.Errorf("Deleting an absent id must be a no-op, got %v", err)
	}
	if _, err := store.Load("conv_1"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Conversation still present after delete: %v", err)
	}
}

func TestFileStore_CapEvictsOldest(t *testing.T) {
	store := newTestFileStore(t)

	for i := 1; i <= MaxConversations+1; i++ {
		conv := &Conversation{
			ConversationID: fmt.Sprintf("conv_%d", i),
			Messages:       []Message{{Sequence: 1, Role: "user", Content: "hi"}},
		}
		if err := store.Save(conv); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
		time.Sleep(time.Millisecond)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != MaxConversations {
		t.Fatalf("Expected exactly %d conversations, got %d", MaxConversations, len(infos))
	}
	if _, err := store.Load("conv_1"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Oldest conversation should have been evicted, got %v", err)
	}
	if _, err := store.Load("conv_2"); err != nil {
		t.Errorf("Second-oldest conversation must survive: %v", err)
	}
}

func TestFileStore_CorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("A corrupt file must not be fatal: %v", err)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty collection after corruption, got %d entries", len(infos))
	}

	// The store must be usable again.
	if err := store.Save(&Conversation{
		ConversationID: "conv_1",
		Messages:       []Message{{Sequence: 1, Role: "user", Content: "hi"}},
	}); err != nil {
		t.Fatalf("Save after corruption recovery failed: %v", err)
	}
}
