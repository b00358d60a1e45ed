package stores

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStoreSimple(filepath.Join(t.TempDir(), "chat.sqlite"))
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	store := newTestSQLiteStore(t)

	conv := &Conversation{
		ConversationID: "conv_1",
		Title:          "Hello",
		Messages: []Message{
			{Role: "user", Content: "Hello", SentAt: time.Now()},
			{Role: "assistant", Content: "Hi there", SentAt: time.Now()},
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
	if loaded.Messages[0].Sequence != 1 || loaded.Messages[1].Sequence != 2 {
		t.Errorf("Sequences not assigned: %d, %d", loaded.Messages[0].Sequence, loaded.Messages[1].Sequence)
	}
}

func TestSQLiteStore_AppendOnlySave(t *testing.T) {
	store := newTestSQLiteStore(t)

	conv := &Conversation{
		ConversationID: "conv_1",
		Title:          "Hello",
		Messages:       []Message{{Role: "user", Content: "Hello"}},
	}
	if err := store.Save(conv); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	conv.Messages = append(conv.Messages, Message{Role: "assistant", Content: "Hi there"})
	if err := store.Save(conv); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, err := store.Load("conv_1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Expected 2 messages after re-save, got %d", len(loaded.Messages))
	}
	if loaded.Messages[0].Content != "Hello" || loaded.Messages[1].Content != "Hi there" {
		t.Errorf("Messages duplicated or reordered: %+v", loaded.Messages)
	}
}

func TestSQLiteStore_CapEvictsOldest(t *testing.T) {
	store := newTestSQLiteStore(t)

	for i := 1; i <= MaxConversations+1; i++ {
		conv := &Conversation{
			ConversationID: fmt.Sprintf("conv_%d", i),
			Messages:       []Message{{Role: "user", Content: "hi"}},
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
}

func TestSQLiteStore_DeleteRemovesMessages(t *testing.T) {
	store := newTestSQLiteStore(t)

	if err := store.Save(&Conversation{
		ConversationID: "conv_1",
		Messages:       []Message{{Role: "user", Content: "hi"}},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete("conv_1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Load("conv_1"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound after delete, got %v", err)
	}
	if err := store.Delete("conv_1"); err != nil {
		t.Errorf("Deleting an absent id must be a no-op, got %v", err)
	}
}
