package stores

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements ConversationStore for SQLite databases.
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(config *StoreConfig) (*SQLiteStore, error) {
	if config.Type != "sqlite" {
		return nil, fmt.Errorf("invalid store type for SQLite store: %s", config.Type)
	}

	store := &SQLiteStore{
		path: config.Connection,
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	return store, nil
}

// NewSQLiteStoreSimple creates a new SQLite store with just a file path.
func NewSQLiteStoreSimple(dbPath string) (*SQLiteStore, error) {
	config := NewStoreConfig("sqlite", dbPath)
	return NewSQLiteStore(config)
}

// Connect establishes a connection to the SQLite database.
func (s *SQLiteStore) Connect() error {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	s.db = db

	// Auto-migrate the schema
	if err := s.db.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive.
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

func (s *SQLiteStore) Save(conv *Conversation) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return gormSave(s.db, conv)
}

func (s *SQLiteStore) Load(conversationID string) (*Conversation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return gormLoad(s.db, conversationID)
}

func (s *SQLiteStore) List() ([]ConversationInfo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return gormList(s.db)
}

func (s *SQLiteStore) Delete(conversationID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return gormDelete(s.db, conversationID)
}

// gormSave upserts the conversation row, appends any new messages and
// enforces the retention cap. Messages are append-only: rows already stored
// are never rewritten.
func gormSave(db *gorm.DB, conv *Conversation) error {
	if conv == nil || conv.ConversationID == "" {
		return fmt.Errorf("conversation id is empty")
	}

	conv.LastActive = time.Now()

	return db.Transaction(func(tx *gorm.DB) error {
		var existing Conversation
		err := tx.Where("conversation_id = ?", conv.ConversationID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record := Conversation{
				ConversationID: conv.ConversationID,
				Title:          conv.Title,
				LastActive:     conv.LastActive,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to create conversation record: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up conversation: %w", err)
		default:
			updates := map[string]interface{}{
				"title":       conv.Title,
				"last_active": conv.LastActive,
			}
			if err := tx.Model(&Conversation{}).Where("conversation_id = ?", conv.ConversationID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update conversation record: %w", err)
			}
		}

		var count int64
		if err := tx.Model(&Message{}).Where("conversation_id = ?", conv.ConversationID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count existing messages: %w", err)
		}

		for i := int(count); i < len(conv.Messages); i++ {
			msg := conv.Messages[i]
			msg.ID = 0
			msg.ConversationID = conv.ConversationID
			if msg.Sequence == 0 {
				msg.Sequence = i + 1
			}
			if err := tx.Create(&msg).Error; err != nil {
				return fmt.Errorf("failed to create message record: %w", err)
			}
		}

		return gormEnforceCap(tx)
	})
}

// gormEnforceCap evicts oldest-LastActive conversations while the cap is
// exceeded.
func gormEnforceCap(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&Conversation{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count conversations: %w", err)
	}

	for count > MaxConversations {
		var oldest Conversation
		if err := tx.Order("last_active ASC").First(&oldest).Error; err != nil {
			return fmt.Errorf("failed to find oldest conversation: %w", err)
		}
		if err := tx.Where("conversation_id = ?", oldest.ConversationID).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete evicted messages: %w", err)
		}
		if err := tx.Where("conversation_id = ?", oldest.ConversationID).Delete(&Conversation{}).Error; err != nil {
			return fmt.Errorf("failed to delete evicted conversation: %w", err)
		}
		count--
	}

	return nil
}

func gormLoad(db *gorm.DB, conversationID string) (*Conversation, error) {
	var conv Conversation
	err := db.Where("conversation_id = ?", conversationID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	if err := db.Where("conversation_id = ?", conversationID).Order("sequence ASC").Find(&conv.Messages).Error; err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	return &conv, nil
}

func gormList(db *gorm.DB) ([]ConversationInfo, error) {
	var convs []Conversation
	if err := db.Order("last_active DESC").Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}

	result := make([]ConversationInfo, len(convs))
	for i, c := range convs {
		var msgCount int64
		if err := db.Model(&Message{}).Where("conversation_id = ?", c.ConversationID).Count(&msgCount).Error; err != nil {
			return nil, fmt.Errorf("failed to count messages: %w", err)
		}
		result[i] = ConversationInfo{
			ConversationID: c.ConversationID,
			Title:          c.Title,
			MessageCount:   int(msgCount),
			LastActive:     c.LastActive,
		}
	}

	return result, nil
}

func gormDelete(db *gorm.DB, conversationID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&Conversation{}).Error; err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		return nil
	})
}
