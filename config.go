package airelay

import (
	"time"

	"github.com/airelay/airelay/stores"
)

// Config holds configuration for an App.
type Config struct {
	Addr            string
	Store           stores.ConversationStore
	Settings        stores.Settings
	UpstreamTimeout time.Duration
	Retention       time.Duration
	RunJanitor      bool
}

// NewConfig creates a configuration with default values.
func NewConfig() *Config {
	// Create a default file store
	defaultStore, err := stores.NewFileStoreDefault()
	if err != nil {
		// If we can't create the default store, panic or use a nil store
		// In production, you might want to handle this more gracefully
		panic("Failed to create default file store: " + err.Error())
	}

	return &Config{
		Addr:            ":8080",
		Store:           defaultStore,
		Settings:        stores.DefaultSettings(),
		UpstreamTimeout: 0, // relay default applies
		Retention:       stores.DefaultRetention,
		RunJanitor:      true,
	}
}

// WithAddr sets the listen address.
func (c *Config) WithAddr(addr string) *Config {
	c.Addr = addr
	return c
}

// WithStore sets the conversation store.
func (c *Config) WithStore(store stores.ConversationStore) *Config {
	c.Store = store
	return c
}

// WithFileStore sets a JSON file store at the specified path.
func (c *Config) WithFileStore(path string) *Config {
	store, err := stores.NewFileStore(path)
	if err != nil {
		panic("Failed to create file store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithSQLiteStore sets a SQLite store with the specified database path.
func (c *Config) WithSQLiteStore(dbPath string) *Config {
	store, err := stores.NewSQLiteStoreSimple(dbPath)
	if err != nil {
		panic("Failed to create SQLite store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithPostgresStore sets a PostgreSQL store with the specified connection
// parameters.
func (c *Config) WithPostgresStore(host, user, password, dbname string, port int) *Config {
	store, err := stores.NewPostgresStoreDefault(host, user, password, dbname, port)
	if err != nil {
		panic("Failed to create PostgreSQL store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithSettings sets the default chat settings served to new sessions.
func (c *Config) WithSettings(settings stores.Settings) *Config {
	c.Settings = settings
	return c
}

// WithRetention sets the janitor's retention window.
func (c *Config) WithRetention(retention time.Duration) *Config {
	c.Retention = retention
	return c
}

// WithoutJanitor disables the scheduled retention sweep.
func (c *Config) WithoutJanitor() *Config {
	c.RunJanitor = false
	return c
}
