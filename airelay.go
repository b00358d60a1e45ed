// Package airelay assembles the chat relay service: a credential-injecting
// proxy in front of LLM provider APIs plus durable local conversation
// storage. Components are wired explicitly through App; no package carries
// ambient global state.
package airelay

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/airelay/airelay/relay"
	"github.com/airelay/airelay/sessions"
	"github.com/airelay/airelay/stores"
)

// Re-export the pieces most callers need.
type ChatSession = sessions.ChatSession
type RelaySender = sessions.RelaySender

// NewChatSession creates a chat session against the given store and relay.
func NewChatSession(store stores.ConversationStore, sender RelaySender, settings *stores.Settings) *ChatSession {
	return sessions.NewChatSession(store, sender, settings)
}

// App is the assembled relay service, constructed once at process start.
type App struct {
	config  *Config
	server  *http.Server
	janitor *stores.RetentionJanitor
	logger  *log.Logger
}

// New wires an App from the configuration.
func New(config *Config) *App {
	logger := log.New(os.Stdout, "[APP] ", log.LstdFlags)

	handler := relay.NewHandler()
	if config.UpstreamTimeout > 0 {
		handler.Upstream.Timeout = config.UpstreamTimeout
	}

	settings := config.Settings
	router := relay.NewRouter(relay.RouterDeps{
		Handler:  handler,
		Store:    config.Store,
		Settings: &settings,
	})

	app := &App{
		config: config,
		server: &http.Server{
			Addr:         config.Addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: relay.DefaultUpstreamTimeout + 15*time.Second,
		},
		logger: logger,
	}

	if config.RunJanitor {
		app.janitor = stores.NewRetentionJanitor(config.Store, config.Retention, logger)
	}

	return app
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.janitor != nil {
		if err := a.janitor.Start(); err != nil {
			return err
		}
		defer a.janitor.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Printf("Relay listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return a.config.Store.Close()
}
