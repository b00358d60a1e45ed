package sessions

import (
	"fmt"
	"log"
	"os"

	"github.com/airelay/airelay/stores"
	"github.com/gorilla/websocket"
)

// NewChatSession creates a chat session with a fresh active conversation.
func NewChatSession(store stores.ConversationStore, relay RelaySender, settings *stores.Settings) *ChatSession {
	logger := log.New(os.Stdout, "[CHAT] ", log.LstdFlags)

	session := &ChatSession{
		Store:    store,
		Relay:    relay,
		Settings: settings,
		Logger:   logger,
	}
	session.StartNew()
	return session
}

// NewSessionSocket wraps a websocket connection around a chat session.
func NewSessionSocket(conn *websocket.Conn, session *ChatSession) *SessionSocket {
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", session.Active().ConversationID), log.LstdFlags)

	return &SessionSocket{
		Session: session,
		Writer:  &WebSocketWriter{Conn: conn, Logger: logger},
		Logger:  logger,
	}
}
