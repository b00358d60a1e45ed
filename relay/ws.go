package relay

import (
	"log"
	"net/http"
	"os"

	"github.com/airelay/airelay/sessions"
	"github.com/airelay/airelay/stores"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SocketHandler upgrades websocket chat clients and runs a server-side chat
// session per connection, backed by the relay's own forward path (no HTTP
// loopback).
type SocketHandler struct {
	Relay    *Handler
	Store    stores.ConversationStore
	Settings *stores.Settings
	Upgrader websocket.Upgrader
	Logger   *log.Logger
}

// NewSocketHandler creates the websocket chat handler.
func NewSocketHandler(relay *Handler, store stores.ConversationStore, settings *stores.Settings) *SocketHandler {
	return &SocketHandler{
		Relay:    relay,
		Store:    store,
		Settings: settings,
		Upgrader: websocket.Upgrader{
			// The HTTP routes are open CORS; the socket endpoint matches.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		Logger: log.New(os.Stdout, "[WS] ", log.LstdFlags),
	}
}

// Serve handles GET /ws/chat.
func (sh *SocketHandler) Serve(c *gin.Context) {
	conn, err := sh.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sh.Logger.Printf("Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Each connection gets its own session and settings copy so one client's
	// model switch cannot leak into another's.
	settings := *sh.Settings
	session := sessions.NewChatSession(sh.Store, sh.Relay, &settings)
	socket := sessions.NewSessionSocket(conn, session)

	if err := socket.RunLoop(c.Request.Context()); err != nil {
		sh.Logger.Printf("Session ended: %v", err)
	}
}
