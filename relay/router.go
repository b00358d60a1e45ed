package relay

import (
	"net/http"

	"github.com/airelay/airelay/models"
	"github.com/airelay/airelay/stores"
	"github.com/gin-gonic/gin"
)

// RouterDeps wires the router's collaborators explicitly; nothing reaches
// into package globals.
type RouterDeps struct {
	Handler  *Handler
	Store    stores.ConversationStore
	Settings *stores.Settings
}

// NewRouter builds the relay's gin engine: the normalized chat route, the raw
// proxy route and the websocket chat endpoint, all behind the CORS middleware.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())

	// Non-POST on a POST route must be a 405, not gin's default 404.
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, models.RelayError{Error: "Method not allowed"})
	})

	api := router.Group("/api")
	api.POST("/chat", deps.Handler.Chat)
	api.POST("/proxy", deps.Handler.Proxy)

	if deps.Store != nil {
		ws := NewSocketHandler(deps.Handler, deps.Store, deps.Settings)
		router.GET("/ws/chat", ws.Serve)
	}

	return router
}

// CORSMiddleware attaches the three CORS headers to every response, success
// or error, and answers preflight with an empty 200.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
