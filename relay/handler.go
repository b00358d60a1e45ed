package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/airelay/airelay/models"
	"github.com/airelay/airelay/models/gemini"
	"github.com/airelay/airelay/models/openaichat"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/tidwall/gjson"
)

// DefaultUpstreamTimeout bounds the provider round-trip. Without it a hung
// upstream would pin the caller's single in-flight send forever.
const DefaultUpstreamTimeout = 60 * time.Second

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// HTTPError carries the status the relay should answer with. Upstream
// failures keep the upstream's status code verbatim.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Handler holds the relay's collaborators. One instance serves every request;
// there is no per-request state.
type Handler struct {
	Upstream *http.Client
	Logger   *log.Logger
}

// NewHandler creates a relay handler with a bounded upstream timeout.
func NewHandler() *Handler {
	return &Handler{
		Upstream: &http.Client{Timeout: DefaultUpstreamTimeout},
		Logger:   log.New(os.Stdout, "[RELAY] ", log.LstdFlags),
	}
}

// Chat handles POST /api/chat: the normalized path. The upstream reply is
// reduced to {response: string} by the provider adapter.
func (h *Handler) Chat(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	reply, err := h.Forward(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.RelayResponse{Response: reply})
}

// Proxy handles POST /api/proxy: the raw variant. Routing and credential
// rules are identical, but the upstream JSON comes back untouched with the
// upstream status code.
func (h *Handler) Proxy(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	provider, err := resolveProvider(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.RelayError{Error: err.Error()})
		return
	}

	status, body, err := h.forwardRaw(c.Request.Context(), provider, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Data(status, "application/json", body)
}

// bindRequest decodes and validates the envelope. A missing message payload
// is a 400, before any routing or credential work.
func (h *Handler) bindRequest(c *gin.Context) (models.ChatRequest, bool) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.RelayError{Error: "invalid request body: " + err.Error()})
		return models.ChatRequest{}, false
	}

	if req.Message == "" && len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, models.RelayError{Error: "message is required"})
		return models.ChatRequest{}, false
	}

	return req, true
}

// Forward runs the full normalized relay cycle: route, authenticate, call,
// extract. It implements sessions.RelaySender so server-side chat sessions
// skip the HTTP loopback.
func (h *Handler) Forward(ctx context.Context, req models.ChatRequest) (string, error) {
	provider, err := resolveProvider(req)
	if err != nil {
		return "", &HTTPError{Status: http.StatusBadRequest, Message: err.Error()}
	}

	status, body, err := h.forwardRaw(ctx, provider, req)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", upstreamError(h.Logger, provider, status, body)
	}

	var reply string
	switch provider.Family {
	case familyGemini:
		reply, err = gemini.ParseResponse(body)
	default:
		reply, err = openaichat.ParseResponse(body)
	}
	if err != nil {
		if errors.Is(err, models.ErrEmptyGeneration) || errors.Is(err, models.ErrMalformedResponse) {
			return "", &HTTPError{Status: http.StatusBadGateway, Message: err.Error()}
		}
		return "", &HTTPError{Status: http.StatusInternalServerError, Message: err.Error()}
	}

	return reply, nil
}

// Send implements sessions.RelaySender.
func (h *Handler) Send(ctx context.Context, req models.ChatRequest) (string, error) {
	return h.Forward(ctx, req)
}

// forwardRaw builds the provider body, attaches the credential and performs
// the upstream call, returning the upstream status and body verbatim.
func (h *Handler) forwardRaw(ctx context.Context, provider Provider, req models.ChatRequest) (int, []byte, error) {
	apiKey, err := h.credential(provider)
	if err != nil {
		return 0, nil, &HTTPError{Status: http.StatusInternalServerError, Message: err.Error()}
	}

	targetURL := provider.Endpoint
	var requestBody interface{}
	switch provider.Family {
	case familyGemini:
		model := req.Model
		if model == "" {
			model = gemini.DefaultModel
		}
		// The Gemini key travels as a query parameter, not a header.
		targetURL = fmt.Sprintf("%s/%s:generateContent?key=%s", provider.Endpoint, model, apiKey)
		requestBody = gemini.BuildRequest(req)
	default:
		requestBody = openaichat.BuildRequest(req.Model, req)
	}

	jsonBytes, err := json.Marshal(requestBody)
	if err != nil {
		return 0, nil, &HTTPError{Status: http.StatusInternalServerError, Message: "failed to marshal provider request: " + err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return 0, nil, &HTTPError{Status: http.StatusInternalServerError, Message: "failed to create upstream request: " + redactURL(err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if provider.Family != familyGemini && apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := h.Upstream.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return 0, nil, &HTTPError{Status: http.StatusGatewayTimeout, Message: "upstream timeout"}
		}
		return 0, nil, &HTTPError{Status: http.StatusInternalServerError, Message: "upstream request failed: " + redactURL(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &HTTPError{Status: http.StatusInternalServerError, Message: "failed to read upstream response: " + err.Error()}
	}

	return resp.StatusCode, body, nil
}

// credential resolves the provider's server-side secret. The loopback path
// carries no credential; everything else fails closed when its key is absent.
func (h *Handler) credential(provider Provider) (string, error) {
	if provider.KeyEnv == "" {
		return "", nil
	}
	apiKey := os.Getenv(provider.KeyEnv)
	if apiKey == "" {
		return "", &CredentialError{Provider: provider.Name, EnvVar: provider.KeyEnv}
	}
	return apiKey, nil
}

// upstreamError wraps a non-2xx upstream response, preserving the upstream
// status code and body in the envelope. The log line digs out the provider's
// structured error message when there is one.
func upstreamError(logger *log.Logger, provider Provider, status int, body []byte) *HTTPError {
	summary := gjson.GetBytes(body, "error.message").String()
	if summary == "" {
		summary = string(body)
	}
	logger.Printf("Upstream %s returned %d: %s", provider.Name, status, summary)

	return &HTTPError{
		Status:  status,
		Message: fmt.Sprintf("%d - %s", status, string(body)),
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		c.JSON(httpErr.Status, models.RelayError{Error: httpErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, models.RelayError{Error: err.Error()})
}

// redactURL strips the target URL from a transport error before it can reach
// a client envelope: the Gemini URL carries the API key as a query parameter,
// and *url.Error renders the full URL in its message.
func redactURL(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err.Error()
	}
	return err.Error()
}

// isTimeout covers both the client-level deadline and a cancelled context.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
