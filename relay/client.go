package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"context"

	"github.com/airelay/airelay/models"
	"github.com/tidwall/gjson"
)

// Client is the caller side of the relay: it posts the normalized envelope to
// a running relay service and decodes the {response}/{error} envelope.
// Implements sessions.RelaySender.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewClient creates a relay client for the given base URL
// (e.g. "http://localhost:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: DefaultUpstreamTimeout + 5*time.Second},
		Logger:     log.New(os.Stdout, "[RELAY CLIENT] ", log.LstdFlags),
	}
}

// Send posts one chat request and returns the reply text. Any non-200 answer
// becomes an error carrying the relay's error string.
func (c *Client) Send(ctx context.Context, req models.ChatRequest) (string, error) {
	jsonBytes, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/chat", bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The relay always answers with a structured envelope, but a proxy or
		// load balancer in between might not.
		if msg := gjson.GetBytes(body, "error").String(); msg != "" {
			return "", fmt.Errorf("relay error: %s", msg)
		}
		return "", fmt.Errorf("relay error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var envelope models.RelayResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("failed to unmarshal relay response: %w", err)
	}
	if envelope.Response == "" {
		return "", fmt.Errorf("relay returned an empty response")
	}

	return envelope.Response, nil
}
