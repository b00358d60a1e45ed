// Package relay is the server side of the chat relay: the sole holder of
// upstream provider credentials and the only component that makes outbound
// calls carrying a secret. It is stateless per request; callers own retry
// policy.
package relay

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/airelay/airelay/models"
)

// Provider families select the wire-format adapter.
const (
	familyOpenAIChat = "openai-chat"
	familyGemini     = "gemini"
)

// Provider is one upstream route: where to forward, which adapter family to
// translate with, and which environment variable holds the secret.
type Provider struct {
	Name     string
	Family   string
	Endpoint string
	KeyEnv   string
}

// providers is the closed routing table. Anything outside it is a bad
// request, never a silent fallthrough to a default provider.
var providers = map[string]Provider{
	models.APITypeDeepseek: {
		Name:     "deepseek",
		Family:   familyOpenAIChat,
		Endpoint: "https://api.deepseek.com/v1/chat/completions",
		KeyEnv:   "DEEPSEEK_API_KEY",
	},
	models.APITypeQwen: {
		Name:     "qwen",
		Family:   familyOpenAIChat,
		Endpoint: "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
		KeyEnv:   "QWEN_API_KEY",
	},
	models.APITypeQwen2: {
		Name:     "qwen2",
		Family:   familyOpenAIChat,
		Endpoint: "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
		KeyEnv:   "QWEN2_API_KEY",
	},
	models.APITypeGemini: {
		Name:     "gemini",
		Family:   familyGemini,
		Endpoint: "https://generativelanguage.googleapis.com/v1beta/models",
		KeyEnv:   "GEMINI_API_KEY",
	},
}

// CredentialError means the deployment has no secret configured for the
// requested provider. The relay fails closed: it never borrows another
// provider's key.
type CredentialError struct {
	Provider string
	EnvVar   string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("no API key configured for provider %s (set %s)", e.Provider, e.EnvVar)
}

// resolveProvider maps the request's discriminator to a route. A raw Endpoint
// (apiType "custom" or none) is treated as an OpenAI-compatible target; a
// loopback endpoint needs no credential.
func resolveProvider(req models.ChatRequest) (Provider, error) {
	if req.Endpoint != "" || req.APIType == models.APITypeCustom {
		if req.Endpoint == "" {
			return Provider{}, fmt.Errorf("apiType custom requires an endpoint")
		}
		p := Provider{
			Name:     "custom",
			Family:   familyOpenAIChat,
			Endpoint: req.Endpoint,
			KeyEnv:   "CUSTOM_API_KEY",
		}
		if isLoopback(req.Endpoint) {
			p.Name = "local"
			p.KeyEnv = ""
		}
		return p, nil
	}

	p, ok := providers[req.APIType]
	if !ok {
		return Provider{}, fmt.Errorf("unsupported apiType: %q", req.APIType)
	}
	return p, nil
}

// isLoopback reports whether the endpoint points at a self-hosted model on
// the local machine.
func isLoopback(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
