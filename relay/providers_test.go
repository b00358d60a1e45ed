package relay

import (
	"strings"
	"testing"

	"github.com/airelay/airelay/models"
)

func TestResolveProvider_KnownTypes(t *testing.T) {
	tests := []struct {
		apiType    string
		wantName   string
		wantFamily string
		wantKeyEnv string
	}{
		{models.APITypeDeepseek, "deepseek", familyOpenAIChat, "DEEPSEEK_API_KEY"},
		{models.APITypeQwen, "qwen", familyOpenAIChat, "QWEN_API_KEY"},
		{models.APITypeQwen2, "qwen2", familyOpenAIChat, "QWEN2_API_KEY"},
		{models.APITypeGemini, "gemini", familyGemini, "GEMINI_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.apiType, func(t *testing.T) {
			p, err := resolveProvider(models.ChatRequest{APIType: tt.apiType})
			if err != nil {
				t.Fatalf("resolveProvider failed: %v", err)
			}
			if p.Name != tt.wantName || p.Family != tt.wantFamily || p.KeyEnv != tt.wantKeyEnv {
				t.Errorf("Got %+v, want name=%s family=%s keyEnv=%s", p, tt.wantName, tt.wantFamily, tt.wantKeyEnv)
			}
		})
	}
}

func TestResolveProvider_UnknownType(t *testing.T) {
	if _, err := resolveProvider(models.ChatRequest{APIType: "claude"}); err == nil {
		t.Error("Expected an error for an unrecognized apiType")
	}
}

func TestResolveProvider_CustomEndpoint(t *testing.T) {
	p, err := resolveProvider(models.ChatRequest{Endpoint: "https://llm.example.com/v1/chat/completions"})
	if err != nil {
		t.Fatalf("resolveProvider failed: %v", err)
	}
	if p.Name != "custom" || p.Family != familyOpenAIChat || p.KeyEnv != "CUSTOM_API_KEY" {
		t.Errorf("Unexpected provider: %+v", p)
	}
}

func TestResolveProvider_CustomWithoutEndpoint(t *testing.T) {
	_, err := resolveProvider(models.ChatRequest{APIType: models.APITypeCustom})
	if err == nil || !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("Expected a missing-endpoint error, got %v", err)
	}
}

func TestResolveProvider_LoopbackSkipsCredential(t *testing.T) {
	for _, endpoint := range []string{
		"http://localhost:8000/v1/chat/completions",
		"http://127.0.0.1:8000/v1/chat/completions",
		"http://[::1]:8000/v1/chat/completions",
	} {
		p, err := resolveProvider(models.ChatRequest{Endpoint: endpoint})
		if err != nil {
			t.Fatalf("resolveProvider(%s) failed: %v", endpoint, err)
		}
		if p.Name != "local" || p.KeyEnv != "" {
			t.Errorf("Loopback endpoint %s should need no credential, got %+v", endpoint, p)
		}
	}
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"http://localhost:8000", true},
		{"http://LOCALHOST:8000", true},
		{"http://127.0.0.1:8000", true},
		{"http://127.9.9.9:8000", true},
		{"http://[::1]:8000", true},
		{"https://api.deepseek.com/v1/chat/completions", false},
		{"http://192.168.1.10:8000", false},
		{"http://localhost.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isLoopback(tt.endpoint); got != tt.want {
			t.Errorf("isLoopback(%q) = %v, want %v", tt.endpoint, got, tt.want)
		}
	}
}
