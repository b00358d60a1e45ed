package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
)

// Settings is the flat client configuration record, persisted as a single
// JSON object (the ai-chat-settings blob).
type Settings struct {
	ModelType    string  `json:"modelType"`
	Endpoint     string  `json:"apiEndpoint"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"maxLength"`
	Theme        string  `json:"theme"`
	AutoScroll   bool    `json:"autoScroll"`
	SoundEnabled bool    `json:"soundEnabled"`
}

// TemperatureRange bounds the usable temperature for a model family.
type TemperatureRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// ModelPreset is the endpoint/model/temperature bundle selected by ModelType.
type ModelPreset struct {
	Endpoint         string
	Models           []string
	DefaultModel     string
	TemperatureRange TemperatureRange
}

// ModelPresets maps each recognized model type to its preset.
var ModelPresets = map[string]ModelPreset{
	"deepseek": {
		Endpoint: "https://api.deepseek.com/v1/chat/completions",
		Models: []string{
			"deepseek-chat",
			"deepseek-reasoner",
		},
		DefaultModel:     "deepseek-chat",
		TemperatureRange: TemperatureRange{Min: 0.5, Max: 0.7, Default: 0.6},
	},
	"qwen": {
		Endpoint: "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
		Models: []string{
			"qwen2.5-72b-instruct",
			"qwen2.5-32b-instruct",
			"qwen2.5-14b-instruct",
			"qwen2.5-7b-instruct",
		},
		DefaultModel:     "qwen2.5-72b-instruct",
		TemperatureRange: TemperatureRange{Min: 0.1, Max: 1.0, Default: 0.7},
	},
	"gemini": {
		Endpoint: "https://generativelanguage.googleapis.com/v1beta/models",
		Models: []string{
			"gemini-2.0-flash",
			"gemini-1.5-pro",
		},
		DefaultModel:     "gemini-2.0-flash",
		TemperatureRange: TemperatureRange{Min: 0.0, Max: 2.0, Default: 0.7},
	},
	"custom": {
		Endpoint:         "http://localhost:8000/v1/chat/completions",
		Models:           []string{},
		DefaultModel:     "",
		TemperatureRange: TemperatureRange{Min: 0.0, Max: 2.0, Default: 0.6},
	},
}

// DefaultSettings returns the baseline configuration.
func DefaultSettings() Settings {
	preset := ModelPresets["deepseek"]
	return Settings{
		ModelType:    "deepseek",
		Endpoint:     preset.Endpoint,
		Model:        preset.DefaultModel,
		Temperature:  preset.TemperatureRange.Default,
		MaxTokens:    4096,
		Theme:        "light",
		AutoScroll:   true,
		SoundEnabled: false,
	}
}

// ApplyPreset switches the settings to the named model type's preset,
// returning an error for an unrecognized type.
func (s *Settings) ApplyPreset(modelType string) error {
	preset, ok := ModelPresets[modelType]
	if !ok {
		return fmt.Errorf("unrecognized model type: %s", modelType)
	}
	s.ModelType = modelType
	s.Endpoint = preset.Endpoint
	s.Model = preset.DefaultModel
	s.Temperature = preset.TemperatureRange.Default
	return nil
}

// SettingsStore persists one Settings record to a JSON file.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

// NewSettingsStore creates a settings store backed by the given path.
func NewSettingsStore(path string) (*SettingsStore, error) {
	if path == "" {
		return nil, fmt.Errorf("settings store path is empty")
	}
	return &SettingsStore{path: path}, nil
}

// Load reads the stored settings and merges them over the defaults, so fields
// introduced after the record was written pick up their default value instead
// of the zero value. A missing or corrupt file yields the defaults.
func (s *SettingsStore) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := DefaultSettings()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: settings read %s: %v, using defaults", s.path, err)
		}
		return settings
	}

	// Unmarshal over the defaults: stored fields win, absent fields keep
	// their default.
	if err := json.Unmarshal(data, &settings); err != nil {
		log.Printf("Warning: settings file %s is corrupt: %v, using defaults", s.path, err)
		return DefaultSettings()
	}

	return settings
}

// Save writes the settings record.
func (s *SettingsStore) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
