// Package config holds the application configuration.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"shelfmark/internal/history"
)

// ProviderConfig selects and parameterizes the LLM provider.
type ProviderConfig struct {
	// Kind is "claude", "openai" or "custom".
	Kind string `json:"kind"`
	// Model overrides the provider default model.
	Model string `json:"model,omitempty"`
	// Endpoint is the base chat-completions URL for the custom kind.
	Endpoint string `json:"endpoint,omitempty"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `json:"apiKeyEnv"`
}

// Config holds all knobs of the reorganization pipeline.
type Config struct {
	Provider ProviderConfig `json:"provider"`

	// Categories is the approved vocabulary in creation-allowed mode.
	Categories []string `json:"categories"`

	BatchSize             int `json:"batchSize"`
	RequestTimeoutSeconds int `json:"requestTimeoutSeconds"`
	MaxResponseBytes      int64 `json:"maxResponseBytes"`

	// CreateMissingFolders is the mode switch: when false, only
	// existing top-level folders are valid destinations.
	CreateMissingFolders bool `json:"createMissingFolders"`

	// ForcePlacement coerces out-of-vocabulary classifier replies into
	// the first category instead of leaving the item in place.
	ForcePlacement bool `json:"forcePlacement"`

	RemoveDuplicates               bool `json:"removeDuplicates"`
	RenameReservedFolders          bool `json:"renameReservedFolders"`
	AllowRemovingReservedTabGroups bool `json:"allowRemovingReservedTabGroups"`

	ExcludedFolderIDs []string `json:"excludedFolderIds"`
	// ExcludedFolderPatterns match folder titles with * and ?
	// wildcards, case-insensitive and fully anchored.
	ExcludedFolderPatterns []string `json:"excludedFolderPatterns"`

	HistoryPolicy history.Policy `json:"historyPolicy"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Provider: ProviderConfig{
			Kind:      "claude",
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
		Categories:            []string{},
		BatchSize:             50,
		RequestTimeoutSeconds: 180,
		MaxResponseBytes:      1 << 20,
		CreateMissingFolders:  true,
		RemoveDuplicates:      true,
		HistoryPolicy:         history.PolicyAlways,
	}
}

// Load reads config from the JSON file, creating it with defaults if it
// doesn't exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			// Non-fatal: return defaults even if save fails
			_ = Save(path, &cfg)
			return &cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := Default()
	if cfg.Provider.Kind == "" {
		cfg.Provider = defaults.Provider
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = defaultKeyEnv(cfg.Provider.Kind)
	}
	if cfg.Categories == nil {
		cfg.Categories = []string{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = defaults.RequestTimeoutSeconds
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaults.MaxResponseBytes
	}
	if !cfg.HistoryPolicy.Valid() {
		cfg.HistoryPolicy = defaults.HistoryPolicy
	}

	return &cfg, nil
}

// Save writes config to the JSON file, creating the directory if
// needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// APIKey resolves the provider credential from the environment.
func (c *Config) APIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}

func defaultKeyEnv(kind string) string {
	switch kind {
	case "openai", "custom":
		return "OPENAI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}

// DefaultPath returns the default config path: ~/.config/shelfmark/config.json
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "shelfmark", "config.json"), nil
}
