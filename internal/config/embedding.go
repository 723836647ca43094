package config

import (
	"fmt"
	"os"
	"time"
)

// EmbeddingConfig defines the embedding model the service encodes text with.
type EmbeddingConfig struct {
	Name       string        `mapstructure:"name"`         // Identifier recorded alongside stored vectors
	Provider   string        `mapstructure:"provider"`     // Provider type: "hash" or "openai-compatible"
	Model      string        `mapstructure:"model"`        // Model name/ID
	APIKey     string        `mapstructure:"api_key"`      // API key (can be set directly or via env var)
	APIKeyEnv  string        `mapstructure:"api_key_env"`  // Environment variable name for API key
	BaseURL    string        `mapstructure:"base_url"`     // Base URL for OpenAI-compatible APIs
	BaseURLEnv string        `mapstructure:"base_url_env"` // Environment variable name for base URL
	Dimensions int           `mapstructure:"dimensions"`   // Embedding vector dimensions
	MaxTokens  int           `mapstructure:"max_tokens"`   // Inputs above this are rejected
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ResolveEnvVars resolves environment variable references in the configuration.
// Direct values (APIKey, BaseURL) take precedence if already set.
func (c *EmbeddingConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}
	if c.BaseURLEnv != "" && c.BaseURL == "" {
		if val := os.Getenv(c.BaseURLEnv); val != "" {
			c.BaseURL = val
		}
	}
}

// Validate checks that the embedding configuration has all required fields.
// Returns an error describing the first validation failure, or nil if valid.
func (c *EmbeddingConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("embedding %q: provider is required", c.Name)
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding %q: dimensions must be positive", c.Name)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("embedding %q: max_tokens must not be negative", c.Name)
	}

	switch c.Provider {
	case "hash":
	case "openai-compatible":
		if c.Model == "" {
			return fmt.Errorf("embedding %q: model is required", c.Name)
		}
		if c.BaseURL == "" {
			return fmt.Errorf("embedding %q: base_url is required (set directly or via %s)", c.Name, c.BaseURLEnv)
		}
	default:
		return fmt.Errorf("embedding %q: unknown provider %q", c.Name, c.Provider)
	}
	return nil
}
