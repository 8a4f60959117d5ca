// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Supported provider names.
const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the embedding backend: "googleai" or "openai".
	Provider string

	// Host is the base URL for OpenAI-compatible APIs. Ignored by googleai.
	// Example: "http://localhost:11434/v1" for a local Ollama server
	Host string

	// Model is the embedding model identifier.
	// Example: "embedding-001", "text-embedding-3-small"
	Model string

	// APIKey authenticates with the provider. For googleai an empty key
	// falls back to the GOOGLE_API_KEY environment variable.
	APIKey string

	// BatchSize is the maximum number of texts sent per embedding request.
	// Default: 100
	BatchSize int

	// NormalizeVectors scales every embedding to unit length.
	NormalizeVectors bool
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the embedding backend.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the OpenAI-compatible service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBatchSize sets the maximum texts per embedding request.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithNormalizeVectors enables unit-length normalization of embeddings.
func WithNormalizeVectors(normalize bool) ConfigOption {
	return func(c *Config) {
		c.NormalizeVectors = normalize
	}
}

// DefaultConfig returns a Config for Gemini embeddings.
func DefaultConfig() *Config {
	return &Config{
		Provider:  ProviderGoogleAI,
		Model:     "embedding-001",
		BatchSize: 100,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithHost("http://localhost:11434"),
//	    WithModel("nomic-embed-text"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// For openai it adds the /v1 suffix to the host if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == ProviderOpenAI && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderGoogleAI:
	case ProviderOpenAI:
		if c.Host == "" {
			return errors.New("ai config: Host is required for openai")
		}
	default:
		return fmt.Errorf("ai config: %w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.BatchSize < 1 {
		return errors.New("ai config: BatchSize must be positive")
	}
	return nil
}
