package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ARBITER_CONFIG is set
//  3. env (prefix ARBITER_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("ARBITER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ARBITER_ADDR, ARBITER_PROVIDER, ...
	// Map env keys like ARBITER_EMBED_TIMEOUT_MS -> embed_timeout_ms (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("ARBITER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "arbiter_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Provider {
	case ProviderLocal, ProviderOpenAI, ProviderOllama, ProviderVertex:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.Provider == ProviderOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: openai_api_key is required for the openai provider", ErrInvalidConfig)
	}
	if c.Provider == ProviderVertex && c.VertexProjectID == "" {
		return fmt.Errorf("%w: vertex_project_id is required for the vertex provider", ErrInvalidConfig)
	}
	if c.EmbedDimensions <= 0 {
		return fmt.Errorf("%w: embed_dimensions must be positive", ErrInvalidConfig)
	}
	if c.EmbedTimeoutMS <= 0 {
		return fmt.Errorf("%w: embed_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.EmbedConcurrency <= 0 {
		return fmt.Errorf("%w: embed_concurrency must be positive", ErrInvalidConfig)
	}
	if c.MaxGuessesPerParticipant <= 0 {
		return fmt.Errorf("%w: max_guesses_per_participant must be positive", ErrInvalidConfig)
	}
	return nil
}
