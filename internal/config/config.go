// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields flat and tagged with koanf names.
// - Provide New() to build a Config with defaults; Load() layers file/env on top.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Known embedding provider names.
const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderVertex = "vertex"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Provider selects the embedding backend: local, openai, ollama, vertex.
	Provider string `koanf:"provider"`

	// Model names the embedding model to use. Empty means the provider default.
	Model string `koanf:"model"`

	// EmbedDimensions sets the vector dimension for the local provider.
	EmbedDimensions int `koanf:"embed_dimensions"`

	// OpenAIBaseURL and OpenAIAPIKey configure the openai provider.
	OpenAIBaseURL string `koanf:"openai_base_url"`
	OpenAIAPIKey  string `koanf:"openai_api_key"`

	// OllamaBaseURL configures the ollama provider.
	OllamaBaseURL string `koanf:"ollama_base_url"`

	// VertexProjectID, VertexLocation, and VertexCredentialsFile configure
	// the vertex provider.
	VertexProjectID       string `koanf:"vertex_project_id"`
	VertexLocation        string `koanf:"vertex_location"`
	VertexCredentialsFile string `koanf:"vertex_credentials_file"`

	// EmbedTimeoutMS bounds a single embedding call.
	EmbedTimeoutMS int `koanf:"embed_timeout_ms"`

	// EmbedConcurrency caps concurrent embedding calls per request.
	// Set to 1 to serialize calls against providers that are not safe
	// for concurrent use.
	EmbedConcurrency int `koanf:"embed_concurrency"`

	// MaxGuessesPerParticipant caps the number of guesses accepted from a
	// single participant in one request.
	MaxGuessesPerParticipant int `koanf:"max_guesses_per_participant"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":9080",
		Provider:                 ProviderLocal,
		Model:                    "",
		EmbedDimensions:          256,
		OpenAIBaseURL:            "https://api.openai.com/v1",
		OllamaBaseURL:            "http://localhost:11434",
		VertexLocation:           "us-central1",
		EmbedTimeoutMS:           10_000,
		EmbedConcurrency:         runtime.NumCPU(),
		MaxGuessesPerParticipant: 64,
	}
}
