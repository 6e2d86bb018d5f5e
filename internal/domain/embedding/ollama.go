package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Default Ollama provider configuration constants.
const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "nomic-embed-text"
)

// OllamaOption applies a configuration option to the Ollama embedder.
type OllamaOption func(*Ollama)

// WithOllamaBaseURL sets the Ollama daemon address.
func WithOllamaBaseURL(baseURL string) OllamaOption {
	return func(o *Ollama) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithOllamaModel sets the embedding model name.
func WithOllamaModel(model string) OllamaOption {
	return func(o *Ollama) {
		if model != "" {
			o.model = model
		}
	}
}

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(o *Ollama) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// Ollama calls a local Ollama daemon's embeddings API.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllama creates an embedder backed by a local Ollama daemon.
func NewOllama(opts ...OllamaOption) *Ollama {
	o := &Ollama{
		baseURL:    defaultOllamaBaseURL,
		model:      defaultOllamaModel,
		httpClient: http.DefaultClient,
	}

	// Apply all options
	for _, opt := range opts {
		opt(o)
	}

	return o
}

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed implements Embedder.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	body := ollamaEmbedReq{Model: o.model, Prompt: text}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bs, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama embeddings %d: %s", ErrUnavailable, resp.StatusCode, string(bs))
	}

	var out ollamaEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: ollama", ErrEmptyResponse)
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
