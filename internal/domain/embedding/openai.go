package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Default OpenAI provider configuration constants.
const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "text-embedding-3-small"
)

// OpenAIOption applies a configuration option to the OpenAI embedder.
type OpenAIOption func(*OpenAI)

// WithOpenAIBaseURL overrides the API base URL (for proxies and compatible
// servers).
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(o *OpenAI) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithOpenAIModel sets the embedding model name.
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(o *OpenAI) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// OpenAI calls the OpenAI embeddings API.
type OpenAI struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAI creates an embedder using the OpenAI embeddings API.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key required", ErrUnavailable)
	}

	o := &OpenAI{
		apiKey:     apiKey,
		model:      defaultOpenAIModel,
		baseURL:    defaultOpenAIBaseURL,
		httpClient: http.DefaultClient,
	}

	// Apply all options
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

type openAIEmbedReq struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type openAIEmbedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed implements Embedder.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	body := openAIEmbedReq{Input: text, Model: o.model}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bs, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: openai embeddings %d: %s", ErrUnavailable, resp.StatusCode, string(bs))
	}

	var out openAIEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: openai", ErrEmptyResponse)
	}
	return out.Data[0].Embedding, nil
}
