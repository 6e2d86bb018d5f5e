// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guesswork/arbiter/internal/config"
	"github.com/guesswork/arbiter/internal/domain/embedding"
	"github.com/guesswork/arbiter/internal/domain/model"
	"github.com/guesswork/arbiter/internal/domain/ranking"
	"github.com/guesswork/arbiter/pkg/logger"
	"github.com/guesswork/arbiter/pkg/metrics"
)

// Service implements the API dependencies for the guess scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	embedder embedding.Embedder
	engine   *ranking.Engine

	// Configuration
	provider              string
	model                 string
	embedDimensions       int
	openAIBaseURL         string
	openAIAPIKey          string
	ollamaBaseURL         string
	vertexProjectID       string
	vertexLocation        string
	vertexCredentialsFile string
	embedTimeout          time.Duration
	embedConcurrency      int

	// State
	started       bool
	matchesScored atomic.Int64
	guessesScored atomic.Int64
	scoringErrors atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProvider selects the embedding backend.
func WithProvider(provider string) Option {
	return func(s *Service) {
		if provider != "" {
			s.provider = provider
		}
	}
}

// WithModel names the embedding model. Empty means the provider default.
func WithModel(model string) Option {
	return func(s *Service) {
		s.model = model
	}
}

// WithEmbedDimensions sets the vector dimension for the local provider.
func WithEmbedDimensions(dims int) Option {
	return func(s *Service) {
		if dims > 0 {
			s.embedDimensions = dims
		}
	}
}

// WithEmbedConcurrency caps concurrent embedding calls per match.
func WithEmbedConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.embedConcurrency = n
		}
	}
}

// WithEmbedTimeout bounds the embedding phase of a single match.
func WithEmbedTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.embedTimeout = d
		}
	}
}

// WithOpenAI configures credentials for the openai provider.
func WithOpenAI(baseURL, apiKey string) Option {
	return func(s *Service) {
		if baseURL != "" {
			s.openAIBaseURL = baseURL
		}
		s.openAIAPIKey = apiKey
	}
}

// WithOllama configures the ollama provider endpoint.
func WithOllama(baseURL string) Option {
	return func(s *Service) {
		if baseURL != "" {
			s.ollamaBaseURL = baseURL
		}
	}
}

// WithVertex configures the vertex provider.
func WithVertex(projectID, location, credentialsFile string) Option {
	return func(s *Service) {
		s.vertexProjectID = projectID
		if location != "" {
			s.vertexLocation = location
		}
		s.vertexCredentialsFile = credentialsFile
	}
}

// WithEmbedder injects a pre-built embedder, bypassing provider
// construction. Used by tests.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *Service) {
		s.embedder = e
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		provider:         config.ProviderLocal,
		embedDimensions:  256,
		embedTimeout:     10 * time.Second,
		embedConcurrency: runtime.NumCPU(),
		logger:           nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the embedding backend and the ranking engine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting scoring service...")

	if s.embedder == nil {
		embedder, err := s.buildEmbedder(ctx)
		if err != nil {
			return fmt.Errorf("build embedder: %w", err)
		}
		s.embedder = embedder
	}

	instrumented := &instrumentedEmbedder{next: s.embedder}
	s.engine = ranking.NewEngine(instrumented, ranking.WithConcurrency(s.embedConcurrency))
	metrics.UpdateEmbedConcurrency(s.embedConcurrency)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.String("provider", s.provider),
		logger.String("model", s.model),
		logger.Int("embedConcurrency", s.embedConcurrency),
	)

	return nil
}

// buildEmbedder constructs the embedder selected by the provider setting.
func (s *Service) buildEmbedder(ctx context.Context) (embedding.Embedder, error) {
	switch s.provider {
	case config.ProviderLocal:
		return embedding.NewLocal(embedding.WithDimensions(s.embedDimensions)), nil
	case config.ProviderOpenAI:
		var opts []embedding.OpenAIOption
		if s.openAIBaseURL != "" {
			opts = append(opts, embedding.WithOpenAIBaseURL(s.openAIBaseURL))
		}
		if s.model != "" {
			opts = append(opts, embedding.WithOpenAIModel(s.model))
		}
		return embedding.NewOpenAI(s.openAIAPIKey, opts...)
	case config.ProviderOllama:
		var opts []embedding.OllamaOption
		if s.ollamaBaseURL != "" {
			opts = append(opts, embedding.WithOllamaBaseURL(s.ollamaBaseURL))
		}
		if s.model != "" {
			opts = append(opts, embedding.WithOllamaModel(s.model))
		}
		return embedding.NewOllama(opts...), nil
	case config.ProviderVertex:
		opts := []embedding.VertexOption{
			embedding.WithVertexLocation(s.vertexLocation),
		}
		if s.model != "" {
			opts = append(opts, embedding.WithVertexModel(s.model))
		}
		if s.vertexCredentialsFile != "" {
			opts = append(opts, embedding.WithVertexCredentialsFile(s.vertexCredentialsFile))
		}
		return embedding.NewVertex(ctx, s.vertexProjectID, opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", s.provider)
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping scoring service...")

	if closer, ok := s.embedder.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing embedder", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "scoring service stopped")
}

// Score ranks a match against its target and returns the full result.
func (s *Service) Score(ctx context.Context, m model.Match) (model.Result, error) {
	s.mu.RLock()
	engine := s.engine
	started := s.started
	timeout := s.embedTimeout
	s.mu.RUnlock()

	if !started {
		return model.Result{}, fmt.Errorf("service not started")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := engine.Rank(ctx, m)
	metrics.RecordRankingLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		s.scoringErrors.Add(1)
		if errors.Is(err, ranking.ErrNoCandidates) {
			metrics.RecordNoCandidates()
		} else {
			metrics.RecordScoringError()
		}
		s.logger.Warn(ctx, "match scoring failed",
			logger.String("target", m.Target),
			logger.Error(err),
		)
		return model.Result{}, err
	}

	s.recordResultMetrics(m, result)

	s.logger.Debug(ctx, "match scored",
		logger.String("target", m.Target),
		logger.Int("participants", len(result.Participants)),
		logger.Int("guesses", m.GuessCount()),
		logger.String("winner", result.Winner),
	)

	return result, nil
}

// recordResultMetrics updates counters derived from a completed match.
func (s *Service) recordResultMetrics(m model.Match, result model.Result) {
	s.matchesScored.Add(1)
	s.guessesScored.Add(int64(m.GuessCount()))

	metrics.RecordMatchScored()
	metrics.RecordGuessesScored(m.GuessCount())

	var winnerBest float64
	contenders := 0
	for _, pr := range result.Participants {
		for _, sg := range pr.Scores {
			metrics.RecordSimilarityScore(sg.Similarity)
		}
		if pr.Participant == result.Winner {
			winnerBest, _ = pr.BestScore()
		}
	}
	for _, pr := range result.Participants {
		if best, ok := pr.BestScore(); ok && best == winnerBest {
			contenders++
		}
	}
	if contenders > 1 {
		metrics.RecordWinnerTie()
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"provider":         s.provider,
		"model":            s.model,
		"embedConcurrency": s.embedConcurrency,
		"matchesScored":    s.matchesScored.Load(),
		"guessesScored":    s.guessesScored.Load(),
		"scoringErrors":    s.scoringErrors.Load(),
	}

	return stats
}

// instrumentedEmbedder wraps an embedder with Prometheus instrumentation.
type instrumentedEmbedder struct {
	next embedding.Embedder
}

func (e *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	metrics.RecordEmbeddingRequest()
	metrics.IncActiveEmbeds()
	defer metrics.DecActiveEmbeds()

	start := time.Now()
	vec, err := e.next.Embed(ctx, text)
	metrics.RecordEmbeddingLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordEmbeddingError()
		return nil, err
	}
	return vec, nil
}

// Close forwards shutdown to the wrapped embedder if it supports it.
func (e *instrumentedEmbedder) Close() error {
	if closer, ok := e.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
