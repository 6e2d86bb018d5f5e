package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Default local provider configuration constants.
const (
	defaultLocalDimensions = 256
)

// LocalOption applies a configuration option to the Local embedder.
type LocalOption func(*Local)

// WithDimensions sets the vector dimension of the local embedder.
func WithDimensions(dims int) LocalOption {
	return func(l *Local) {
		if dims > 0 {
			l.dims = dims
		}
	}
}

// Local is a deterministic, in-process embedder that requires no external
// model. It hashes whitespace-separated tokens into a fixed number of
// buckets (feature hashing) and L2-normalizes the result, so texts that
// share tokens land close in cosine space. It stands in for an external
// embedding model in development and tests, the same way an in-memory
// scorer stands in for an ML scoring service.
type Local struct {
	dims int
}

// NewLocal creates a local embedder with configuration options.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		dims: defaultLocalDimensions,
	}

	// Apply all options
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Embed maps text to a normalized bag-of-tokens vector. It is a pure
// function of the input text.
func (l *Local) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, l.dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		bucket := int(sum % uint64(l.dims)) //nolint:gosec // bounded by dims
		// One bit of the hash decides the sign to keep unrelated tokens
		// from accumulating in the same direction.
		if sum&(1<<63) != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}

	// L2-normalize so cosine similarity reduces to a dot product.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) * inv)
		}
	}

	return vec, nil
}
