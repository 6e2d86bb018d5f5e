// Package embedding defines the contract for text embedding providers and
// the adapters for the supported backends. Providers map text to a
// fixed-length vector; two vectors are only comparable when produced by
// the same provider and model.
package embedding

import "context"

// Embedder produces a vector embedding for text.
//
// Implementations must be deterministic for a fixed model version and
// input text, must treat the empty string as an opaque input (no special
// casing), and must be safe for concurrent use unless documented
// otherwise. Embed may block on model inference; callers should bound it
// with a context deadline and must not hold locks across it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
