// Package similarity quantifies closeness between embedding vectors.
package similarity

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity between two vectors: the dot
// product divided by the product of their magnitudes. The result lies in
// [-1, 1]. Accumulation happens in float64 so the score is stable across
// vector lengths.
//
// Both vectors must come from the same embedder and therefore have the
// same length; a zero-magnitude vector has no direction, so the score is
// undefined and Cosine fails rather than letting a NaN escape.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, ErrDegenerateVector
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
