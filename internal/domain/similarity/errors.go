package similarity

import "errors"

// Sentinel kinds for similarity errors.
var (
	// ErrDimensionMismatch means the vectors were produced by different
	// models and are not comparable.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrDegenerateVector means one of the vectors has zero magnitude,
	// which indicates unexpected model output.
	ErrDegenerateVector = errors.New("degenerate embedding vector")
)
