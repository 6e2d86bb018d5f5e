package embedding

import "errors"

// Sentinel kinds for embedding errors.
var (
	// ErrUnavailable wraps any transport or model failure. Construction-time
	// occurrences are fatal to the process; per-call occurrences surface as
	// server errors.
	ErrUnavailable = errors.New("embedding unavailable")

	// ErrEmptyResponse indicates the provider answered without a vector.
	ErrEmptyResponse = errors.New("provider returned no embedding")
)
