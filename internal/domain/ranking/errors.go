package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	// ErrNoCandidates means no participant submitted any guess, so no
	// winner can be declared.
	ErrNoCandidates = errors.New("no candidate guesses")
)
