// Package model contains domain models passed between layers.
package model

// Submission holds one participant's guesses for a match, in the order
// they were submitted. Single records whether the wire shape was a bare
// string rather than an array, so responses can mirror the input shape.
type Submission struct {
	Participant string
	Guesses     []string
	Single      bool
}

// Match is one scoring request: a target phrase and the ordered list of
// participant submissions. Submission order is significant because it
// drives the first-wins tie-break for winner selection.
type Match struct {
	Target      string
	Submissions []Submission
}

// GuessCount returns the total number of guesses across all submissions.
func (m Match) GuessCount() int {
	n := 0
	for _, s := range m.Submissions {
		n += len(s.Guesses)
	}
	return n
}

// ScoredGuess pairs a guess with its cosine similarity to the target.
type ScoredGuess struct {
	Guess      string  `json:"guess"`
	Similarity float64 `json:"similarity"`
}

// ParticipantResult holds the scored guesses for one participant, in
// submission order. Best is the index of the first maximal-similarity
// guess, or -1 when the participant submitted no guesses.
type ParticipantResult struct {
	Participant string
	Scores      []ScoredGuess
	Best        int
	Single      bool
}

// BestScore returns the participant's best similarity and whether the
// participant has any scored guess at all.
func (r ParticipantResult) BestScore() (float64, bool) {
	if r.Best < 0 || r.Best >= len(r.Scores) {
		return 0, false
	}
	return r.Scores[r.Best].Similarity, true
}

// Result is the full outcome of ranking one match. Participants appear in
// submission order; Winner is the participant id of the global winner.
type Result struct {
	Target       string
	Participants []ParticipantResult
	Winner       string
}
