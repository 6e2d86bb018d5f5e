// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/guesswork/arbiter/internal/domain/embedding"
	"github.com/guesswork/arbiter/internal/domain/model"
	"github.com/guesswork/arbiter/internal/domain/ranking"
	"github.com/guesswork/arbiter/internal/domain/similarity"
)

// ScoreHandler handles match scoring requests.
type ScoreHandler struct {
	deps       Dependencies
	maxGuesses int
}

// NewScoreHandler creates a new score handler. maxGuesses caps the number
// of guesses accepted from a single participant.
func NewScoreHandler(deps Dependencies, maxGuesses int) *ScoreHandler {
	return &ScoreHandler{deps: deps, maxGuesses: maxGuesses}
}

// scoreRequest mirrors the wire schema for POST /score. Target is a
// pointer so a missing field can be told apart from an empty one; Guesses
// stays raw because each participant's value may be a bare string or an
// array of strings.
type scoreRequest struct {
	Target  *string         `json:"target"`
	Guesses json.RawMessage `json:"guesses"`
}

// scoreResponse is the wire shape of a fully ranked match. Each results
// value mirrors the shape the participant submitted: a single scored
// guess object, or an array of them.
type scoreResponse struct {
	Target  string                     `json:"target"`
	Results map[string]json.RawMessage `json:"results"`
	Winner  string                     `json:"winner"`
}

// HandleScore handles POST /score requests.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Target == nil || strings.TrimSpace(*req.Target) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing target")))
		return
	}
	if len(req.Guesses) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing guesses")))
		return
	}

	subs, err := h.parseSubmissions(req.Guesses)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	result, err := h.deps.Score(r.Context(), model.Match{Target: *req.Target, Submissions: subs})
	if err != nil {
		h.writeScoreError(w, op, err)
		return
	}

	resp, err := buildScoreResponse(result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeScoreError maps domain error kinds onto HTTP statuses. Client
// mistakes (no usable guesses) get a 400; model trouble gets a 500.
func (h *ScoreHandler) writeScoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ranking.ErrNoCandidates):
		writeError(w, http.StatusBadRequest, "no_candidates", fmt.Errorf("%s: %w", op, err))
	case errors.Is(err, embedding.ErrUnavailable), errors.Is(err, embedding.ErrEmptyResponse):
		writeError(w, http.StatusInternalServerError, "embedding_unavailable", fmt.Errorf("%s: %w", op, err))
	case errors.Is(err, similarity.ErrDegenerateVector), errors.Is(err, similarity.ErrDimensionMismatch):
		writeError(w, http.StatusInternalServerError, "degenerate_vector", fmt.Errorf("%s: %w", op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
	}
}

// parseSubmissions walks the guesses object with a token decoder so the
// order participants appear in the payload is preserved; that order
// drives the winner tie-break. Each value's JSON type selects the shape:
// a string is one guess, an array is an ordered list.
func (h *ScoreHandler) parseSubmissions(raw json.RawMessage) ([]model.Submission, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.New("guesses must be an object")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("guesses must be an object")
	}

	seen := make(map[string]struct{})
	var subs []model.Submission
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.New("guesses must be an object")
		}
		key, ok := keyTok.(string)
		if !ok || strings.TrimSpace(key) == "" {
			return nil, errors.New("participant id must be a non-empty string")
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("participant %q: duplicate entry", key)
		}
		seen[key] = struct{}{}

		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("participant %q: invalid value", key)
		}

		sub, err := h.parseGuessValue(key, val)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

// parseGuessValue resolves the string-vs-array union for one participant.
func (h *ScoreHandler) parseGuessValue(key string, val json.RawMessage) (model.Submission, error) {
	trimmed := bytes.TrimLeft(val, " \t\r\n")
	if len(trimmed) == 0 {
		return model.Submission{}, fmt.Errorf("participant %q: missing value", key)
	}

	switch trimmed[0] {
	case '"':
		var guess string
		if err := json.Unmarshal(trimmed, &guess); err != nil {
			return model.Submission{}, fmt.Errorf("participant %q: invalid guess", key)
		}
		return model.Submission{Participant: key, Guesses: []string{guess}, Single: true}, nil
	case '[':
		var guesses []string
		if err := json.Unmarshal(trimmed, &guesses); err != nil {
			return model.Submission{}, fmt.Errorf("participant %q: guesses must be a string or an array of strings", key)
		}
		if len(guesses) > h.maxGuesses {
			return model.Submission{}, fmt.Errorf("participant %q: at most %d guesses allowed", key, h.maxGuesses)
		}
		return model.Submission{Participant: key, Guesses: guesses}, nil
	default:
		return model.Submission{}, fmt.Errorf("participant %q: guesses must be a string or an array of strings", key)
	}
}

// buildScoreResponse renders each participant's result in the shape they
// submitted.
func buildScoreResponse(result model.Result) (scoreResponse, error) {
	resp := scoreResponse{
		Target:  result.Target,
		Results: make(map[string]json.RawMessage, len(result.Participants)),
		Winner:  result.Winner,
	}

	for _, pr := range result.Participants {
		var (
			raw []byte
			err error
		)
		if pr.Single {
			raw, err = json.Marshal(pr.Scores[0])
		} else {
			scores := pr.Scores
			if scores == nil {
				scores = []model.ScoredGuess{}
			}
			raw, err = json.Marshal(scores)
		}
		if err != nil {
			return scoreResponse{}, fmt.Errorf("marshal results for %q: %w", pr.Participant, err)
		}
		resp.Results[pr.Participant] = raw
	}

	return resp, nil
}
