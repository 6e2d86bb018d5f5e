// Package ranking orchestrates embedding and scoring across one target
// and many participants' guesses, and selects the winner.
package ranking

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/guesswork/arbiter/internal/domain/embedding"
	"github.com/guesswork/arbiter/internal/domain/model"
	"github.com/guesswork/arbiter/internal/domain/similarity"
)

// Engine ranks guesses against a target phrase. It is stateless between
// calls; the embedder is the only shared resource and is used read-only.
type Engine struct {
	embedder    embedding.Embedder
	concurrency int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithConcurrency caps the number of concurrent embedding calls per
// request. Use 1 to serialize calls against providers that are not safe
// for concurrent use.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEngine creates a ranking engine over the given embedder.
func NewEngine(embedder embedding.Embedder, opts ...Option) *Engine {
	e := &Engine{
		embedder:    embedder,
		concurrency: runtime.NumCPU(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// job identifies one guess to embed and score.
type job struct {
	submission int
	guess      int
	text       string
}

// Rank scores every guess in the match against the target and selects the
// per-participant best guesses and the global winner.
//
// The target is embedded exactly once and that vector is reused for every
// comparison, so identical requests always produce identical scores.
// Guesses are embedded with bounded parallelism; they are mutually
// independent, and results are reassembled in submission order. The first
// failure cancels the remaining work and the whole request fails; a
// response never carries partial results.
//
// Ties are broken first-wins: within a participant, the earliest guess in
// submission order; across participants, the earliest participant in
// payload order. A participant with no guesses cannot win; if no
// participant submitted any guess, Rank fails with ErrNoCandidates.
func (e *Engine) Rank(ctx context.Context, m model.Match) (model.Result, error) {
	if m.GuessCount() == 0 {
		return model.Result{}, ErrNoCandidates
	}

	targetVec, err := e.embedder.Embed(ctx, m.Target)
	if err != nil {
		return model.Result{}, fmt.Errorf("embed target: %w", err)
	}

	scores := make([][]model.ScoredGuess, len(m.Submissions))
	jobs := make([]job, 0, m.GuessCount())
	for si, sub := range m.Submissions {
		scores[si] = make([]model.ScoredGuess, len(sub.Guesses))
		for gi, guess := range sub.Guesses {
			jobs = append(jobs, job{submission: si, guess: gi, text: guess})
		}
	}

	if err := e.scoreAll(ctx, targetVec, jobs, scores); err != nil {
		return model.Result{}, err
	}

	return e.assemble(m, scores)
}

// scoreAll embeds and scores every job, writing results into scores.
// Worker goroutines pull jobs off a channel; the slot addressed by each
// job is owned by exactly one worker, so no locking is needed on scores.
func (e *Engine) scoreAll(ctx context.Context, targetVec []float32, jobs []job, scores [][]model.ScoredGuess) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := e.concurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan job)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if ctx.Err() != nil {
					continue // drain after cancellation
				}
				vec, err := e.embedder.Embed(ctx, j.text)
				if err != nil {
					fail(fmt.Errorf("embed guess: %w", err))
					continue
				}
				score, err := similarity.Cosine(targetVec, vec)
				if err != nil {
					fail(fmt.Errorf("score guess: %w", err))
					continue
				}
				scores[j.submission][j.guess] = model.ScoredGuess{Guess: j.text, Similarity: score}
			}
		}()
	}

	for _, j := range jobs {
		select {
		case jobCh <- j:
		case <-ctx.Done():
		}
	}
	close(jobCh)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ranking cancelled: %w", err)
	}
	return nil
}

// assemble picks per-participant bests and the global winner.
func (e *Engine) assemble(m model.Match, scores [][]model.ScoredGuess) (model.Result, error) {
	result := model.Result{
		Target:       m.Target,
		Participants: make([]model.ParticipantResult, len(m.Submissions)),
	}

	winnerIdx := -1
	var winnerScore float64
	for si, sub := range m.Submissions {
		pr := model.ParticipantResult{
			Participant: sub.Participant,
			Scores:      scores[si],
			Best:        -1,
			Single:      sub.Single,
		}
		for gi, sg := range pr.Scores {
			// Strictly greater keeps the first maximal guess on ties.
			if pr.Best < 0 || sg.Similarity > pr.Scores[pr.Best].Similarity {
				pr.Best = gi
			}
		}
		result.Participants[si] = pr

		if best, ok := pr.BestScore(); ok {
			// Strictly greater keeps the first participant on ties.
			if winnerIdx < 0 || best > winnerScore {
				winnerIdx = si
				winnerScore = best
			}
		}
	}

	if winnerIdx < 0 {
		return model.Result{}, ErrNoCandidates
	}
	result.Winner = result.Participants[winnerIdx].Participant
	return result, nil
}
