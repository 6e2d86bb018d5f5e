package ranking_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	embedding "github.com/guesswork/arbiter/internal/domain/embedding"
	model "github.com/guesswork/arbiter/internal/domain/model"
	ranking "github.com/guesswork/arbiter/internal/domain/ranking"
	similarity "github.com/guesswork/arbiter/internal/domain/similarity"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeEmbedder returns canned vectors per text and counts calls.
type fakeEmbedder struct {
	mu     sync.Mutex
	vecs   map[string][]float32
	calls  map[string]int
	failOn string
}

func newFakeEmbedder(vecs map[string][]float32) *fakeEmbedder {
	return &fakeEmbedder{vecs: vecs, calls: make(map[string]int)}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls[text]++
	f.mu.Unlock()
	if text == f.failOn {
		return nil, embedding.ErrUnavailable
	}
	vec, ok := f.vecs[text]
	if !ok {
		return []float32{1, 1, 1}, nil
	}
	return vec, nil
}

func (f *fakeEmbedder) callCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

func TestEngineRank(t *testing.T) {
	Convey("Given a ranking engine over canned embeddings", t, func() {
		ctx := context.Background()
		vecs := map[string][]float32{
			"a red fox":        {1, 0, 0},
			"a blue car":       {0, 1, 0},
			"a red fox jumped": {0.9, 0.1, 0},
			"dog":              {0, 0, 1},
			"cat":              {0.5, 0, 0.5},
			"wolf":             {0.3, 0, 0.7},
		}

		Convey("When two participants submit one guess each", func() {
			fake := newFakeEmbedder(vecs)
			engine := ranking.NewEngine(fake)

			result, err := engine.Rank(ctx, model.Match{
				Target: "a red fox",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{"a blue car"}, Single: true},
					{Participant: "bob", Guesses: []string{"a red fox jumped"}, Single: true},
				},
			})

			Convey("Then the closer guess wins", func() {
				So(err, ShouldBeNil)
				So(result.Winner, ShouldEqual, "bob")
			})

			Convey("And every guess appears exactly once with a score in range", func() {
				So(err, ShouldBeNil)
				So(len(result.Participants), ShouldEqual, 2)
				for _, pr := range result.Participants {
					So(len(pr.Scores), ShouldEqual, 1)
					So(pr.Scores[0].Similarity, ShouldBeGreaterThanOrEqualTo, -1)
					So(pr.Scores[0].Similarity, ShouldBeLessThanOrEqualTo, 1)
				}
				So(result.Participants[0].Scores[0].Guess, ShouldEqual, "a blue car")
				So(result.Participants[1].Scores[0].Guess, ShouldEqual, "a red fox jumped")
			})

			Convey("And the target was embedded exactly once", func() {
				So(err, ShouldBeNil)
				So(fake.callCount("a red fox"), ShouldEqual, 1)
			})
		})

		Convey("When a participant submits an ordered list of guesses", func() {
			fake := newFakeEmbedder(vecs)
			engine := ranking.NewEngine(fake)

			result, err := engine.Rank(ctx, model.Match{
				Target: "dog",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{"cat", "dog", "wolf"}},
				},
			})

			Convey("Then the output preserves submission order", func() {
				So(err, ShouldBeNil)
				pr := result.Participants[0]
				So(len(pr.Scores), ShouldEqual, 3)
				So(pr.Scores[0].Guess, ShouldEqual, "cat")
				So(pr.Scores[1].Guess, ShouldEqual, "dog")
				So(pr.Scores[2].Guess, ShouldEqual, "wolf")
			})

			Convey("And the identical guess has the maximum similarity", func() {
				So(err, ShouldBeNil)
				pr := result.Participants[0]
				So(pr.Best, ShouldEqual, 1)
				So(math.Abs(pr.Scores[1].Similarity-1), ShouldBeLessThan, 1e-6)
				So(pr.Scores[0].Similarity, ShouldBeLessThan, pr.Scores[1].Similarity)
				So(pr.Scores[2].Similarity, ShouldBeLessThan, pr.Scores[1].Similarity)
				So(result.Winner, ShouldEqual, "alice")
			})
		})

		Convey("When the winner is decided by a single best guess, not an aggregate", func() {
			fake := newFakeEmbedder(map[string][]float32{
				"t":  {1, 0},
				"a1": {1, 0},    // sim 1
				"a2": {0, 1},    // sim 0
				"b1": {1, 0.5},  // sim < 1
				"b2": {1, 0.45}, // sim < 1
			})
			engine := ranking.NewEngine(fake)

			result, err := engine.Rank(ctx, model.Match{
				Target: "t",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{"a1", "a2"}},
					{Participant: "bob", Guesses: []string{"b1", "b2"}},
				},
			})

			Convey("Then alice wins on her single best even with a worse average", func() {
				So(err, ShouldBeNil)
				So(result.Winner, ShouldEqual, "alice")
				So(result.Participants[0].Best, ShouldEqual, 0)
			})
		})

		Convey("When two participants tie exactly", func() {
			fake := newFakeEmbedder(map[string][]float32{
				"t":     {1, 0},
				"same":  {1, 1},
				"same2": {1, 1},
			})
			engine := ranking.NewEngine(fake)

			match := model.Match{
				Target: "t",
				Submissions: []model.Submission{
					{Participant: "first", Guesses: []string{"same"}},
					{Participant: "second", Guesses: []string{"same2"}},
				},
			}

			result, err := engine.Rank(ctx, match)

			Convey("Then the earlier participant in payload order wins", func() {
				So(err, ShouldBeNil)
				So(result.Winner, ShouldEqual, "first")
			})

			Convey("And the outcome is stable across repeated calls", func() {
				So(err, ShouldBeNil)
				for i := 0; i < 10; i++ {
					again, rerr := engine.Rank(ctx, match)
					So(rerr, ShouldBeNil)
					So(again.Winner, ShouldEqual, "first")
				}
			})
		})

		Convey("When guesses within a participant tie exactly", func() {
			fake := newFakeEmbedder(map[string][]float32{
				"t": {1, 0},
				"x": {2, 0},
				"y": {3, 0}, // same direction, same cosine
			})
			engine := ranking.NewEngine(fake)

			result, err := engine.Rank(ctx, model.Match{
				Target: "t",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{"x", "y"}},
				},
			})

			Convey("Then the first guess in submission order is the best", func() {
				So(err, ShouldBeNil)
				So(result.Participants[0].Best, ShouldEqual, 0)
			})
		})

		Convey("When a participant submitted no guesses", func() {
			fake := newFakeEmbedder(map[string][]float32{
				"t": {1, 0},
				"g": {0, 1},
			})
			engine := ranking.NewEngine(fake)

			result, err := engine.Rank(ctx, model.Match{
				Target: "t",
				Submissions: []model.Submission{
					{Participant: "empty", Guesses: nil},
					{Participant: "bob", Guesses: []string{"g"}},
				},
			})

			Convey("Then that participant cannot win", func() {
				So(err, ShouldBeNil)
				So(result.Winner, ShouldEqual, "bob")
				So(result.Participants[0].Best, ShouldEqual, -1)
				So(len(result.Participants[0].Scores), ShouldEqual, 0)
			})
		})

		Convey("When no participant submitted any guess", func() {
			fake := newFakeEmbedder(nil)
			engine := ranking.NewEngine(fake)

			_, err := engine.Rank(ctx, model.Match{
				Target: "t",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{}},
					{Participant: "bob", Guesses: nil},
				},
			})

			Convey("Then it fails with ErrNoCandidates", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ranking.ErrNoCandidates), ShouldBeTrue)
			})

			Convey("And the target was never embedded", func() {
				So(fake.callCount("t"), ShouldEqual, 0)
			})
		})

		Convey("When embedding a guess fails", func() {
			fake := newFakeEmbedder(vecs)
			fake.failOn = "a blue car"
			engine := ranking.NewEngine(fake)

			_, err := engine.Rank(ctx, model.Match{
				Target: "a red fox",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{"a blue car"}},
					{Participant: "bob", Guesses: []string{"a red fox jumped"}},
				},
			})

			Convey("Then the failure propagates and no partial result escapes", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, embedding.ErrUnavailable), ShouldBeTrue)
			})
		})

		Convey("When a guess embedding is degenerate", func() {
			fake := newFakeEmbedder(map[string][]float32{
				"t":    {1, 0},
				"zero": {0, 0},
			})
			engine := ranking.NewEngine(fake)

			_, err := engine.Rank(ctx, model.Match{
				Target: "t",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{"zero"}},
				},
			})

			Convey("Then it fails with ErrDegenerateVector", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, similarity.ErrDegenerateVector), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled before ranking", func() {
			fake := newFakeEmbedder(vecs)
			engine := ranking.NewEngine(fake)
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := engine.Rank(cancelled, model.Match{
				Target: "a red fox",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{"a blue car"}},
				},
			})

			Convey("Then it fails instead of returning a result", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When ranking with serialized and parallel embedding", func() {
			match := model.Match{
				Target: "a red fox",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{"a blue car", "cat", "wolf"}},
					{Participant: "bob", Guesses: []string{"a red fox jumped", "dog"}},
				},
			}

			serial := ranking.NewEngine(newFakeEmbedder(vecs), ranking.WithConcurrency(1))
			parallel := ranking.NewEngine(newFakeEmbedder(vecs), ranking.WithConcurrency(8))

			rs, errS := serial.Rank(ctx, match)
			rp, errP := parallel.Rank(ctx, match)

			Convey("Then both produce identical results", func() {
				So(errS, ShouldBeNil)
				So(errP, ShouldBeNil)
				So(rs, ShouldResemble, rp)
			})
		})

		Convey("When the same match is ranked twice", func() {
			fake := newFakeEmbedder(vecs)
			engine := ranking.NewEngine(fake)
			match := model.Match{
				Target: "a red fox",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{"a blue car", "cat"}},
					{Participant: "bob", Guesses: []string{"wolf"}},
				},
			}

			first, err1 := engine.Rank(ctx, match)
			second, err2 := engine.Rank(ctx, match)

			Convey("Then the scores are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldResemble, second)
			})
		})
	})
}

func TestEngineRankWithLocalEmbedder(t *testing.T) {
	Convey("Given a ranking engine over the local embedder", t, func() {
		ctx := context.Background()
		engine := ranking.NewEngine(embedding.NewLocal())

		Convey("When a participant guesses the target exactly", func() {
			result, err := engine.Rank(ctx, model.Match{
				Target: "a red fox",
				Submissions: []model.Submission{
					{Participant: "alice", Guesses: []string{"a red fox"}, Single: true},
				},
			})

			Convey("Then the similarity is 1 and alice wins", func() {
				So(err, ShouldBeNil)
				So(result.Winner, ShouldEqual, "alice")
				So(math.Abs(result.Participants[0].Scores[0].Similarity-1), ShouldBeLessThan, 1e-6)
			})
		})
	})
}
