package embedding_test

import (
	"context"
	"math"
	"testing"

	embedding "github.com/guesswork/arbiter/internal/domain/embedding"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalEmbedder(t *testing.T) {
	Convey("Given a local embedder", t, func() {
		emb := embedding.NewLocal()
		ctx := context.Background()

		Convey("When embedding the same text twice", func() {
			a, errA := emb.Embed(ctx, "a red fox")
			b, errB := emb.Embed(ctx, "a red fox")

			Convey("Then both calls succeed with identical vectors", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(len(a), ShouldEqual, 256)
				So(a, ShouldResemble, b)
			})
		})

		Convey("When embedding non-empty text", func() {
			vec, err := emb.Embed(ctx, "the quick brown fox")

			Convey("Then the vector is L2-normalized", func() {
				So(err, ShouldBeNil)
				var norm float64
				for _, v := range vec {
					norm += float64(v) * float64(v)
				}
				So(math.Abs(norm-1), ShouldBeLessThan, 1e-5)
			})
		})

		Convey("When texts share tokens", func() {
			target, _ := emb.Embed(ctx, "a red fox")
			close2, _ := emb.Embed(ctx, "a red fox jumped")
			far, _ := emb.Embed(ctx, "submarine telescope")

			dot := func(x, y []float32) float64 {
				var d float64
				for i := range x {
					d += float64(x[i]) * float64(y[i])
				}
				return d
			}

			Convey("Then overlapping text scores closer than unrelated text", func() {
				So(dot(target, close2), ShouldBeGreaterThan, dot(target, far))
			})
		})

		Convey("When embedding the empty string", func() {
			vec, err := emb.Embed(ctx, "")

			Convey("Then it returns a zero vector without error", func() {
				So(err, ShouldBeNil)
				So(len(vec), ShouldEqual, 256)
				for _, v := range vec {
					So(v, ShouldEqual, 0)
				}
			})
		})

		Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := emb.Embed(cancelled, "cat")

			Convey("Then it fails with the context error", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When configured with custom dimensions", func() {
			small := embedding.NewLocal(embedding.WithDimensions(16))
			vec, err := small.Embed(ctx, "dog")

			Convey("Then the vector has the configured length", func() {
				So(err, ShouldBeNil)
				So(len(vec), ShouldEqual, 16)
			})
		})
	})
}
