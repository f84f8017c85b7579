package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/dropout/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryIndex(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new index", t, func() {
		d := dedupe.NewInMemoryIndex()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a key is claimed for the first time", func() {
			id, claimed := d.Claim(ctx, "upload-1", "job-a")

			Convey("Then the binding is made", func() {
				So(claimed, ShouldBeTrue)
				So(id, ShouldEqual, "job-a")
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the key is claimed again", func() {
				id, claimed := d.Claim(ctx, "upload-1", "job-b")

				Convey("Then the original job is returned", func() {
					So(claimed, ShouldBeFalse)
					So(id, ShouldEqual, "job-a")
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key is released", func() {
				d.Release(ctx, "upload-1")

				Convey("Then it can be bound to a new job", func() {
					So(d.Size(), ShouldEqual, 0)
					id, claimed := d.Claim(ctx, "upload-1", "job-c")
					So(claimed, ShouldBeTrue)
					So(id, ShouldEqual, "job-c")
				})
			})
		})

		Convey("When releasing an unknown key", func() {
			d.Release(ctx, "nope")
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a bounded index", t, func() {
		d := dedupe.NewInMemoryIndex(dedupe.WithMaxSize(3))
		for i := 1; i <= 3; i++ {
			d.Claim(ctx, fmt.Sprintf("k%d", i), fmt.Sprintf("j%d", i))
		}

		Convey("When a fourth key arrives", func() {
			_, claimed := d.Claim(ctx, "k4", "j4")
			So(claimed, ShouldBeTrue)

			Convey("Then the oldest key is forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				id, claimed := d.Claim(ctx, "k1", "j9")
				So(claimed, ShouldBeTrue)
				So(id, ShouldEqual, "j9")
			})

			Convey("Then newer keys are kept", func() {
				id, claimed := d.Claim(ctx, "k3", "j9")
				So(claimed, ShouldBeFalse)
				So(id, ShouldEqual, "j3")
			})
		})

		Convey("When a middle key is released", func() {
			d.Release(ctx, "k2")
			d.Claim(ctx, "k5", "j5")

			Convey("Then no eviction is needed", func() {
				So(d.Size(), ShouldEqual, 3)
				_, claimed := d.Claim(ctx, "k1", "j9")
				So(claimed, ShouldBeFalse)
			})
		})
	})

	Convey("Given an unbounded index", t, func() {
		d := dedupe.NewInMemoryIndex(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.Claim(ctx, fmt.Sprintf("k%d", i), "j")
		}
		So(d.Size(), ShouldEqual, 1000)
		_, claimed := d.Claim(ctx, "k0", "x")
		So(claimed, ShouldBeFalse)
	})
}

func TestIndexConcurrency(t *testing.T) {
	Convey("Given concurrent claims on one key", t, func() {
		d := dedupe.NewInMemoryIndex()
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, claimed := d.Claim(context.Background(), "same", fmt.Sprintf("job-%d", i)); claimed {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one claim wins", func() {
			So(wins.Load(), ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
