package dedupe_test

import (
	"context"
	"sync"
	"testing"

	dedupe "github.com/okian/avalia/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then every key starts clear", func() {
			So(d.State("structure"), ShouldEqual, dedupe.Clear)
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a streak fails repeatedly", func() {
			first := d.SeenAndRecord(ctx, "structure")
			second := d.SeenAndRecord(ctx, "structure")

			Convey("Then only the first failure is reported", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.State("structure"), ShouldEqual, dedupe.Shown)
			})

			Convey("And a success ends the streak", func() {
				d.Unrecord(ctx, "structure")
				So(d.State("structure"), ShouldEqual, dedupe.Clear)
				So(d.SeenAndRecord(ctx, "structure"), ShouldBeFalse)
			})
		})

		Convey("When different keys fail", func() {
			d.SeenAndRecord(ctx, "a")

			Convey("Then their latches are independent", func() {
				So(d.SeenAndRecord(ctx, "b"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
			})
		})

		Convey("When many goroutines fail the same streak at once", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			reported := 0
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, "structure") {
						mu.Lock()
						reported++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one of them reports", func() {
				So(reported, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a bounded deduper that is full", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxKeys(1))
		d.SeenAndRecord(ctx, "a")

		Convey("Then new keys are always reported", func() {
			So(d.SeenAndRecord(ctx, "b"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeFalse)
			So(d.State("b"), ShouldEqual, dedupe.Clear)
		})
	})

	Convey("States render as text", t, func() {
		So(dedupe.Clear.String(), ShouldEqual, "clear")
		So(dedupe.Shown.String(), ShouldEqual, "shown")
	})
}
