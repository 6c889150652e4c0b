package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/gifduel/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, int64(0))
		})

		Convey("When a request ID is recorded twice", func() {
			first := d.SeenAndRecord(ctx, "req-1")
			second := d.SeenAndRecord(ctx, "req-1")

			Convey("Then only the second call reports it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, int64(1))
			})
		})

		Convey("When a recorded ID is unrecorded", func() {
			d.SeenAndRecord(ctx, "req-1")
			d.Unrecord(ctx, "req-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, int64(0))
				So(d.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown ID is unrecorded", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, int64(0))
			})
		})
	})

	Convey("Given a deduper bounded to three IDs", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"a", "b", "c"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("When a fourth ID arrives", func() {
			So(d.SeenAndRecord(ctx, "d"), ShouldBeFalse)

			Convey("Then the oldest ID is evicted and the rest remain", func() {
				So(d.Size(), ShouldEqual, int64(3))
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When the oldest ID was unrecorded and re-added", func() {
			d.Unrecord(ctx, "a")
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "d"), ShouldBeFalse)

			Convey("Then eviction follows the new insertion order", func() {
				So(d.Size(), ShouldEqual, int64(3))
				So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("When many IDs are recorded", func() {
			for i := 0; i < 2000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
			}

			Convey("Then none are evicted", func() {
				So(d.Size(), ShouldEqual, int64(2000))
				So(d.SeenAndRecord(ctx, "req-0"), ShouldBeTrue)
			})
		})
	})

	Convey("Given a small deduper with heavy unrecord churn", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(4))

		Convey("When IDs are repeatedly recorded and unrecorded", func() {
			for i := 0; i < 500; i++ {
				id := fmt.Sprintf("req-%d", i)
				d.SeenAndRecord(ctx, id)
				if i%2 == 0 {
					d.Unrecord(ctx, id)
				}
			}

			Convey("Then the bound still holds and the newest IDs are kept", func() {
				So(d.Size(), ShouldEqual, int64(4))
				So(d.SeenAndRecord(ctx, "req-499"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "req-493"), ShouldBeTrue)
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper shared by goroutines", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))

		Convey("When the same IDs are raced from many goroutines", func() {
			const workers = 8
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				fresh int
			)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each ID is newly recorded exactly once", func() {
				So(fresh, ShouldEqual, 100)
				So(d.Size(), ShouldEqual, int64(100))
			})
		})
	})
}
