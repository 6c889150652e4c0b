package pool_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/internal/domain/pool"
	. "github.com/smartystreets/goconvey/convey"
)

type countingFetcher struct {
	calls  atomic.Int32
	items  []model.Item
	err    error
	gate   chan struct{}
	themes []string
	mu     sync.Mutex
}

func (f *countingFetcher) Fetch(ctx context.Context, theme string, rating model.Rating) ([]model.Item, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.themes = append(f.themes, theme)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func gifs(n int) []model.Item {
	out := make([]model.Item, n)
	for i := range out {
		out[i] = model.Item{ID: fmt.Sprintf("g%d", i), Title: "gif", DisplayURL: fmt.Sprintf("https://media.test/%d.gif", i)}
	}
	return out
}

func TestCache_Ensure(t *testing.T) {
	Convey("Given a cache over a fetcher with three usable items", t, func() {
		ctx := context.Background()
		f := &countingFetcher{items: gifs(3)}
		c := pool.New(f)

		Convey("When ensuring the same normalized key twice", func() {
			first, err1 := c.Ensure(ctx, "  Cats ", model.RatingPG)
			second, err2 := c.Ensure(ctx, "cats", model.RatingPG)

			Convey("Then the upstream is fetched once and both calls agree", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(int(f.calls.Load()), ShouldEqual, 1)
				So(f.themes, ShouldResemble, []string{"cats"})
				So(second, ShouldResemble, first)
				So(c.Keys(), ShouldResemble, []string{"cats|pg"})
			})
		})

		Convey("When the rating differs", func() {
			_, _ = c.Ensure(ctx, "cats", model.RatingPG)
			_, _ = c.Ensure(ctx, "cats", model.RatingG)

			Convey("Then each rating gets its own entry", func() {
				So(int(f.calls.Load()), ShouldEqual, 2)
				So(c.Len(), ShouldEqual, 2)
			})
		})

		Convey("When a caller mutates the returned slice", func() {
			items, err := c.Ensure(ctx, "cats", model.RatingPG)
			So(err, ShouldBeNil)
			items[0].ID = "tampered"
			again, _ := c.Ensure(ctx, "cats", model.RatingPG)

			Convey("Then the cached entry is unchanged", func() {
				So(again[0].ID, ShouldEqual, "g0")
			})
		})
	})

	Convey("Given a fetcher that returns items without display URLs", t, func() {
		ctx := context.Background()
		raw := gifs(3)
		raw[1].DisplayURL = ""
		raw[2].DisplayURL = ""
		f := &countingFetcher{items: raw}
		c := pool.New(f)

		Convey("When ensuring the pool", func() {
			items, err := c.Ensure(ctx, "dogs", model.RatingG)

			Convey("Then it fails with ErrInsufficientResults and caches nothing", func() {
				So(items, ShouldBeNil)
				So(errors.Is(err, pool.ErrInsufficientResults), ShouldBeTrue)
				So(c.Len(), ShouldEqual, 0)
			})

			Convey("And the next call fetches again", func() {
				_, _ = c.Ensure(ctx, "dogs", model.RatingG)
				So(int(f.calls.Load()), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a fetcher that filters down to exactly two", t, func() {
		raw := gifs(4)
		raw[0].DisplayURL = ""
		raw[3].DisplayURL = ""
		c := pool.New(&countingFetcher{items: raw})

		Convey("Then only usable items are cached", func() {
			items, err := c.Ensure(context.Background(), "owls", model.RatingPG13)
			So(err, ShouldBeNil)
			So(len(items), ShouldEqual, 2)
			So(items[0].ID, ShouldEqual, "g1")
			So(items[1].ID, ShouldEqual, "g2")
		})
	})

	Convey("Given a failing fetcher", t, func() {
		f := &countingFetcher{err: &model.UpstreamError{StatusCode: 503}}
		c := pool.New(f)

		Convey("Then the upstream error is wrapped and nothing is cached", func() {
			_, err := c.Ensure(context.Background(), "cats", model.RatingPG)
			So(errors.Is(err, model.ErrUpstream), ShouldBeTrue)
			So(c.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given a blank theme", t, func() {
		f := &countingFetcher{items: gifs(3)}
		c := pool.New(f)

		Convey("Then ErrEmptyTheme is returned without fetching", func() {
			_, err := c.Ensure(context.Background(), "   ", model.RatingPG)
			So(errors.Is(err, pool.ErrEmptyTheme), ShouldBeTrue)
			So(int(f.calls.Load()), ShouldEqual, 0)
		})
	})
}

func TestCache_ConcurrentMisses(t *testing.T) {
	Convey("Given a fetcher that blocks until released", t, func() {
		f := &countingFetcher{items: gifs(5), gate: make(chan struct{})}
		c := pool.New(f)

		Convey("When many goroutines miss on the same key", func() {
			const callers = 16
			var wg sync.WaitGroup
			errs := make(chan error, callers)
			started := make(chan struct{}, callers)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					started <- struct{}{}
					_, err := c.Ensure(context.Background(), "cats", model.RatingPG)
					errs <- err
				}()
			}
			for i := 0; i < callers; i++ {
				<-started
			}
			close(f.gate)
			wg.Wait()
			close(errs)

			Convey("Then all succeed off a single upstream fetch", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				So(int(f.calls.Load()), ShouldEqual, 1)
				So(c.Len(), ShouldEqual, 1)
			})
		})
	})
}

func TestCache_CallerCancellation(t *testing.T) {
	Convey("Given a fetch in flight for a caller that gives up", t, func() {
		f := &countingFetcher{items: gifs(4), gate: make(chan struct{})}
		c := pool.New(f)

		ctx, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := c.Ensure(ctx, "cats", model.RatingG)
			firstErr <- err
		}()
		for f.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()

		Convey("When another caller joins and the upstream answers", func() {
			err := <-firstErr
			second := make(chan error, 1)
			go func() {
				items, err := c.Ensure(context.Background(), "cats", model.RatingG)
				if err == nil && len(items) != 4 {
					err = fmt.Errorf("got %d items", len(items))
				}
				second <- err
			}()
			time.Sleep(20 * time.Millisecond)
			close(f.gate)

			Convey("Then only the cancelled caller fails and the pool is cached", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(<-second, ShouldBeNil)
				So(int(f.calls.Load()), ShouldEqual, 1)
				So(c.Len(), ShouldEqual, 1)
			})
		})
	})
}
