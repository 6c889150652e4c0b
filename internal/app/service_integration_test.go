package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/gifduel/internal/adapters/giphy"
	service "github.com/okian/gifduel/internal/app"
	"github.com/okian/gifduel/internal/domain/duel"
	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// searchServer answers every query with n results titled after the query.
func searchServer(n int, hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[`)
		for i := 0; i < n; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"id":"%s-%d","title":"%s","images":{"fixed_width":{"url":"https://media.test/%s/%d.gif"}}}`, q, i, q, q, i)
		}
		fmt.Fprint(w, `]}`)
	}))
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service backed by the search client", t, func() {
		var hits atomic.Int32
		srv := searchServer(6, &hits)
		defer srv.Close()

		client := giphy.NewClient("key",
			giphy.WithBaseURL(srv.URL),
			giphy.WithTimeout(2*time.Second),
			giphy.WithRateLimit(100, 10),
		)
		svc := service.New(
			service.WithFetcher(giphy.NewFetcher(client, 25, "en")),
			service.WithLogger(logger.Nop()),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When playing a full session", func() {
			id, st, err := svc.CreateSession(ctx, "cats")
			So(err, ShouldBeNil)
			So(st.PoolCount, ShouldEqual, 6)

			for i := 0; i < 3; i++ {
				res, err := svc.Vote(ctx, id, model.VoteLike, model.SideLeft, fmt.Sprintf("r-%d", i))
				So(err, ShouldBeNil)
				So(res.Applied, ShouldBeTrue)
			}
			undone, err := svc.Undo(ctx, id, "")
			So(err, ShouldBeNil)

			Convey("Then the tally matches the history and the pool was fetched once", func() {
				s := undone.State
				So(s.Score.Like.Left, ShouldEqual, 2)
				So(len(s.History), ShouldEqual, 2)
				So(s.Round, ShouldEqual, 3)
				So(s.Score, ShouldResemble, duel.TallyHistory(s.History))
				So(int(hits.Load()), ShouldEqual, 1)
			})
		})

		Convey("When sessions on the same theme run side by side", func() {
			a, _, errA := svc.CreateSession(ctx, "dogs")
			b, _, errB := svc.CreateSession(ctx, "dogs")

			Convey("Then they share one cached pool", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldNotEqual, b)
				So(int(hits.Load()), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a search API that returns a single result", t, func() {
		var hits atomic.Int32
		srv := searchServer(1, &hits)
		defer srv.Close()

		svc := service.New(
			service.WithFetcher(giphy.NewFetcher(giphy.NewClient("key", giphy.WithBaseURL(srv.URL)), 25, "en")),
			service.WithLogger(logger.Nop()),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When creating a session", func() {
			_, st, err := svc.CreateSession(context.Background(), "rare")

			Convey("Then it errors with insufficient results", func() {
				So(errors.Is(err, model.ErrInsufficientResults), ShouldBeTrue)
				So(st.Phase, ShouldEqual, duel.PhaseErrored)
				So(st.ErrorCode, ShouldEqual, "insufficient_results")
			})
		})
	})
}
