package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/gifduel/internal/adapters/http/api"
	service "github.com/okian/gifduel/internal/app"
	"github.com/okian/gifduel/internal/domain/duel"
	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/internal/domain/pairing"
	"github.com/okian/gifduel/internal/domain/pool"
	"github.com/okian/gifduel/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// newServer runs the real API over a service whose pools hold size items.
func newServer(t *testing.T, size int) *httptest.Server {
	t.Helper()
	fetch := pool.FetcherFunc(func(_ context.Context, theme string, _ model.Rating) ([]model.Item, error) {
		out := make([]model.Item, size)
		for i := range out {
			out[i] = model.Item{ID: fmt.Sprintf("%s-%d", theme, i), Title: theme, DisplayURL: "https://media.test/x.gif"}
		}
		return out, nil
	})
	svc := service.New(
		service.WithFetcher(fetch),
		service.WithLogger(logger.Nop()),
		service.WithSource(pairing.NewSource(1)),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestRun(t *testing.T) {
	convey.Convey("Given a server with healthy pools", t, func() {
		srv := newServer(t, 6)

		convey.Convey("When many sessions vote, retry and undo concurrently", func() {
			stats, err := Run(context.Background(), &Config{
				BaseURL:   srv.URL,
				Sessions:  8,
				Actions:   30,
				Workers:   4,
				Theme:     "otters",
				UndoRate:  0.2,
				RetryRate: 0.3,
				Timeout:   5 * time.Second,
				Seed:      5,
			})

			convey.Convey("Then every session verifies", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.SessionsPlayed, convey.ShouldEqual, 8)
				convey.So(stats.SessionsVerified, convey.ShouldEqual, 8)
				convey.So(stats.VotesApplied, convey.ShouldBeGreaterThan, 0)
				convey.So(stats.VotesIgnored, convey.ShouldEqual, 0)
				convey.So(stats.LoadErrors, convey.ShouldEqual, 0)
				convey.So(stats.Duration, convey.ShouldBeGreaterThan, 0)
			})
		})
	})

	convey.Convey("Given a server whose pools are too small to pair", t, func() {
		srv := newServer(t, 1)

		convey.Convey("When sessions try to vote", func() {
			stats, err := Run(context.Background(), &Config{
				BaseURL:  srv.URL,
				Sessions: 3,
				Actions:  5,
				Workers:  2,
				Timeout:  5 * time.Second,
				Seed:     9,
			})

			convey.Convey("Then no vote applies and the empty sessions still verify", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.SessionsVerified, convey.ShouldEqual, 3)
				convey.So(stats.VotesApplied, convey.ShouldEqual, 0)
				convey.So(stats.VotesIgnored, convey.ShouldEqual, 15)
				convey.So(stats.LoadErrors, convey.ShouldEqual, 3)
			})
		})
	})

	convey.Convey("Given no server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		convey.Convey("Then the health check fails before any session starts", func() {
			stats, err := Run(context.Background(), &Config{BaseURL: url, Timeout: time.Second})
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "health check")
			convey.So(stats.SessionsPlayed, convey.ShouldEqual, 0)
		})
	})
}

func TestVerifySession(t *testing.T) {
	convey.Convey("Given a session with two votes", t, func() {
		st := sessionState{
			ID:    "s1",
			Round: 3,
			Score: duel.Score{Like: duel.Tally{Left: 1}, Funny: duel.Tally{Right: 1}},
			History: []model.VoteRecord{
				{Round: 2, VoteType: model.VoteFunny, WinnerSide: model.SideRight},
				{Round: 1, VoteType: model.VoteLike, WinnerSide: model.SideLeft},
			},
		}
		moves := []move{{voteType: model.VoteLike, side: model.SideLeft}, {voteType: model.VoteFunny, side: model.SideRight}}

		convey.Convey("Then it verifies against the moves in order", func() {
			convey.So(verifySession(st, moves), convey.ShouldBeNil)
		})

		convey.Convey("Then a score that does not match the history fails", func() {
			st.Score.Like.Left = 2
			convey.So(errors.Is(verifySession(st, moves), ErrInconsistent), convey.ShouldBeTrue)
		})

		convey.Convey("Then a round that does not follow the history fails", func() {
			st.Round = 2
			convey.So(errors.Is(verifySession(st, moves), ErrInconsistent), convey.ShouldBeTrue)
		})

		convey.Convey("Then a lost vote fails", func() {
			convey.So(errors.Is(verifySession(st, moves[:1]), ErrInconsistent), convey.ShouldBeTrue)
		})

		convey.Convey("Then votes in the wrong order fail", func() {
			swapped := []move{moves[1], moves[0]}
			convey.So(errors.Is(verifySession(st, swapped), ErrInconsistent), convey.ShouldBeTrue)
		})
	})
}
