package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Defaults applied to zero Config fields.
const (
	DefaultBaseURL  = "http://localhost:8080"
	DefaultSessions = 50
	DefaultActions  = 40
	DefaultWorkers  = 8
	DefaultTimeout  = 30 * time.Second
)

// move is one applied vote as the client remembers it.
type move struct {
	voteType model.VoteType
	side     model.Side
}

// Run plays cfg.Sessions sessions against the server and verifies each one.
// It fails on the first transport error or inconsistent session.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	applyDefaults(cfg)
	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting duel simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("actions", cfg.Actions),
		logger.Int("workers", cfg.Workers),
		logger.String("theme", cfg.Theme),
		logger.Any("seed", cfg.Seed))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := 0; i < cfg.Sessions; i++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
		g.Go(func() error {
			local, err := playSession(gctx, c, cfg, rng)
			mu.Lock()
			stats.add(local)
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	if err != nil {
		return stats, err
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Sessions <= 0 {
		cfg.Sessions = DefaultSessions
	}
	if cfg.Actions <= 0 {
		cfg.Actions = DefaultActions
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
}

// playSession creates one session, plays its actions and checks the final
// state against the moves the server reported as applied.
func playSession(ctx context.Context, c *client, cfg *Config, rng *rand.Rand) (Stats, error) {
	var local Stats

	var body any
	if cfg.Theme != "" {
		body = map[string]string{"theme": cfg.Theme}
	}
	st, status, err := c.do(ctx, http.MethodPost, "/sessions", body)
	if err != nil {
		return local, fmt.Errorf("create session: %w", err)
	}
	local.SessionsPlayed++
	if status != http.StatusCreated {
		local.LoadErrors++
	}
	base := "/sessions/" + url.PathEscape(st.ID)

	var moves []move
	for a := 0; a < cfg.Actions; a++ {
		if rng.Float64() < cfg.UndoRate {
			res, _, err := c.do(ctx, http.MethodPost, base+"/undo", map[string]string{"request_id": uuid.NewString()})
			if err != nil {
				return local, err
			}
			if res.Applied {
				local.Undos++
				if len(moves) == 0 {
					return local, fmt.Errorf("session %s: undo applied with no votes", st.ID)
				}
				moves = moves[:len(moves)-1]
			}
			continue
		}

		m := move{voteType: model.VoteTypes[rng.Intn(len(model.VoteTypes))], side: model.Sides[rng.Intn(len(model.Sides))]}
		req := map[string]string{
			"vote_type":  string(m.voteType),
			"side":       string(m.side),
			"request_id": uuid.NewString(),
		}
		res, status, err := c.do(ctx, http.MethodPost, base+"/vote", req)
		if err != nil {
			return local, err
		}
		if status != http.StatusOK {
			local.LoadErrors++
		}
		if !res.Applied {
			local.VotesIgnored++
			continue
		}
		local.VotesApplied++
		moves = append(moves, m)

		if rng.Float64() < cfg.RetryRate {
			dup, _, err := c.do(ctx, http.MethodPost, base+"/vote", req)
			if err != nil {
				return local, err
			}
			if !dup.Duplicate || dup.Applied {
				return local, fmt.Errorf("session %s: retried request %s was not reported as duplicate", st.ID, req["request_id"])
			}
			local.Duplicates++
		}
	}

	final, _, err := c.do(ctx, http.MethodGet, base, nil)
	if err != nil {
		return local, err
	}
	if err := verifySession(final, moves); err != nil {
		return local, err
	}
	local.SessionsVerified++
	if cfg.Verbose {
		logger.Get().Info(ctx, "session verified",
			logger.String("session", final.ID),
			logger.Int("round", final.Round),
			logger.Int("votes", len(final.History)))
	}
	return local, nil
}

// displayFinalStats logs the run totals.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var votesPerSecond float64
	if stats.Duration > 0 {
		votesPerSecond = float64(stats.VotesApplied) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("sessionsPlayed", stats.SessionsPlayed),
		logger.Int("sessionsVerified", stats.SessionsVerified),
		logger.Int("votesApplied", stats.VotesApplied),
		logger.Int("votesIgnored", stats.VotesIgnored),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("undos", stats.Undos),
		logger.Int("loadErrors", stats.LoadErrors),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("votesPerSecond", votesPerSecond))
}
