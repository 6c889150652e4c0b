package service

import (
	"strings"
	"time"

	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/internal/domain/pairing"
	"github.com/okian/gifduel/internal/domain/pool"
	"github.com/okian/gifduel/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFetcher sets the upstream fetcher behind the shared pool cache.
func WithFetcher(f pool.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithRating sets the content rating used for every session.
func WithRating(r model.Rating) Option {
	return func(s *Service) {
		if r != "" {
			s.rating = r
		}
	}
}

// WithDefaultTheme sets the theme used for blank theme input.
func WithDefaultTheme(theme string) Option {
	return func(s *Service) {
		if t := strings.TrimSpace(theme); t != "" {
			s.defaultTheme = t
		}
	}
}

// WithDedupeSize sets how many request IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxSessions caps live sessions. A value <= 0 means unbounded.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		s.maxSessions = n
	}
}

// WithSessionIdleTTL sets how long an untouched session lives. A value <= 0
// disables pruning.
func WithSessionIdleTTL(d time.Duration) Option {
	return func(s *Service) {
		s.idleTTL = d
	}
}

// WithSource sets the random source shared by session pairing.
func WithSource(src pairing.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides session ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
