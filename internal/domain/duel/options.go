package duel

import (
	"strings"
	"time"

	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/internal/domain/pairing"
	"github.com/okian/gifduel/pkg/logger"
)

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithRating sets the content rating used for pool lookups.
func WithRating(r model.Rating) Option {
	return func(m *Machine) {
		if r != "" {
			m.rating = r
		}
	}
}

// WithDefaultTheme sets the theme that replaces blank input.
func WithDefaultTheme(theme string) Option {
	return func(m *Machine) {
		if t := strings.TrimSpace(theme); t != "" {
			m.defaultTheme = t
		}
	}
}

// WithSource sets the random source used for pairing.
func WithSource(src pairing.Source) Option {
	return func(m *Machine) {
		if src != nil {
			m.rng = src
		}
	}
}

// WithClock overrides the clock stamped on vote records.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the machine logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}
