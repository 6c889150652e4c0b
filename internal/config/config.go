// Package config defines service configuration and its loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/gifduel/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// GiphyAPIKey is the search API credential. Empty is allowed at load
	// time; every fetch then fails with a missing-credential error.
	GiphyAPIKey string `koanf:"giphy_api_key"`

	// GiphyBaseURL points at the search API root.
	GiphyBaseURL string `koanf:"giphy_base_url"`

	// Rating is the content rating passed to the search API (g, pg, pg-13, r).
	Rating string `koanf:"rating"`

	// Language is the search language code, e.g. "en".
	Language string `koanf:"language"`

	// SearchLimit is how many results to request per pool fetch.
	SearchLimit int `koanf:"search_limit"`

	// DefaultTheme replaces blank themes.
	DefaultTheme string `koanf:"default_theme"`

	// FetchTimeoutMS bounds a single upstream request.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// FetchRatePerSec and FetchBurst throttle upstream requests.
	FetchRatePerSec float64 `koanf:"fetch_rate_per_sec"`
	FetchBurst      int     `koanf:"fetch_burst"`

	// DedupeSize bounds the request-id idempotency window.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxSessions caps live sessions; the oldest is evicted past the cap.
	// Zero or negative means unbounded.
	MaxSessions int `koanf:"max_sessions"`

	// SessionIdleTTLMS drops sessions untouched for this long. Zero disables.
	SessionIdleTTLMS int `koanf:"session_idle_ttl_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		GiphyBaseURL:     "https://api.giphy.com",
		Rating:           string(model.RatingPG),
		Language:         "en",
		SearchLimit:      25,
		DefaultTheme:     model.DefaultTheme,
		FetchTimeoutMS:   8000,
		FetchRatePerSec:  5,
		FetchBurst:       5,
		DedupeSize:       10_000,
		MaxSessions:      1_000,
		SessionIdleTTLMS: 3_600_000,
	}
}

// Validate checks the fields the service cannot run without.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.GiphyBaseURL) == "":
		return fmt.Errorf("%w: giphy_base_url must not be empty", ErrInvalidConfig)
	case c.SearchLimit < 2:
		return fmt.Errorf("%w: search_limit must be at least 2", ErrInvalidConfig)
	case c.FetchTimeoutMS <= 0:
		return fmt.Errorf("%w: fetch_timeout_ms must be positive", ErrInvalidConfig)
	case c.FetchRatePerSec <= 0 || c.FetchBurst <= 0:
		return fmt.Errorf("%w: fetch_rate_per_sec and fetch_burst must be positive", ErrInvalidConfig)
	case c.SessionIdleTTLMS < 0:
		return fmt.Errorf("%w: session_idle_ttl_ms must not be negative", ErrInvalidConfig)
	}
	if _, err := model.ParseRating(c.Rating); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
