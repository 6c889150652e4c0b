package model

import (
	"errors"
	"fmt"
)

// Sentinel parse errors.
var (
	ErrInvalidVoteType = errors.New("invalid vote type")
	ErrInvalidSide     = errors.New("invalid side")
	ErrInvalidRating   = errors.New("invalid rating")
)

// Load failure kinds. Every one is recoverable by retrying the load or
// changing the theme.
var (
	ErrMissingCredential   = errors.New("missing API credential")
	ErrUpstream            = errors.New("upstream search failed")
	ErrInsufficientResults = errors.New("not enough results to form a pair")
	ErrEmptyTheme          = errors.New("theme is empty")
)

// UpstreamError carries the status of a non-success search response.
// It matches ErrUpstream with errors.Is.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", ErrUpstream, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrUpstream, e.StatusCode, e.Message)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// UserMessage renders a load failure for display.
func UserMessage(err error) string {
	var up *UpstreamError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return "No GIF search API key is configured."
	case errors.As(err, &up):
		return fmt.Sprintf("The GIF search service returned an error (HTTP %d). Try again.", up.StatusCode)
	case errors.Is(err, ErrUpstream):
		return "The GIF search service could not be reached. Try again."
	case errors.Is(err, ErrInsufficientResults):
		return "Not enough GIFs found for this theme. Try another theme."
	case errors.Is(err, ErrEmptyTheme):
		return "Enter a theme to search for."
	default:
		return "Something went wrong loading the next pair. Try again."
	}
}

// ErrorCode maps a load failure to a stable machine-readable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	case errors.Is(err, ErrInsufficientResults):
		return "insufficient_results"
	case errors.Is(err, ErrEmptyTheme):
		return "empty_theme"
	default:
		return "internal_error"
	}
}
