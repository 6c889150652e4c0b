package api

import (
	"errors"
	"net/http"

	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/internal/domain/types"
)

// ErrBadRequest marks request bodies or parameters that fail validation.
var ErrBadRequest = errors.New("bad request")

// lookupStatus maps session lookup failures. ok is false for any other error.
func lookupStatus(err error) (status int, code string, ok bool) {
	switch {
	case errors.Is(err, types.ErrSessionNotFound):
		return http.StatusNotFound, "not_found", true
	case errors.Is(err, types.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_ready", true
	default:
		return 0, "", false
	}
}

// loadStatus maps a failed pair load. The response body is still the session
// state, whose error fields describe the failure.
func loadStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrMissingCredential):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrInsufficientResults), errors.Is(err, model.ErrEmptyTheme):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
