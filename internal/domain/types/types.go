// Package types contains the contracts shared by the session service and the
// HTTP API.
package types

import (
	"errors"

	"github.com/okian/gifduel/internal/domain/duel"
)

// Session lookup failures.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrSessionNotFound = errors.New("session not found")
)

// Result is the outcome of a vote or undo request.
type Result struct {
	State duel.State
	// Applied is false when the machine ignored the request.
	Applied bool
	// Duplicate is true when the request ID was already processed.
	Duplicate bool
}
