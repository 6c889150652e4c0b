package service

import (
	"errors"

	"github.com/okian/gifduel/internal/domain/types"
)

var (
	// ErrNotStarted is returned by session operations before Start or after Stop.
	ErrNotStarted = types.ErrNotStarted

	// ErrSessionNotFound is returned for unknown or evicted session IDs.
	ErrSessionNotFound = types.ErrSessionNotFound

	// ErrNoFetcher is returned by Start when no pool fetcher was configured.
	ErrNoFetcher = errors.New("no pool fetcher configured")
)
