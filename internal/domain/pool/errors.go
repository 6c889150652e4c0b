package pool

import "github.com/okian/gifduel/internal/domain/model"

// Re-exported so callers of this package need not import model for errors.Is.
var (
	ErrEmptyTheme          = model.ErrEmptyTheme
	ErrInsufficientResults = model.ErrInsufficientResults
)
