// Package apperr defines the error values shared across the journal packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrIncompleteDraft      = errors.New("draft needs a mood and non-empty text")
	ErrSaveInProgress       = errors.New("save already in progress")
	ErrInvalidMood          = errors.New("invalid mood")
	ErrInvalidState         = errors.New("invalid state")
	ErrInvalidImage         = errors.New("invalid image")
	ErrDictationUnavailable = errors.New("dictation is not available")
	ErrDictationFailed      = errors.New("dictation failed")
)

// StoreError reports a failed persistence operation. The in-memory state is
// left untouched when one is returned, so the caller may retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the operation may succeed.
func (e *StoreError) Retryable() bool { return true }

// IsRetryable reports whether err carries a retryable failure.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
