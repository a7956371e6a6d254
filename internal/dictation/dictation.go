// Package dictation abstracts the speech-to-text capability used by the
// editor. The capability is chosen once at startup: either Unavailable or a
// Command that streams transcript lines from an external recogniser.
package dictation

import (
	"context"

	"github.com/starford/shunya/internal/apperr"
)

// Handler receives events from an active dictation session. Calls may come
// from any goroutine.
type Handler interface {
	// Transcript delivers an incremental piece of recognised text.
	Transcript(text string)
	// Failure reports that the session stopped because of an error.
	Failure(err error)
}

// Session is a running dictation.
type Session interface {
	// Stop ends the session. After Stop returns no further events are delivered.
	Stop() error
}

// Capability starts dictation sessions.
type Capability interface {
	Available() bool
	Start(ctx context.Context, h Handler) (Session, error)
}

// Unavailable is the capability used when the host has no recogniser.
type Unavailable struct{}

// Available always reports false.
func (Unavailable) Available() bool { return false }

// Start always fails with apperr.ErrDictationUnavailable.
func (Unavailable) Start(context.Context, Handler) (Session, error) {
	return nil, apperr.ErrDictationUnavailable
}

// New selects the capability for the given command line. An empty name
// yields Unavailable.
func New(name string, args ...string) Capability {
	if name == "" {
		return Unavailable{}
	}
	return &Command{Name: name, Args: args}
}
