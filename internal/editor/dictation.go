package editor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/shunya/internal/apperr"
)

// transcriptHandler ties callbacks to the session generation that started
// them, so late events from a stopped session are ignored.
type transcriptHandler struct {
	e   *Editor
	gen uint64
}

func (h transcriptHandler) Transcript(text string) { h.e.appendTranscript(h.gen, text) }
func (h transcriptHandler) Failure(err error)      { h.e.dictationFailed(h.gen, err) }

// StartDictation begins appending recognised speech to the draft text. The
// session outlives ctx's cancellation; call StopDictation or Close to end
// it. Failures leave recording off.
func (e *Editor) StartDictation(ctx context.Context) error {
	e.mu.Lock()
	if e.recording {
		e.mu.Unlock()
		return nil
	}
	capability := e.dictation
	if capability == nil || !capability.Available() {
		e.mu.Unlock()
		return apperr.ErrDictationUnavailable
	}
	e.dictationGen++
	gen := e.dictationGen
	e.mu.Unlock()

	session, err := capability.Start(context.WithoutCancel(ctx), transcriptHandler{e: e, gen: gen})
	if err != nil {
		e.logger.Warn("editor: dictation start failed", slog.String("error", err.Error()))
		e.mu.Lock()
		e.recording = false
		e.mu.Unlock()
		e.changed()
		return fmt.Errorf("editor: start dictation: %w", err)
	}

	e.mu.Lock()
	if e.dictationGen != gen {
		// Stopped or failed while starting.
		e.mu.Unlock()
		_ = session.Stop()
		return nil
	}
	e.recording = true
	e.session = session
	e.mu.Unlock()
	e.changed()
	return nil
}

// StopDictation ends the active dictation session, if any.
func (e *Editor) StopDictation() {
	e.mu.Lock()
	session := e.session
	wasRecording := e.recording
	e.session = nil
	e.recording = false
	e.dictationGen++
	e.mu.Unlock()

	if session != nil {
		if err := session.Stop(); err != nil {
			e.logger.Warn("editor: dictation stop failed", slog.String("error", err.Error()))
		}
	}
	if wasRecording {
		e.changed()
	}
}

// ToggleDictation starts dictation when idle and stops it when recording.
// It reports whether dictation is running afterwards.
func (e *Editor) ToggleDictation(ctx context.Context) (bool, error) {
	if e.Snapshot().Recording {
		e.StopDictation()
		return false, nil
	}
	if err := e.StartDictation(ctx); err != nil {
		return false, err
	}
	return e.Snapshot().Recording, nil
}

// Close stops dictation. The editor must not be used afterwards.
func (e *Editor) Close() {
	e.StopDictation()
}

func (e *Editor) appendTranscript(gen uint64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	e.mu.Lock()
	if gen != e.dictationGen {
		e.mu.Unlock()
		return
	}
	if e.saving {
		e.heldTranscript = append(e.heldTranscript, text)
		e.mu.Unlock()
		return
	}
	e.appendTextLocked(text)
	e.mu.Unlock()
	e.changed()
}

// appendTextLocked joins a transcript fragment onto the draft text.
func (e *Editor) appendTextLocked(text string) {
	if e.text == "" || strings.HasSuffix(e.text, " ") || strings.HasSuffix(e.text, "\n") {
		e.text += text
	} else {
		e.text += " " + text
	}
}

func (e *Editor) dictationFailed(gen uint64, err error) {
	e.mu.Lock()
	if gen != e.dictationGen {
		e.mu.Unlock()
		return
	}
	e.recording = false
	e.session = nil
	e.dictationGen++
	e.mu.Unlock()

	e.logger.Warn("editor: dictation failed", slog.String("error", err.Error()))
	e.changed()
}
