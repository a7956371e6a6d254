// Package editor holds the single in-progress journal entry (the draft) and
// turns it into a finalized entry on save.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/dictation"
	"github.com/starford/shunya/internal/models"
)

// Sink receives finalized entries. The collection manager implements it.
// Update must fail with apperr.ErrNotFound when the entry no longer exists.
type Sink interface {
	Save(ctx context.Context, e models.Entry) (created bool, err error)
	Update(ctx context.Context, e models.Entry) error
}

// Draft is a read-only snapshot of the editor state.
type Draft struct {
	Text               string         `json:"text"`
	Mood               models.Mood    `json:"mood,omitempty"`
	States             []models.State `json:"states"`
	Image              *models.Image  `json:"image,omitempty"`
	ImagePending       bool           `json:"image_pending"`
	EditingID          string         `json:"editing_id,omitempty"`
	Saving             bool           `json:"saving"`
	Recording          bool           `json:"recording"`
	DictationAvailable bool           `json:"dictation_available"`
}

// CanSave reports whether the draft satisfies the save preconditions.
func (d Draft) CanSave() bool {
	return d.Mood != "" && strings.TrimSpace(d.Text) != "" && !d.Saving
}

// Option configures an Editor.
type Option func(*Editor)

// WithProcessingDelay sets the fixed pause applied before every save.
func WithProcessingDelay(d time.Duration) Option {
	return func(e *Editor) { e.delay = d }
}

// WithDictation injects the dictation capability.
func WithDictation(c dictation.Capability) Option {
	return func(e *Editor) { e.dictation = c }
}

// WithClock overrides the source of creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// WithIDGenerator overrides the source of entry ids.
func WithIDGenerator(fn func() string) Option {
	return func(e *Editor) { e.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// Editor is safe for concurrent use. Change notifications are delivered
// outside the lock.
type Editor struct {
	sink      Sink
	dictation dictation.Capability
	delay     time.Duration
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger

	mu           sync.Mutex
	text         string
	mood         models.Mood
	states       []models.State
	image        *models.Image
	imagePending bool
	editing      *models.Entry
	saving       bool
	recording    bool
	session      dictation.Session
	// heldTranscript collects fragments that arrive while a save is running.
	heldTranscript []string
	dictationGen   uint64
	onChange       func(Draft)
}

// New creates an Editor that emits saved entries to sink.
func New(sink Sink, opts ...Option) *Editor {
	e := &Editor{
		sink:      sink,
		dictation: dictation.Unavailable{},
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnChange registers fn to receive a snapshot after every draft change.
func (e *Editor) OnChange(fn func(Draft)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// Snapshot returns the current draft.
func (e *Editor) Snapshot() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Patch lists the draft fields to change. Nil fields are left alone.
type Patch struct {
	Text   *string
	Mood   *models.Mood
	States *[]models.State
}

// Apply validates every field of p and then changes them together.
func (e *Editor) Apply(p Patch) error {
	if p.Mood != nil && *p.Mood != "" && !p.Mood.Valid() {
		return fmt.Errorf("%w: %q", apperr.ErrInvalidMood, *p.Mood)
	}
	var states []models.State
	if p.States != nil {
		var err error
		if states, err = dedupeStates(*p.States); err != nil {
			return err
		}
	}
	return e.mutate(func() error {
		if p.Text != nil {
			e.text = *p.Text
		}
		if p.Mood != nil {
			e.mood = *p.Mood
		}
		if p.States != nil {
			e.states = states
		}
		return nil
	})
}

// SetText replaces the draft text.
func (e *Editor) SetText(text string) error {
	return e.Apply(Patch{Text: &text})
}

// SetMood selects the draft mood. The zero Mood clears the selection.
func (e *Editor) SetMood(m models.Mood) error {
	return e.Apply(Patch{Mood: &m})
}

// SetStates replaces the draft state tags. Duplicates are dropped.
func (e *Editor) SetStates(states []models.State) error {
	return e.Apply(Patch{States: &states})
}

// ToggleState adds s to the draft states if absent and removes it if present.
// The order of the other states is preserved.
func (e *Editor) ToggleState(s models.State) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", apperr.ErrInvalidState, s)
	}
	return e.mutate(func() error {
		if i := slices.Index(e.states, s); i >= 0 {
			e.states = slices.Delete(slices.Clone(e.states), i, i+1)
			return nil
		}
		e.states = append(slices.Clone(e.states), s)
		return nil
	})
}

// AttachImage replaces the draft image. The new image has an empty caption
// and stays pending until SetCaption or SkipCaption is called.
func (e *Editor) AttachImage(img models.Image) error {
	if len(img.Data) == 0 || img.MIMEType == "" {
		return apperr.ErrInvalidImage
	}
	img.Data = slices.Clone(img.Data)
	img.Caption = ""
	return e.mutate(func() error {
		e.image = &img
		e.imagePending = true
		return nil
	})
}

// SetCaption confirms the draft image with the given caption, which may be empty.
func (e *Editor) SetCaption(caption string) error {
	return e.mutate(func() error {
		if e.image == nil {
			return fmt.Errorf("%w: no image attached", apperr.ErrInvalidImage)
		}
		img := *e.image
		img.Caption = caption
		e.image = &img
		e.imagePending = false
		return nil
	})
}

// SkipCaption declines the caption step. A pending image without a caption
// is discarded; a confirmed image is left as is.
func (e *Editor) SkipCaption() error {
	return e.mutate(func() error {
		if e.imagePending && e.image != nil && e.image.Caption == "" {
			e.image = nil
		}
		e.imagePending = false
		return nil
	})
}

// ClearImage removes the draft image.
func (e *Editor) ClearImage() error {
	return e.mutate(func() error {
		e.image = nil
		e.imagePending = false
		return nil
	})
}

// BeginEdit loads entry into the draft. The next successful Save updates
// entry instead of creating a new one.
func (e *Editor) BeginEdit(entry models.Entry) error {
	return e.mutate(func() error {
		c := entry.Clone()
		e.editing = &c
		e.text = c.Text
		e.mood = c.Mood
		e.states = slices.Clone(c.States)
		e.image = nil
		if c.Image != nil {
			img := *c.Image
			e.image = &img
		}
		e.imagePending = false
		return nil
	})
}

// CancelEdit discards the draft and leaves edit mode without saving.
func (e *Editor) CancelEdit() error {
	return e.mutate(func() error {
		e.resetLocked()
		return nil
	})
}

// Save finalizes the draft and emits it to the sink. It returns
// apperr.ErrIncompleteDraft, leaving the draft untouched, unless a mood is
// set and the trimmed text is non-empty, and apperr.ErrSaveInProgress while
// another save is running. The draft is read-only until Save returns and
// the processing delay cannot be cancelled. If the sink fails the draft is
// kept so the save can be retried. If the edited entry was deleted in the
// meantime Save returns apperr.ErrNotFound and leaves edit mode, keeping the
// content so it can be saved as a new entry.
func (e *Editor) Save(ctx context.Context) (models.Entry, bool, error) {
	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return models.Entry{}, false, apperr.ErrSaveInProgress
	}
	if e.mood == "" || strings.TrimSpace(e.text) == "" {
		e.mu.Unlock()
		return models.Entry{}, false, apperr.ErrIncompleteDraft
	}
	entry := models.Entry{
		Text:   e.text,
		Mood:   e.mood,
		States: slices.Clone(e.states),
	}
	if entry.States == nil {
		entry.States = []models.State{}
	}
	if e.image != nil {
		img := *e.image
		entry.Image = &img
	}
	editing := e.editing
	e.saving = true
	e.mu.Unlock()
	e.changed()

	if e.delay > 0 {
		time.Sleep(e.delay)
	}

	if editing != nil {
		entry.ID = editing.ID
		entry.CreatedAt = editing.CreatedAt
	} else {
		entry.ID = e.newID()
		entry.CreatedAt = e.now().UTC()
	}

	var (
		created bool
		err     error
	)
	if editing != nil {
		err = e.sink.Update(ctx, entry)
	} else {
		created, err = e.sink.Save(ctx, entry)
	}

	e.mu.Lock()
	e.saving = false
	switch {
	case err == nil:
		e.resetLocked()
	case errors.Is(err, apperr.ErrNotFound):
		e.editing = nil
	}
	for _, text := range e.heldTranscript {
		e.appendTextLocked(text)
	}
	e.heldTranscript = nil
	e.mu.Unlock()
	e.changed()

	if err != nil {
		e.logger.Warn("editor: save failed", slog.String("id", entry.ID), slog.String("error", err.Error()))
		return models.Entry{}, false, err
	}
	e.logger.Debug("editor: saved", slog.String("id", entry.ID), slog.Bool("created", created))
	return entry, created, nil
}

// resetLocked clears the draft and leaves edit mode. Dictation keeps running.
func (e *Editor) resetLocked() {
	e.text = ""
	e.mood = ""
	e.states = nil
	e.image = nil
	e.imagePending = false
	e.editing = nil
}

func (e *Editor) snapshotLocked() Draft {
	d := Draft{
		Text:               e.text,
		Mood:               e.mood,
		States:             slices.Clone(e.states),
		ImagePending:       e.imagePending,
		Saving:             e.saving,
		Recording:          e.recording,
		DictationAvailable: e.dictation != nil && e.dictation.Available(),
	}
	if d.States == nil {
		d.States = []models.State{}
	}
	if e.image != nil {
		img := *e.image
		d.Image = &img
	}
	if e.editing != nil {
		d.EditingID = e.editing.ID
	}
	return d
}

// mutate runs fn under the lock unless a save is running.
func (e *Editor) mutate(fn func() error) error {
	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return apperr.ErrSaveInProgress
	}
	err := fn()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.changed()
	return nil
}

func dedupeStates(states []models.State) ([]models.State, error) {
	out := make([]models.State, 0, len(states))
	for _, s := range states {
		if !s.Valid() {
			return nil, fmt.Errorf("%w: %q", apperr.ErrInvalidState, s)
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (e *Editor) changed() {
	e.mu.Lock()
	fn := e.onChange
	var d Draft
	if fn != nil {
		d = e.snapshotLocked()
	}
	e.mu.Unlock()
	if fn != nil {
		fn(d)
	}
}
