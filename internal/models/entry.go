// Package models defines the domain types for the journal.
package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/shunya/internal/apperr"
)

// PreviewLength is the number of runes shown for a collapsed entry.
const PreviewLength = 150

// Entry is one journal record. ID and CreatedAt are fixed at creation; edits
// only change the content fields.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
	Mood      Mood      `json:"mood"`
	States    []State   `json:"states"`
	Image     *Image    `json:"image,omitempty"`
}

// Image is an optional picture attached to an entry.
type Image struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
}

// Validate checks the invariants every saved entry must satisfy.
func (e *Entry) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.ID, validation.Required),
		validation.Field(&e.CreatedAt, validation.Required),
		validation.Field(&e.Text, validation.By(notBlank)),
		validation.Field(&e.Mood, validation.Required, validation.By(validMood)),
		validation.Field(&e.States, validation.By(uniqueStates)),
		validation.Field(&e.Image, validation.By(validImage)),
	)
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	out := e
	out.States = append([]State{}, e.States...)
	if e.Image != nil {
		img := *e.Image
		img.Data = append([]byte(nil), e.Image.Data...)
		out.Image = &img
	}
	return out
}

// Preview returns the collapsed form of the entry text.
func (e *Entry) Preview() string {
	if utf8.RuneCountInString(e.Text) <= PreviewLength {
		return e.Text
	}
	return string([]rune(e.Text)[:PreviewLength]) + "..."
}

// HasState reports whether s is among the entry's states.
func (e *Entry) HasState(s State) bool {
	for _, st := range e.States {
		if st == s {
			return true
		}
	}
	return false
}

func notBlank(v any) error {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func validMood(v any) error {
	m, _ := v.(Mood)
	if !m.Valid() {
		return apperr.ErrInvalidMood
	}
	return nil
}

func uniqueStates(v any) error {
	states, _ := v.([]State)
	seen := make(map[State]struct{}, len(states))
	for _, s := range states {
		if !s.Valid() {
			return apperr.ErrInvalidState
		}
		if _, dup := seen[s]; dup {
			return errors.New("duplicate state " + string(s))
		}
		seen[s] = struct{}{}
	}
	return nil
}

func validImage(v any) error {
	img, _ := v.(*Image)
	if img == nil {
		return nil
	}
	if len(img.Data) == 0 || img.MIMEType == "" {
		return apperr.ErrInvalidImage
	}
	return nil
}
