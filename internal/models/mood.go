package models

import (
	"fmt"

	"github.com/starford/shunya/internal/apperr"
)

// Mood is the single overall feeling recorded with an entry.
type Mood string

const (
	MoodGood     Mood = "Good"
	MoodOkay     Mood = "Okay"
	MoodNotGreat Mood = "Not Great"
)

// Moods lists every mood in display order.
var Moods = []Mood{MoodGood, MoodOkay, MoodNotGreat}

// ParseMood converts s into a Mood. The empty string yields the zero Mood
// (no mood selected).
func ParseMood(s string) (Mood, error) {
	if s == "" {
		return "", nil
	}
	for _, m := range Moods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperr.ErrInvalidMood, s)
}

// Valid reports whether m is one of the enumerated moods.
func (m Mood) Valid() bool {
	for _, v := range Moods {
		if m == v {
			return true
		}
	}
	return false
}

func (m Mood) String() string { return string(m) }

// MarshalText implements encoding.TextMarshaler.
func (m Mood) MarshalText() ([]byte, error) { return []byte(m), nil }

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown moods.
func (m *Mood) UnmarshalText(b []byte) error {
	v, err := ParseMood(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// State is a tag describing a facet of the writer's current mental state.
type State string

const (
	StateFocus     State = "Focus"
	StateEnergy    State = "Energy"
	StateClarity   State = "Clarity"
	StateOverwhelm State = "Overwhelm"
)

// States lists every state tag in display order.
var States = []State{StateFocus, StateEnergy, StateClarity, StateOverwhelm}

// ParseState converts s into a State.
func ParseState(s string) (State, error) {
	for _, st := range States {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperr.ErrInvalidState, s)
}

// ParseStates converts every element of ss, dropping duplicates while
// keeping first-seen order.
func ParseStates(ss []string) ([]State, error) {
	out := make([]State, 0, len(ss))
	seen := make(map[State]struct{}, len(ss))
	for _, s := range ss {
		st, err := ParseState(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[st]; dup {
			continue
		}
		seen[st] = struct{}{}
		out = append(out, st)
	}
	return out, nil
}

// Valid reports whether s is one of the enumerated states.
func (s State) Valid() bool {
	for _, v := range States {
		if s == v {
			return true
		}
	}
	return false
}

func (s State) String() string { return string(s) }

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s), nil }

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown states.
func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
