// Package journal exposes entry operations shared by the HTTP API, the MCP
// server and the command line.
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/attachment"
	"github.com/starford/shunya/internal/collection"
	"github.com/starford/shunya/internal/models"
	"github.com/starford/shunya/internal/store"
)

// EntryListItem is a lightweight item in a list response.
type EntryListItem struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Mood      models.Mood    `json:"mood"`
	States    []models.State `json:"states"`
	Preview   string         `json:"preview"`
	HasImage  bool           `json:"has_image"`
	Caption   string         `json:"caption,omitempty"`
}

// NewEntry describes an entry created outside the editor.
type NewEntry struct {
	Text     string
	Mood     string
	States   []string
	ImageURI string
	Caption  string
}

// Service coordinates the collection manager and the store.
type Service struct {
	entries   *collection.Manager
	store     store.EntryStore
	maxImage  int64
	thumbSize int
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithImageLimits sets the maximum accepted image size and thumbnail edge.
func WithImageLimits(maxBytes int64, thumbSize int) Option {
	return func(s *Service) {
		s.maxImage = maxBytes
		s.thumbSize = thumbSize
	}
}

// WithClock overrides the source of creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new journal service.
func NewService(entries *collection.Manager, st store.EntryStore, opts ...Option) *Service {
	s := &Service{
		entries:   entries,
		store:     st,
		maxImage:  attachment.DefaultMaxBytes,
		thumbSize: 320,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entries returns the collection manager backing the service.
func (s *Service) Entries() *collection.Manager { return s.entries }

// MaxImageBytes is the configured upload limit.
func (s *Service) MaxImageBytes() int64 { return s.maxImage }

// ListEntries returns a page of entries, newest first, and the total count.
// limit <= 0 returns every entry from offset on.
func (s *Service) ListEntries(limit, offset int) ([]EntryListItem, int) {
	all := s.entries.List()
	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	items := make([]EntryListItem, 0, end-offset)
	for _, e := range all[offset:end] {
		items = append(items, Summarize(e))
	}
	return items, total
}

// Summarize builds the list representation of e.
func Summarize(e models.Entry) EntryListItem {
	it := EntryListItem{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		Mood:      e.Mood,
		States:    e.States,
		Preview:   e.Preview(),
		HasImage:  e.Image != nil,
	}
	if it.States == nil {
		it.States = []models.State{}
	}
	if e.Image != nil {
		it.Caption = e.Image.Caption
	}
	return it
}

// GetEntry returns the entry with the given id or apperr.ErrNotFound.
func (s *Service) GetEntry(id string) (models.Entry, error) {
	e, ok := s.entries.Get(id)
	if !ok {
		return models.Entry{}, apperr.ErrNotFound
	}
	return e, nil
}

// CreateEntry validates and saves a finished entry in one step.
func (s *Service) CreateEntry(ctx context.Context, in NewEntry) (models.Entry, error) {
	if strings.TrimSpace(in.Text) == "" {
		return models.Entry{}, fmt.Errorf("%w: text is required", apperr.ErrIncompleteDraft)
	}
	mood, err := models.ParseMood(in.Mood)
	if err != nil {
		return models.Entry{}, err
	}
	if mood == "" {
		return models.Entry{}, fmt.Errorf("%w: mood is required", apperr.ErrIncompleteDraft)
	}
	states, err := models.ParseStates(in.States)
	if err != nil {
		return models.Entry{}, err
	}

	e := models.Entry{
		ID:        s.newID(),
		CreatedAt: s.now().UTC(),
		Text:      in.Text,
		Mood:      mood,
		States:    states,
	}
	if in.ImageURI != "" {
		img, err := attachment.DecodeDataURI(in.ImageURI, s.maxImage)
		if err != nil {
			return models.Entry{}, err
		}
		img.Caption = strings.TrimSpace(in.Caption)
		e.Image = &img
	}
	if _, err := s.entries.Save(ctx, e); err != nil {
		return models.Entry{}, err
	}
	return e, nil
}

// DeleteEntry removes an entry. Deleting an absent id is not an error.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	return s.entries.Delete(ctx, id)
}

// AttachImage decodes dataURI and makes it the image of an existing entry.
func (s *Service) AttachImage(ctx context.Context, id, dataURI, caption string) (models.Entry, error) {
	if _, err := s.GetEntry(id); err != nil {
		return models.Entry{}, err
	}
	img, err := attachment.DecodeDataURI(dataURI, s.maxImage)
	if err != nil {
		return models.Entry{}, err
	}
	img.Caption = caption
	return s.SetImage(ctx, id, img)
}

// SetImage replaces the image of an existing entry. The caption is trimmed.
func (s *Service) SetImage(ctx context.Context, id string, img models.Image) (models.Entry, error) {
	e, err := s.GetEntry(id)
	if err != nil {
		return models.Entry{}, err
	}
	if _, err := attachment.Sniff(img.Data); err != nil {
		return models.Entry{}, err
	}
	img.Caption = strings.TrimSpace(img.Caption)
	e.Image = &img
	if _, err := s.entries.Save(ctx, e); err != nil {
		return models.Entry{}, err
	}
	return e, nil
}

// Image returns the image bytes of an entry, or a thumbnail when thumb is set.
func (s *Service) Image(id string, thumb bool) ([]byte, string, error) {
	e, err := s.GetEntry(id)
	if err != nil {
		return nil, "", err
	}
	if e.Image == nil {
		return nil, "", fmt.Errorf("entry %s has no image: %w", id, apperr.ErrNotFound)
	}
	if !thumb {
		return e.Image.Data, e.Image.MIMEType, nil
	}
	return attachment.Thumbnail(*e.Image, s.thumbSize)
}

// Search runs a full-text query against the store.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]store.SearchResult, error) {
	return s.store.Search(ctx, q, limit)
}

// Import saves every entry, keeping ids and creation times. It returns the
// number of entries that were not present before.
func (s *Service) Import(ctx context.Context, entries []models.Entry) (int, error) {
	created := 0
	for _, e := range entries {
		isNew, err := s.entries.Save(ctx, e)
		if err != nil {
			return created, fmt.Errorf("import %s: %w", e.ID, err)
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

// Ready reports whether the store answers queries.
func (s *Service) Ready(ctx context.Context) error {
	_, err := s.store.Count(ctx)
	return err
}
