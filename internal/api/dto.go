package api

import (
	"github.com/starford/shunya/internal/editor"
	"github.com/starford/shunya/internal/journal"
	"github.com/starford/shunya/internal/models"
	"github.com/starford/shunya/internal/store"
)

// Draft is the editor snapshot returned by draft endpoints.
type Draft = editor.Draft

// EntryListItem is a lightweight item in a list response (aliased from the domain layer).
type EntryListItem = journal.EntryListItem

// EntryListResponse wraps paginated entry listings.
type EntryListResponse struct {
	Entries []EntryListItem `json:"entries" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = store.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// MetaResponse lists the choices offered by the editor.
type MetaResponse struct {
	Moods              []models.Mood  `json:"moods" validate:"required"`
	States             []models.State `json:"states" validate:"required"`
	DictationAvailable bool           `json:"dictation_available"`
}

// UpdateDraftRequest is the body of PATCH /api/draft. Absent fields are left
// unchanged; an empty mood clears the selection.
type UpdateDraftRequest struct {
	Text   *string   `json:"text,omitempty" example:"Slept well."`
	Mood   *string   `json:"mood,omitempty" example:"Good"`
	States *[]string `json:"states,omitempty" example:"Focus,Clarity"`
}

// AttachImageRequest is the JSON body of PUT /api/draft/image.
type AttachImageRequest struct {
	DataURI string  `json:"data_uri" example:"data:image/png;base64,iVBORw0..." validate:"required"`
	Caption *string `json:"caption,omitempty" example:"Morning light"`
}

// CaptionRequest is the body of PUT /api/draft/image/caption.
type CaptionRequest struct {
	Caption string `json:"caption" example:"Morning light"`
}

// SaveResponse is returned after the draft has been saved.
type SaveResponse struct {
	Entry   models.Entry `json:"entry" validate:"required"`
	Created bool         `json:"created"`
}

// DictationResponse reports the recording state after a toggle.
type DictationResponse struct {
	Recording bool `json:"recording"`
}
