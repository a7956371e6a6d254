package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/shunya/internal/editor"
	"github.com/starford/shunya/internal/journal"
	"github.com/starford/shunya/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *journal.Service
	editor *editor.Editor
}

// NewHandler creates a new Handler.
func NewHandler(svc *journal.Service, ed *editor.Editor) *Handler {
	return &Handler{svc: svc, editor: ed}
}

// Meta handles GET /api/meta.
//
//	@Summary		List available moods and states
//	@Tags			meta
//	@Produce		json
//	@Success		200	{object}	MetaResponse
//	@Security		BearerAuth
//	@Router			/meta [get]
func (h *Handler) Meta(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MetaResponse{
		Moods:              models.Moods,
		States:             models.States,
		DictationAvailable: h.editor.Snapshot().DictationAvailable,
	})
}

// ListEntries handles GET /api/entries.
//
//	@Summary		List entries, newest first
//	@Tags			entries
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	EntryListResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total := h.svc.ListEntries(limit, offset)
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: items, Total: total})
}

// GetEntry handles GET /api/entries/{id}.
//
//	@Summary		Get a single entry
//	@Tags			entries
//	@Produce		json
//	@Param			id	path		string	true	"Entry id"
//	@Success		200	{object}	models.Entry
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEntry(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteEntry handles DELETE /api/entries/{id}.
//
//	@Summary		Delete an entry
//	@Tags			entries
//	@Param			id	path	string	true	"Entry id"
//	@Success		204	"Entry deleted (or was already absent)"
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteEntry(r.Context(), id); err != nil {
		writeError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditEntry handles POST /api/entries/{id}/edit.
//
//	@Summary		Load an entry into the draft for editing
//	@Tags			entries
//	@Produce		json
//	@Param			id	path		string	true	"Entry id"
//	@Success		200	{object}	Draft
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/edit [post]
func (h *Handler) EditEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEntry(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "edit entry", err)
		return
	}
	if err := h.editor.BeginEdit(e); err != nil {
		writeError(w, "edit entry", err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.Snapshot())
}

// EntryImage handles GET /api/entries/{id}/image.
//
//	@Summary		Get the image attached to an entry
//	@Tags			entries
//	@Produce		image/png,image/jpeg,image/gif,image/webp
//	@Param			id		path	string	true	"Entry id"
//	@Param			thumb	query	bool	false	"Return a thumbnail"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/image [get]
func (h *Handler) EntryImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	thumb, _ := strconv.ParseBool(r.URL.Query().Get("thumb"))
	data, mime, err := h.svc.Image(id, thumb)
	if err != nil {
		writeError(w, "entry image", err)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Debug("write image failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across entries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
