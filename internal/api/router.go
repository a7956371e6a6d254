package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/shunya/internal/editor"
	"github.com/starford/shunya/internal/journal"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *journal.Service, ed *editor.Editor, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, ed)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/meta", h.Meta)

	// Entries.
	r.Get("/entries", h.ListEntries)
	r.Get("/entries/{id}", h.GetEntry)
	r.Delete("/entries/{id}", h.DeleteEntry)
	r.Post("/entries/{id}/edit", h.EditEntry)
	r.Get("/entries/{id}/image", h.EntryImage)

	// Search.
	r.Get("/search", h.Search)

	// Draft.
	r.Route("/draft", func(r chi.Router) {
		r.Get("/", h.GetDraft)
		r.Patch("/", h.UpdateDraft)
		r.Post("/states/{state}", h.ToggleState)
		r.Put("/image", h.AttachImage)
		r.Delete("/image", h.ClearImage)
		r.Put("/image/caption", h.SetCaption)
		r.Post("/image/skip", h.SkipCaption)
		r.Post("/save", h.SaveDraft)
		r.Post("/cancel", h.CancelDraft)
		r.Post("/dictation", h.ToggleDictation)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
