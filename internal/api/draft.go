package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/shunya/internal/attachment"
	"github.com/starford/shunya/internal/editor"
	"github.com/starford/shunya/internal/models"
)

// GetDraft handles GET /api/draft.
//
//	@Summary		Get the current draft
//	@Tags			draft
//	@Produce		json
//	@Success		200	{object}	Draft
//	@Security		BearerAuth
//	@Router			/draft [get]
func (h *Handler) GetDraft(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.editor.Snapshot())
}

// UpdateDraft handles PATCH /api/draft.
//
//	@Summary		Change draft text, mood or states
//	@Tags			draft
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateDraftRequest	true	"Fields to change"
//	@Success		200		{object}	Draft
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft [patch]
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req UpdateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	// Validate everything before touching the draft.
	patch := editor.Patch{Text: req.Text}
	if req.Mood != nil {
		mood, err := models.ParseMood(*req.Mood)
		if err != nil {
			writeError(w, "update draft", err)
			return
		}
		patch.Mood = &mood
	}
	if req.States != nil {
		states, err := models.ParseStates(*req.States)
		if err != nil {
			writeError(w, "update draft", err)
			return
		}
		patch.States = &states
	}

	if err := h.editor.Apply(patch); err != nil {
		writeError(w, "update draft", err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.Snapshot())
}

// ToggleState handles POST /api/draft/states/{state}.
//
//	@Summary		Toggle a state tag on the draft
//	@Tags			draft
//	@Produce		json
//	@Param			state	path		string	true	"State"	Enums(Focus, Energy, Clarity, Overwhelm)
//	@Success		200		{object}	Draft
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/states/{state} [post]
func (h *Handler) ToggleState(w http.ResponseWriter, r *http.Request) {
	st, err := models.ParseState(chi.URLParam(r, "state"))
	if err == nil {
		err = h.editor.ToggleState(st)
	}
	if err != nil {
		writeError(w, "toggle state", err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.Snapshot())
}

// AttachImage handles PUT /api/draft/image.
//
// The image is sent either as multipart/form-data (field "file") or as JSON
// carrying a data URI. Without a caption the image stays pending until the
// caption is set or skipped.
//
//	@Summary		Attach an image to the draft
//	@Tags			draft
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			body	body		AttachImageRequest	false	"Data URI payload"
//	@Param			file	formData	file				false	"Image file"
//	@Success		200		{object}	Draft
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/image [put]
func (h *Handler) AttachImage(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.svc.MaxImageBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes*2+1<<20)

	var (
		img     models.Image
		caption *string
		err     error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBytes + 1<<20); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
			return
		}
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
			return
		}
		defer file.Close()
		img, err = attachment.Read(file, header.Header.Get("Content-Type"), maxBytes)
		if c, ok := r.MultipartForm.Value["caption"]; ok && len(c) > 0 {
			caption = &c[0]
		}
	} else {
		var req AttachImageRequest
		if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		img, err = attachment.DecodeDataURI(req.DataURI, maxBytes)
		caption = req.Caption
	}
	if err == nil {
		err = h.editor.AttachImage(img)
	}
	if err == nil && caption != nil {
		err = h.editor.SetCaption(strings.TrimSpace(*caption))
	}
	if err != nil {
		writeError(w, "attach image", err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.Snapshot())
}

// SetCaption handles PUT /api/draft/image/caption.
//
//	@Summary		Confirm the draft image with a caption
//	@Tags			draft
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CaptionRequest	true	"Caption"
//	@Success		200		{object}	Draft
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/image/caption [put]
func (h *Handler) SetCaption(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CaptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.editor.SetCaption(strings.TrimSpace(req.Caption)); err != nil {
		writeError(w, "set caption", err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.Snapshot())
}

// SkipCaption handles POST /api/draft/image/skip.
//
//	@Summary		Skip the caption step
//	@Tags			draft
//	@Produce		json
//	@Success		200	{object}	Draft
//	@Security		BearerAuth
//	@Router			/draft/image/skip [post]
func (h *Handler) SkipCaption(w http.ResponseWriter, _ *http.Request) {
	if err := h.editor.SkipCaption(); err != nil {
		writeError(w, "skip caption", err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.Snapshot())
}

// ClearImage handles DELETE /api/draft/image.
//
//	@Summary		Remove the draft image
//	@Tags			draft
//	@Produce		json
//	@Success		200	{object}	Draft
//	@Security		BearerAuth
//	@Router			/draft/image [delete]
func (h *Handler) ClearImage(w http.ResponseWriter, _ *http.Request) {
	if err := h.editor.ClearImage(); err != nil {
		writeError(w, "clear image", err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.Snapshot())
}

// SaveDraft handles POST /api/draft/save.
//
//	@Summary		Save the draft as a new entry or as the edited one
//	@Tags			draft
//	@Produce		json
//	@Success		201	{object}	SaveResponse	"New entry"
//	@Success		200	{object}	SaveResponse	"Edited entry"
//	@Failure		409	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/save [post]
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	e, created, err := h.editor.Save(r.Context())
	if err != nil {
		writeError(w, "save draft", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, SaveResponse{Entry: e, Created: created})
}

// CancelDraft handles POST /api/draft/cancel.
//
//	@Summary		Discard the draft and leave edit mode
//	@Tags			draft
//	@Produce		json
//	@Success		200	{object}	Draft
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/cancel [post]
func (h *Handler) CancelDraft(w http.ResponseWriter, _ *http.Request) {
	if err := h.editor.CancelEdit(); err != nil {
		writeError(w, "cancel draft", err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.Snapshot())
}

// ToggleDictation handles POST /api/draft/dictation.
//
//	@Summary		Start or stop dictation into the draft
//	@Tags			draft
//	@Produce		json
//	@Success		200	{object}	DictationResponse
//	@Failure		501	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/dictation [post]
func (h *Handler) ToggleDictation(w http.ResponseWriter, r *http.Request) {
	recording, err := h.editor.ToggleDictation(r.Context())
	if err != nil {
		writeError(w, "toggle dictation", err)
		return
	}
	writeJSON(w, http.StatusOK, DictationResponse{Recording: recording})
}
