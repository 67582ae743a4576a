package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bucket/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// FetchNotes handles GET /api/fetch.
//
//	@Summary		List every note in store order
//	@Tags			notes
//	@Produce		json
//	@Success		200	{array}	Note
//	@Security		BearerAuth
//	@Router			/fetch [get]
func (h *Handler) FetchNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ListNotes(r.Context())
	if err != nil {
		writeServiceError(w, "fetch notes", "", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// AddNote handles POST /api/add.
//
//	@Summary		Create a note; the server assigns its id
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note text"
//	@Success		201		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/add [post]
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[NoteRequest](w, r)
	if !ok {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Item)
	if err != nil {
		writeServiceError(w, "add note", "", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// EditNote handles PUT /api/edit/{id}.
//
//	@Summary		Replace the text of a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Note id"
//	@Param			body	body		NoteRequest	true	"New text"
//	@Success		200		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edit/{id} [put]
func (h *Handler) EditNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := decodeJSON[NoteRequest](w, r)
	if !ok {
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), id, req.Item)
	if err != nil {
		writeServiceError(w, "edit note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/delete/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/delete/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeServiceError(w, "delete note", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
