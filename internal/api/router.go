package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bucket/internal/noteservice"
)

// NewRouter creates a chi router with all store routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/fetch", h.FetchNotes)
	r.Post("/add", h.AddNote)
	r.Put("/edit/{id}", h.EditNote)
	r.Delete("/delete/{id}", h.DeleteNote)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
