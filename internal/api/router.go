package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/skald/internal/journal"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *journal.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/sessions", h.Sessions)
	r.Get("/plans", h.Plans)
	r.Get("/patterns", h.Patterns)
	r.Get("/search", h.Search)
	r.Post("/rebuild", h.Rebuild)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
