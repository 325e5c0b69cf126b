package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/skald/internal/apperr"
	"github.com/starford/skald/internal/journal"
	"github.com/starford/skald/internal/query"
)

// Handler holds API route handlers. All query endpoints go through the
// journal service, so results reflect a fresh index.
type Handler struct {
	svc *journal.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *journal.Service) *Handler {
	return &Handler{svc: svc}
}

// Sessions handles GET /sessions with the session filter as query params.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lastDays, _ := strconv.Atoi(q.Get("last_days"))
	f := query.SessionFilter{
		Date:     q.Get("date"),
		After:    q.Get("after"),
		Before:   q.Get("before"),
		LastDays: lastDays,
		Topic:    q.Get("topic"),
		Plan:     q.Get("plan"),
		Limit:    intParam(q.Get("limit")),
	}
	items, err := h.svc.Sessions(r.Context(), f)
	if err != nil {
		writeError(w, "list sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(items), "items": items})
}

// Plans handles GET /plans with the plan filter as query params.
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := query.PlanFilter{
		Status:        q.Get("status"),
		Author:        q.Get("author"),
		Topic:         q.Get("topic"),
		UpdatedAfter:  q.Get("updated_after"),
		UpdatedBefore: q.Get("updated_before"),
		Limit:         intParam(q.Get("limit")),
	}
	items, err := h.svc.Plans(r.Context(), f)
	if err != nil {
		writeError(w, "list plans", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(items), "items": items})
}

// Patterns handles GET /patterns with the pattern filter as query params.
func (h *Handler) Patterns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := query.PatternFilter{
		Title:   q.Get("title"),
		Keyword: q.Get("keyword"),
		Limit:   intParam(q.Get("limit")),
	}
	items, err := h.svc.Patterns(r.Context(), f)
	if err != nil {
		writeError(w, "list patterns", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(items), "items": items})
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	scope := query.Scope(r.URL.Query().Get("scope"))
	limit := intParam(r.URL.Query().Get("limit"))

	results, err := h.svc.Search(r.Context(), q, scope, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "items": results})
}

// Rebuild handles POST /rebuild: an explicit full rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Rebuild(r.Context())
	if err != nil {
		writeError(w, "rebuild", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	var vErr *apperr.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorBody(vErr.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrIndexMissing):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index missing: rebuild required"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func intParam(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}
