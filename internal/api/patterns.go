package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/shsh-voice/internal/domain"
	"github.com/go-chi/chi/v5"
)

// PatternHandler exposes the pattern table.
type PatternHandler struct {
	*Handler
}

// NewPatternHandler creates a new pattern handler.
func NewPatternHandler(base *Handler) *PatternHandler {
	return &PatternHandler{Handler: base}
}

// RegisterRoutes registers pattern routes. Patterns are regular expressions
// and may contain slashes, so DELETE takes the pattern as a query parameter.
func (h *PatternHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/patterns", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Add)
		r.Delete("/", h.Remove)
	})
}

// List returns the table in stored order.
func (h *PatternHandler) List(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.table.List())
}

// Add inserts or overwrites a pattern.
func (h *PatternHandler) Add(w http.ResponseWriter, r *http.Request) {
	var entry domain.PatternEntry
	if err := decodeBody(w, r, &entry); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if entry.Pattern == "" || entry.Template == "" {
		Error(w, http.StatusBadRequest, "pattern and template are required")
		return
	}

	_, existed := h.table.Lookup(entry.Pattern)
	if err := h.table.Add(r.Context(), entry.Pattern, entry.Template); err != nil {
		var storageErr *domain.StorageError
		if errors.As(err, &storageErr) {
			slog.Error("Failed to persist pattern", "error", err, "pattern", entry.Pattern)
			Error(w, http.StatusInternalServerError, "failed to persist pattern table")
			return
		}
		slog.Warn("Rejected pattern", "error", err, "pattern", entry.Pattern)
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	JSON(w, status, entry)
}

// Remove deletes the pattern named by the "pattern" query parameter.
func (h *PatternHandler) Remove(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		Error(w, http.StatusBadRequest, "pattern query parameter is required")
		return
	}

	removed, err := h.table.Remove(r.Context(), pattern)
	if err != nil {
		slog.Error("Failed to remove pattern", "error", err, "pattern", pattern)
		Error(w, http.StatusInternalServerError, "failed to persist pattern table")
		return
	}
	if !removed {
		Error(w, http.StatusNotFound, "pattern not found")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"removed": true, "pattern": pattern})
}
