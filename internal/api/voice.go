package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/shsh-voice/internal/domain"
	"github.com/go-chi/chi/v5"
)

// VoiceHandler handles transcript resolution and execution endpoints.
type VoiceHandler struct {
	*Handler
	info ServerInfo
}

// ServerInfo is reported to the web console by GET /api/config.
type ServerInfo struct {
	PatternStore string `json:"pattern_store"`
	HostRunner   string `json:"host_runner"`
	Speech       bool   `json:"speech"`
}

type textRequest struct {
	Text string `json:"text"`
}

type commandRequest struct {
	Command string `json:"command"`
}

type resolveResponse struct {
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error,omitempty"`
}

type historyResponse struct {
	SessionID string   `json:"session_id"`
	WorkDir   string   `json:"work_dir"`
	History   []string `json:"history"`
}

// NewVoiceHandler creates a new voice handler.
func NewVoiceHandler(base *Handler, info ServerInfo) *VoiceHandler {
	return &VoiceHandler{Handler: base, info: info}
}

// RegisterRoutes registers voice routes.
func (h *VoiceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Post("/voice", h.Voice)
		r.Post("/resolve", h.Resolve)
		r.Post("/execute", h.Execute)
		r.Get("/history", h.History)
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *VoiceHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.info)
}

// Voice resolves a transcript and executes the resulting command.
func (h *VoiceHandler) Voice(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		Error(w, http.StatusBadRequest, "text cannot be empty")
		return
	}

	JSON(w, http.StatusOK, h.session.Handle(r.Context(), "http", req.Text))
}

// Resolve reports the command a transcript maps to without executing it.
func (h *VoiceHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := resolveResponse{Text: req.Text}
	cmd, err := h.session.Resolve(req.Text)
	if err != nil {
		var noMatch *domain.NoMatchError
		if !errors.As(err, &noMatch) {
			slog.Error("Resolve failed", "error", err, "text", req.Text)
			Error(w, http.StatusInternalServerError, "resolve failed")
			return
		}
		resp.Error = noMatch.Error()
		JSON(w, http.StatusOK, resp)
		return
	}

	resp.Matched = true
	resp.Command = cmd.String()
	JSON(w, http.StatusOK, resp)
}

// Execute runs a concrete command line, bypassing the pattern table.
func (h *VoiceHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		Error(w, http.StatusBadRequest, "command cannot be empty")
		return
	}

	JSON(w, http.StatusOK, h.session.ExecuteLine(r.Context(), "http", req.Command))
}

// History returns the executed commands, most recent last. An optional
// limit query parameter keeps only the newest entries.
func (h *VoiceHandler) History(w http.ResponseWriter, r *http.Request) {
	history := h.session.Engine().History()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		history = h.session.Engine().RecentHistory(limit)
	}
	if history == nil {
		history = []string{}
	}

	JSON(w, http.StatusOK, historyResponse{
		SessionID: h.session.ID(),
		WorkDir:   h.session.Engine().WorkDir(),
		History:   history,
	})
}
