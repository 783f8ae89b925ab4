package terminal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/shsh-voice/internal/voice"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// WebSocketHandler streams transcripts from a client into the voice session
// and sends back one outcome frame per transcript.
type WebSocketHandler struct {
	session       *voice.Session
	sm            *SessionManager
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(session *voice.Session, sm *SessionManager, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		session:       session,
		sm:            sm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage represents an inbound WebSocket message.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsResponse represents an outbound WebSocket message.
type wsResponse struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	ClientID  string         `json:"client_id,omitempty"`
	WorkDir   string         `json:"work_dir,omitempty"`
	Outcome   *voice.Outcome `json:"outcome,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := uuid.NewString()
	slog.Info("WebSocket connection request", "client_id", clientID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "client_id", clientID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "client_id", clientID)
		}
	}()

	h.sm.Register(clientID, ws)
	defer h.sm.Unregister(clientID, ws)

	ctx := r.Context()
	if err := h.writeJSON(ctx, ws, wsResponse{
		Type:      "ready",
		SessionID: h.session.ID(),
		ClientID:  clientID,
		WorkDir:   h.session.Engine().WorkDir(),
	}); err != nil {
		slog.Debug("Failed to send ready frame", "error", err, "client_id", clientID)
		return
	}

	h.inputLoop(ctx, ws, clientID)
	slog.Info("Voice session ended", "client_id", clientID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) inputLoop(ctx context.Context, ws *websocket.Conn, clientID string) {
	slog.Debug("Starting input loop", "client_id", clientID)
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "client_id", clientID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "client_id", clientID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			// Fallback to raw transcript text.
			msg = wsMessage{Type: "transcript", Content: string(message)}
		}

		switch msg.Type {
		case "transcript":
			h.respond(ctx, ws, clientID, h.session.Handle(ctx, "websocket", msg.Content))
		case "execute":
			h.respond(ctx, ws, clientID, h.session.ExecuteLine(ctx, "websocket", msg.Content))
		case "ping":
			if err := h.writeJSON(ctx, ws, wsResponse{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		case "terminate":
			slog.Info("Voice session terminate requested", "client_id", clientID)
			if err := h.writeJSON(ctx, ws, wsResponse{Type: "terminated"}); err != nil {
				slog.Debug("Failed to send terminated acknowledgment", "error", err)
			}
			return
		default:
			if err := h.writeJSON(ctx, ws, wsResponse{Type: "error", Error: "unknown message type: " + strings.TrimSpace(msg.Type)}); err != nil {
				slog.Debug("Failed to send error frame", "error", err)
			}
		}
	}
}

func (h *WebSocketHandler) respond(ctx context.Context, ws *websocket.Conn, clientID string, outcome voice.Outcome) {
	frame := wsResponse{Type: "outcome", Outcome: &outcome}
	if err := h.writeJSON(ctx, ws, frame); err != nil {
		slog.Debug("Failed to send outcome", "error", err, "client_id", clientID)
		return
	}
	h.sm.Broadcast(ctx, clientID, frame)
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
