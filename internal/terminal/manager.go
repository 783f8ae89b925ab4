// Package terminal streams voice sessions over WebSocket connections.
package terminal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks the WebSocket clients attached to the voice session.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]*websocket.Conn),
	}
}

// GetActive returns the connection registered for clientID.
func (m *SessionManager) GetActive(clientID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[clientID]
}

// Count returns the number of attached clients.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Register adds a connection for clientID, closing any connection it replaces.
func (m *SessionManager) Register(clientID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.active[clientID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	m.active[clientID] = conn
	slog.Info("Voice client registered", "client_id", clientID)
}

// Unregister removes the connection for clientID if it is still current.
func (m *SessionManager) Unregister(clientID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, exists := m.active[clientID]; exists && current == conn {
		delete(m.active, clientID)
		slog.Info("Voice client unregistered", "client_id", clientID)
	}
}

// Broadcast sends v as a JSON text frame to every client except skipID.
// Write failures are logged; the failing client is left for its own read
// loop to clean up.
func (m *SessionManager) Broadcast(ctx context.Context, skipID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode broadcast", "error", err)
		return
	}

	m.mu.RLock()
	targets := make(map[string]*websocket.Conn, len(m.active))
	for id, conn := range m.active {
		if id != skipID {
			targets[id] = conn
		}
	}
	m.mu.RUnlock()

	for id, conn := range targets {
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("Broadcast write failed", "client_id", id, "error", err)
		}
	}
}

// CloseAll terminates every attached client.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, conn := range m.active {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		slog.Info("Voice client closed", "client_id", id)
	}
	m.active = make(map[string]*websocket.Conn)
}
