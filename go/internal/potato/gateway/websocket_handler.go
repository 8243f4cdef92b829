package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for game watchers
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	session           SessionAPI
	clock             clockwork.Clock
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, s SessionAPI, clock clockwork.Clock) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		session:           s,
		clock:             clock,
	}
}

// HandleGameConnection upgrades the request and sends the current view straight away
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = "anonymous"
	}

	conn, err := h.connectionManager.UpgradeConnection(w, r, clientID)
	if err != nil {
		// The upgrader has already replied to the client.
		log.Error().
			Err(err).
			Str("client_id", clientID).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	v := h.session.View()
	evt, err := newEvent(v.SessionID, EventTypeViewUpdated, h.clock.Now().UTC(), NewViewPayload(v))
	if err != nil {
		log.Error().Err(err).Msg("failed to build initial view event")
		return
	}
	h.connectionManager.SendTo(conn, evt)
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/game", h.HandleGameConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
