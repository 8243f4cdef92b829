package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/hotpotato/go/internal/potato/session"
	"github.com/rs/zerolog/log"
)

// StateProvider returns the current session view
type StateProvider interface {
	View() session.View
}

// DiagnosticsResponse reports engine health figures
type DiagnosticsResponse struct {
	SessionID     uuid.UUID `json:"session_id"`
	Loaded        bool      `json:"loaded"`
	Seq           uint64    `json:"seq"`
	ReadFallbacks *int64    `json:"read_fallbacks,omitempty"`
}

// StateHandler handles HTTP requests for game state
type StateHandler struct {
	stateProvider StateProvider
	diagnostics   DiagnosticsProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider, diagnostics DiagnosticsProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
		diagnostics:   diagnostics,
	}
}

// HandleGetState handles GET /api/state
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, NewViewPayload(h.stateProvider.View()))
}

// HandleGetDiagnostics handles GET /api/diagnostics
func (h *StateHandler) HandleGetDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	v := h.stateProvider.View()
	resp := DiagnosticsResponse{
		SessionID: v.SessionID,
		Loaded:    v.Loaded,
		Seq:       v.Seq,
	}
	if h.diagnostics != nil {
		n, err := h.diagnostics.FallbackCount(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to count read fallbacks")
			http.Error(w, "Failed to read diagnostics", http.StatusInternalServerError)
			return
		}
		resp.ReadFallbacks = &n
	}

	writeJSON(w, resp)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.HandleGetState)
	mux.HandleFunc("/api/diagnostics", h.HandleGetDiagnostics)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
