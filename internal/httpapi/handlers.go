package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rmacdonaldsmith/streamrelay/internal/websocket"
	"github.com/rmacdonaldsmith/streamrelay/pkg/relay"
)

// ClientLister is the part of the websocket hub the admin endpoints read.
type ClientLister interface {
	Clients() []websocket.ClientInfo
}

// Handlers contains the HTTP request handlers
type Handlers struct {
	node    relay.Node
	clients ClientLister
	logger  *slog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(node relay.Node, clients ClientLister, logger *slog.Logger) *Handlers {
	return &Handlers{
		node:    node,
		clients: clients,
		logger:  logger,
	}
}

// Status reports the number of connected clients.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, StatusResponse{
		ConnectedClients: h.node.GetRegistry().ConnectionCount(),
	}, http.StatusOK)
}

// ListClients lists connected clients with their subscriptions.
func (h *Handlers) ListClients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := h.clients.Clients()
	resp := ClientsResponse{Clients: make([]ClientInfo, 0, len(infos))}
	for _, info := range infos {
		subs := info.Patterns
		if subs == nil {
			subs = []string{}
		}
		resp.Clients = append(resp.Clients, ClientInfo{
			ID:            info.ID.String(),
			RemoteAddr:    info.RemoteAddr,
			ConnectedAt:   info.ConnectedAt,
			Subscriptions: subs,
		})
	}

	h.writeJSON(w, resp, http.StatusOK)
}

// Health reports node health. Unhealthy nodes answer 503.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health, err := h.node.GetHealth(r.Context())
	if err != nil {
		h.writeError(w, "Failed to get health status", http.StatusInternalServerError)
		return
	}

	resp := HealthResponse{
		Healthy:          health.Healthy,
		SourceHealthy:    health.SourceHealthy,
		Source:           health.Source,
		ConnectedClients: health.ConnectedClients,
		Subscriptions:    health.Subscriptions,
		EventsReceived:   health.EventsReceived,
		EventsDropped:    health.EventsDropped,
		Message:          health.Message,
	}

	statusCode := http.StatusOK
	if !health.Healthy {
		statusCode = http.StatusServiceUnavailable
	}
	h.writeJSON(w, resp, statusCode)
}

// Helper methods

// writeError writes an error response as JSON
func (h *Handlers) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}
