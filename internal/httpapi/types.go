package httpapi

import "time"

// Request/Response types for the HTTP API

// StatusResponse is the body of GET /status
type StatusResponse struct {
	ConnectedClients int `json:"connected_clients"`
}

// ClientsResponse lists connected websocket clients
type ClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
}

// ClientInfo represents information about a connected client
type ClientInfo struct {
	ID            string    `json:"id"`
	RemoteAddr    string    `json:"remoteAddr"`
	ConnectedAt   time.Time `json:"connectedAt"`
	Subscriptions []string  `json:"subscriptions"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Healthy          bool   `json:"healthy"`
	SourceHealthy    bool   `json:"sourceHealthy"`
	Source           string `json:"source"`
	ConnectedClients int    `json:"connectedClients"`
	Subscriptions    int    `json:"subscriptions"`
	EventsReceived   uint64 `json:"eventsReceived"`
	EventsDropped    uint64 `json:"eventsDropped"`
	Message          string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
