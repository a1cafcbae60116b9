package httpclient

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the relay HTTP API (e.g., "http://localhost:8080")
	ServerURL string

	// Timeout for HTTP requests. Streams are not subject to it.
	Timeout time.Duration
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// StatusResponse represents the response from /status
type StatusResponse struct {
	ConnectedClients int `json:"connected_clients"`
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

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// APIError is returned for responses with status >= 400
type APIError struct {
	StatusCode int
	Body       []byte
	Response   *ErrorResponse
}

func (e *APIError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("API error (%d): %s - %s", e.StatusCode, e.Response.Error, e.Response.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, string(e.Body))
}

// Event is one frame received on a stream
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}
