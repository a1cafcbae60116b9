package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmacdonaldsmith/streamrelay/internal/metrics"
	"github.com/rmacdonaldsmith/streamrelay/pkg/relay"
)

// Hub is the websocket endpoint mounted at /stream.
type Hub interface {
	http.Handler
	ClientLister
}

// Server represents the HTTP API server
type Server struct {
	node       relay.Node
	hub        Hub
	handlers   *Handlers
	middleware *Middleware
	metrics    *prometheus.Registry
	logger     *slog.Logger
	server     *http.Server
}

// Config holds server configuration
type Config struct {
	Addr           string
	AllowedOrigins []string
	Logger         *slog.Logger

	// Metrics is served on /metrics. The endpoint is omitted when nil.
	Metrics *prometheus.Registry
}

// NewServer creates a new HTTP API server
func NewServer(node relay.Node, hub Hub, config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "httpapi")

	server := &Server{
		node:       node,
		hub:        hub,
		handlers:   NewHandlers(node, hub, logger),
		middleware: NewMiddleware(logger, config.AllowedOrigins),
		metrics:    config.Metrics,
		logger:     logger,
	}

	// No WriteTimeout: /stream connections are long-lived and manage their
	// own deadlines after the upgrade.
	server.server = &http.Server{
		Addr:              config.Addr,
		Handler:           server.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
	return server
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Serve accepts connections on l.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("http server listening", "addr", l.Addr().String())
	return s.server.Serve(l)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	withMiddleware := func(handler http.HandlerFunc) http.Handler {
		return http.HandlerFunc(s.middleware.Recovery(
			s.middleware.Logging(
				s.middleware.CORS(handler))))
	}
	jsonRoute := func(handler http.HandlerFunc) http.Handler {
		return withMiddleware(s.middleware.ContentType(handler))
	}

	mux.Handle("/status", jsonRoute(s.handlers.Status))
	mux.Handle("/api/v1/health", jsonRoute(s.handlers.Health))
	mux.Handle("/api/v1/clients", jsonRoute(s.handlers.ListClients))
	mux.Handle("/stream", withMiddleware(s.hub.ServeHTTP))
	if s.metrics != nil {
		mux.Handle("/metrics", withMiddleware(metrics.Handler(s.metrics).ServeHTTP))
	}

	// Root endpoint with API info
	mux.Handle("/", jsonRoute(s.handleRoot))

	return mux
}

// handleRoot provides API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.handlers.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	info := map[string]interface{}{
		"service":     "streamrelay",
		"description": "Wildcard-filtered fan-out of change events over websockets",
		"endpoints": map[string]interface{}{
			"status":  "GET /status",
			"health":  "GET /api/v1/health",
			"clients": "GET /api/v1/clients",
			"metrics": "GET /metrics",
			"stream": map[string]string{
				"connect":     "GET /stream (websocket upgrade)",
				"subscribe":   `{"event":"subscribe","data":"*.wikipedia.org"}`,
				"unsubscribe": `{"event":"unsubscribe","data":["*.wikipedia.org"]}`,
			},
		},
	}

	s.handlers.writeJSON(w, info, http.StatusOK)
}
