// Package healthrpc exposes relay health over the standard grpc.health.v1
// service so orchestrators can probe the process without speaking HTTP.
package healthrpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rmacdonaldsmith/streamrelay/pkg/relay"
)

// ServiceName is the health service name that tracks the relay. The empty
// name tracks the same status.
const ServiceName = "streamrelay.Relay"

// Config holds configuration for the health server
type Config struct {
	// Interval is how often node health is polled
	Interval time.Duration
	Logger   *slog.Logger
	Clock    clockwork.Clock
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
}

// Server serves grpc.health.v1 for a relay node.
type Server struct {
	config Config
	node   relay.Node
	logger *slog.Logger
	grpc   *grpc.Server
	health *health.Server
}

// NewServer creates a health server for node. Statuses start as NOT_SERVING
// until the first Update.
func NewServer(node relay.Node, config Config) *Server {
	config.SetDefaults()

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		config: config,
		node:   node,
		logger: config.Logger.With("component", "healthrpc"),
		grpc:   gs,
		health: hs,
	}
}

// Serve accepts gRPC connections on l until Stop is called.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("grpc health listening", "addr", l.Addr().String())
	return s.grpc.Serve(l)
}

// Update polls the node once and publishes the result.
func (s *Server) Update(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	h, err := s.node.GetHealth(ctx)
	if err != nil {
		s.logger.Warn("failed to get node health", "error", err)
	} else if h.Healthy {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch calls Update on every interval until ctx is cancelled.
func (s *Server) Watch(ctx context.Context) {
	ticker := s.config.Clock.NewTicker(s.config.Interval)
	defer ticker.Stop()

	last := s.Update(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if status := s.Update(ctx); status != last {
				s.logger.Info("health status changed", "from", last.String(), "to", status.String())
				last = status
			}
		}
	}
}

// Stop marks every service NOT_SERVING and stops the gRPC server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
