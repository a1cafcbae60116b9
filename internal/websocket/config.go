package websocket

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rmacdonaldsmith/streamrelay/internal/metrics"
	"github.com/rmacdonaldsmith/streamrelay/pkg/relay"
)

// Config holds configuration for the Hub
type Config struct {
	// EventName is attached to frames pushed without a name
	EventName string

	// SendBuffer is the per-connection outbound queue length
	SendBuffer int

	// WriteTimeout bounds a single frame write
	WriteTimeout time.Duration

	// PingInterval is how often keepalive pings are sent
	PingInterval time.Duration

	// PongWait is how long a connection may stay silent before it is dropped.
	// It must exceed PingInterval.
	PongWait time.Duration

	// MaxMessageSize limits inbound client frames
	MaxMessageSize int64

	// AllowedOrigins lists accepted Origin headers. Empty or "*" allows all.
	AllowedOrigins []string

	Logger  *slog.Logger
	Metrics *metrics.RelayMetrics
	Clock   clockwork.Clock
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.EventName == "" {
		c.EventName = relay.DefaultEventName
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.PongWait <= c.PingInterval {
		c.PongWait = c.PingInterval * 2
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NewUnregistered()
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
}
