package relay

import (
	"errors"
	"log/slog"

	"github.com/rmacdonaldsmith/streamrelay/internal/metrics"
	"github.com/rmacdonaldsmith/streamrelay/pkg/event"
	relaypkg "github.com/rmacdonaldsmith/streamrelay/pkg/relay"
)

var (
	// ErrEmptyKeyField is returned when the routing key attribute is empty
	ErrEmptyKeyField = errors.New("key field cannot be empty")
	// ErrEmptyEventName is returned when the outbound event name is empty
	ErrEmptyEventName = errors.New("event name cannot be empty")
)

// Config represents configuration for a relay Node
type Config struct {
	// KeyField is the gjson path of the attribute events are routed on
	KeyField string

	// EventName is the name events are pushed to subscribers under
	EventName string

	// Logger receives dispatch and lifecycle logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics receives dispatch counters. Defaults to a private registry.
	Metrics *metrics.RelayMetrics
}

// NewConfig creates a new relay configuration with safe defaults
func NewConfig() *Config {
	return &Config{
		KeyField:  event.DefaultKeyField,
		EventName: relaypkg.DefaultEventName,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.KeyField == "" {
		return ErrEmptyKeyField
	}
	if c.EventName == "" {
		return ErrEmptyEventName
	}
	return nil
}

// WithKeyField sets the routing key attribute
func (c *Config) WithKeyField(field string) *Config {
	c.KeyField = field
	return c
}

// WithEventName sets the outbound event name
func (c *Config) WithEventName(name string) *Config {
	c.EventName = name
	return c
}

// WithLogger sets the logger
func (c *Config) WithLogger(logger *slog.Logger) *Config {
	c.Logger = logger
	return c
}

// WithMetrics sets the metrics sink
func (c *Config) WithMetrics(m *metrics.RelayMetrics) *Config {
	c.Metrics = m
	return c
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Config) metrics() *metrics.RelayMetrics {
	if c.Metrics != nil {
		return c.Metrics
	}
	return metrics.NewUnregistered()
}
