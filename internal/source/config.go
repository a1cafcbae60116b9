package source

import (
	"errors"
	"time"
)

var (
	// ErrEmptyURL is returned when no Redis URL is configured
	ErrEmptyURL = errors.New("redis URL cannot be empty")
	// ErrNoChannels is returned when no channel is configured
	ErrNoChannels = errors.New("at least one channel is required")
)

// Config holds configuration for the Redis source
type Config struct {
	URL         string
	Channels    []string
	BufferSize  int
	PingTimeout time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrEmptyURL
	}
	if len(c.Channels) == 0 {
		return ErrNoChannels
	}
	for _, ch := range c.Channels {
		if ch == "" {
			return errors.New("channel name cannot be empty")
		}
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
}
