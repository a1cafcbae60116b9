// Package config loads process configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the streamrelay process configuration.
type Config struct {
	HTTPAddr string `env:"RELAY_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"RELAY_GRPC_ADDR" envDefault:":9090"`

	RedisURL      string   `env:"RELAY_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisChannels []string `env:"RELAY_REDIS_CHANNELS" envDefault:"rc" envSeparator:","`

	KeyField         string `env:"RELAY_KEY_FIELD" envDefault:"server_name"`
	EventName        string `env:"RELAY_EVENT_NAME" envDefault:"change"`
	MaxSubscriptions int    `env:"RELAY_MAX_SUBSCRIPTIONS" envDefault:"10"`

	SendBuffer     int           `env:"RELAY_SEND_BUFFER" envDefault:"64"`
	PingInterval   time.Duration `env:"RELAY_PING_INTERVAL" envDefault:"30s"`
	AllowedOrigins []string      `env:"RELAY_ALLOWED_ORIGINS" envSeparator:","`

	ShutdownTimeout time.Duration `env:"RELAY_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads envFile (or ./.env when empty and present) into the process
// environment and parses it into a Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	return parse(env.Options{})
}

// LoadFrom parses a Config from environ only, ignoring the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.RedisChannels = compact(cfg.RedisChannels)
	cfg.AllowedOrigins = compact(cfg.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("RELAY_HTTP_ADDR is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("RELAY_REDIS_URL is required"))
	}
	if len(c.RedisChannels) == 0 {
		errs = append(errs, errors.New("RELAY_REDIS_CHANNELS must name at least one channel"))
	}
	if c.KeyField == "" {
		errs = append(errs, errors.New("RELAY_KEY_FIELD is required"))
	}
	if c.EventName == "" {
		errs = append(errs, errors.New("RELAY_EVENT_NAME is required"))
	}
	if c.MaxSubscriptions <= 0 {
		errs = append(errs, fmt.Errorf("RELAY_MAX_SUBSCRIPTIONS must be positive, got %d", c.MaxSubscriptions))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("RELAY_SEND_BUFFER must be positive, got %d", c.SendBuffer))
	}
	if c.PingInterval <= 0 {
		errs = append(errs, fmt.Errorf("RELAY_PING_INTERVAL must be positive, got %s", c.PingInterval))
	}
	return errors.Join(errs...)
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
