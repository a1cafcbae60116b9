package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmacdonaldsmith/streamrelay/internal/config"
	"github.com/rmacdonaldsmith/streamrelay/internal/healthrpc"
	"github.com/rmacdonaldsmith/streamrelay/internal/httpapi"
	"github.com/rmacdonaldsmith/streamrelay/internal/logging"
	"github.com/rmacdonaldsmith/streamrelay/internal/metrics"
	"github.com/rmacdonaldsmith/streamrelay/internal/relay"
	"github.com/rmacdonaldsmith/streamrelay/internal/routingtable"
	"github.com/rmacdonaldsmith/streamrelay/internal/source"
	"github.com/rmacdonaldsmith/streamrelay/internal/websocket"
	sourcepkg "github.com/rmacdonaldsmith/streamrelay/pkg/source"
)

const (
	// Application info
	appName    = "streamrelay"
	appVersion = "0.1.0"
)

func main() {
	var (
		envFile     = flag.String("env-file", "", "Load environment variables from this file before reading config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	logger := logging.Logger
	logger.Info("starting", "app", appName, "version", appVersion)

	src, err := source.NewRedisSource(&source.Config{URL: cfg.RedisURL, Channels: cfg.RedisChannels})
	if err != nil {
		logger.Error("failed to create source", "error", err)
		os.Exit(1)
	}

	a, err := newApp(cfg, src, logger)
	if err != nil {
		logger.Error("failed to create relay", "error", err)
		os.Exit(1)
	}

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.HTTPAddr, "error", err)
		os.Exit(1)
	}
	var grpcLis net.Listener
	if cfg.GRPCAddr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen", "addr", cfg.GRPCAddr, "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, httpLis, grpcLis); err != nil {
		logger.Error("relay stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

// app wires the relay components together.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	node   *relay.Node
	hub    *websocket.Hub
	http   *httpapi.Server
	health *healthrpc.Server
}

// newApp builds the registry first, then the hub over it, then the node that
// dispatches through the hub.
func newApp(cfg *config.Config, src sourcepkg.Source, logger *slog.Logger) (*app, error) {
	reg := metrics.NewRegistry()
	m := metrics.NewRelayMetrics(reg)

	registry := routingtable.NewInMemoryRegistry(cfg.MaxSubscriptions)
	hub := websocket.NewHub(registry, websocket.Config{
		EventName:      cfg.EventName,
		SendBuffer:     cfg.SendBuffer,
		PingInterval:   cfg.PingInterval,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
		Metrics:        m,
	})

	nodeConfig := relay.NewConfig().
		WithKeyField(cfg.KeyField).
		WithEventName(cfg.EventName).
		WithLogger(logger).
		WithMetrics(m)
	node, err := relay.NewNode(nodeConfig, src, registry, hub)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		node:   node,
		hub:    hub,
		http: httpapi.NewServer(node, hub, httpapi.Config{
			Addr:           cfg.HTTPAddr,
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         logger,
			Metrics:        reg,
		}),
		health: healthrpc.NewServer(node, healthrpc.Config{Logger: logger}),
	}, nil
}

// run serves until ctx is cancelled or the source fails. A source failure is
// returned as an error so the process exits non-zero.
func (a *app) run(ctx context.Context, httpLis, grpcLis net.Listener) error {
	if err := a.node.Start(ctx); err != nil {
		return fmt.Errorf("failed to start relay: %w", err)
	}

	serveErr := make(chan error, 2)
	go func() {
		if err := a.http.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	if grpcLis != nil {
		go a.health.Watch(watchCtx)
		go func() {
			if err := a.health.Serve(grpcLis); err != nil {
				serveErr <- fmt.Errorf("grpc health server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err := <-a.node.Fatal():
		runErr = fmt.Errorf("source failed: %w", err)
	case err := <-serveErr:
		runErr = err
	}

	a.shutdown()
	return runErr
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.node.Stop(ctx); err != nil {
		a.logger.Warn("error stopping relay", "error", err)
	}
	a.health.Stop()
	a.hub.Stop()
	if err := a.http.Stop(ctx); err != nil {
		a.logger.Warn("error stopping http server", "error", err)
	}
	if err := a.node.Close(); err != nil {
		a.logger.Warn("error closing relay", "error", err)
	}
}
