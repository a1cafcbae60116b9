package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rmacdonaldsmith/streamrelay/internal/routingtable"
	relaypkg "github.com/rmacdonaldsmith/streamrelay/pkg/relay"
	routingtablepkg "github.com/rmacdonaldsmith/streamrelay/pkg/routingtable"
	"github.com/rmacdonaldsmith/streamrelay/pkg/source"
)

var (
	// ErrNodeClosed is returned when starting a closed node
	ErrNodeClosed = errors.New("cannot start closed relay node")
	// ErrSourceClosed is reported on Fatal when the source ends without an error
	ErrSourceClosed = errors.New("source closed unexpectedly")
)

// Node implements the relay.Node interface.
// It consumes a Source on a single goroutine and hands every payload to the
// Dispatcher, which pushes matching events through the Pusher.
type Node struct {
	mu     sync.RWMutex
	config *Config
	logger *slog.Logger

	// Core components
	source     source.Source
	registry   routingtablepkg.Registry
	dispatcher *Dispatcher

	// State management
	started       bool
	closed        bool
	sourceHealthy bool
	cancel        context.CancelFunc
	done          chan struct{}
	fatal         chan error
}

// NewNode creates a relay node over src. The registry is shared with the
// connection transport, which owns connect/subscribe/disconnect; the node only
// reads from it. Call Start() to begin consuming.
func NewNode(config *Config, src source.Source, registry routingtablepkg.Registry, pusher relaypkg.Pusher) (*Node, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if src == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if pusher == nil {
		return nil, fmt.Errorf("pusher cannot be nil")
	}

	return &Node{
		config:     config,
		logger:     config.logger().With("component", "relay", "source", src.Name()),
		source:     src,
		registry:   registry,
		dispatcher: NewDispatcher(config, registry, routingtable.NewPatternCache(), pusher),
		fatal:      make(chan error, 1),
	}, nil
}

// Start begins consuming the source. It is idempotent while running.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	payloads, errs := n.source.Receive(loopCtx)

	n.cancel = cancel
	n.done = make(chan struct{})
	n.started = true
	n.sourceHealthy = true

	go n.run(loopCtx, payloads, errs, n.done)

	n.logger.Info("relay started")
	return nil
}

// run is the single dispatch goroutine. Events are processed one at a time.
func (n *Node) run(ctx context.Context, payloads <-chan []byte, errs <-chan error, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				n.reportFatal(err)
				return
			}
		case raw, ok := <-payloads:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				select {
				case err := <-errs:
					if err != nil {
						n.reportFatal(err)
						return
					}
				default:
				}
				n.reportFatal(ErrSourceClosed)
				return
			}
			n.dispatcher.OnEvent(raw)
		}
	}
}

func (n *Node) reportFatal(err error) {
	n.mu.Lock()
	n.sourceHealthy = false
	n.mu.Unlock()

	n.logger.Error("source failed", "error", err)
	select {
	case n.fatal <- err:
	default:
	}
}

// Stop stops consuming the source and waits for the dispatch goroutine to
// finish, or for ctx to expire.
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return nil
	}
	cancel, done := n.cancel, n.done
	n.started = false
	n.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for dispatch loop: %w", ctx.Err())
	}

	n.logger.Info("relay stopped")
	return nil
}

// Close stops the node and releases the source and the registry.
// A closed node cannot be restarted.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	if err := n.Stop(context.Background()); err != nil {
		return err
	}
	if err := n.source.Close(); err != nil {
		return fmt.Errorf("failed to close source: %w", err)
	}
	if err := n.registry.Close(); err != nil {
		return fmt.Errorf("failed to close registry: %w", err)
	}
	return nil
}

// Fatal delivers the first unrecoverable source error.
func (n *Node) Fatal() <-chan error {
	return n.fatal
}

// GetRegistry returns the subscription registry.
func (n *Node) GetRegistry() routingtablepkg.Registry {
	return n.registry
}

// Dispatcher returns the node's dispatcher.
func (n *Node) Dispatcher() *Dispatcher {
	return n.dispatcher
}

// GetHealth returns the health status of the node.
func (n *Node) GetHealth(ctx context.Context) (relaypkg.HealthStatus, error) {
	n.mu.RLock()
	started, closed, sourceHealthy := n.started, n.closed, n.sourceHealthy
	n.mu.RUnlock()

	status := relaypkg.HealthStatus{
		SourceHealthy:    started && sourceHealthy,
		Source:           n.source.Name(),
		ConnectedClients: n.registry.ConnectionCount(),
		Subscriptions:    n.registry.SubscriptionCount(),
		EventsReceived:   n.dispatcher.Received(),
		EventsDropped:    n.dispatcher.Dropped(),
	}

	switch {
	case closed:
		status.Message = "relay is closed"
	case !started:
		status.Message = "relay is not started"
	case !sourceHealthy:
		status.Message = "source failed"
	default:
		status.Healthy = true
		status.Message = "ok"
	}
	return status, nil
}

// Compile-time interface compliance check
var _ relaypkg.Node = (*Node)(nil)
