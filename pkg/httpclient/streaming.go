package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSubscriptionLimit is reported on Errors when the relay rejects part of
// a subscribe batch.
var ErrSubscriptionLimit = errors.New("subscription limit exceeded")

// StreamClient receives events over the relay's websocket endpoint
type StreamClient struct {
	client *Client
	events chan Event
	errors chan error
	done   chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	conn     *websocket.Conn
	patterns []string
}

// StreamConfig configures the streaming client
type StreamConfig struct {
	// Patterns to subscribe to on every (re)connect
	Patterns []string

	// BufferSize for the event channel
	BufferSize int

	// ReconnectDelay for automatic reconnection
	ReconnectDelay time.Duration

	// MaxReconnectAttempts (0 = infinite)
	MaxReconnectAttempts int
}

// SetDefaults sets reasonable default values for StreamConfig
func (sc *StreamConfig) SetDefaults() {
	if sc.BufferSize == 0 {
		sc.BufferSize = 100
	}
	if sc.ReconnectDelay == 0 {
		sc.ReconnectDelay = 2 * time.Second
	}
}

// Stream opens a websocket to /stream and subscribes to config.Patterns.
// It reconnects until ctx is cancelled or Close is called.
func (c *Client) Stream(ctx context.Context, config StreamConfig) (*StreamClient, error) {
	config.SetDefaults()

	streamCtx, cancel := context.WithCancel(ctx)

	sc := &StreamClient{
		client:   c,
		events:   make(chan Event, config.BufferSize),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
		cancel:   cancel,
		patterns: append([]string(nil), config.Patterns...),
	}

	go sc.startStreaming(streamCtx, config)

	return sc, nil
}

// Events returns the channel for receiving events
func (sc *StreamClient) Events() <-chan Event {
	return sc.events
}

// Errors returns the channel for receiving errors
func (sc *StreamClient) Errors() <-chan error {
	return sc.errors
}

// Done returns a channel that's closed when streaming ends
func (sc *StreamClient) Done() <-chan struct{} {
	return sc.done
}

// Subscribe adds patterns on the live connection and on future reconnects
func (sc *StreamClient) Subscribe(patterns ...string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, p := range patterns {
		if !slices.Contains(sc.patterns, p) {
			sc.patterns = append(sc.patterns, p)
		}
	}
	return sc.writeLocked("subscribe", patterns)
}

// Unsubscribe removes patterns on the live connection and on future reconnects
func (sc *StreamClient) Unsubscribe(patterns ...string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	kept := sc.patterns[:0]
	for _, p := range sc.patterns {
		if !slices.Contains(patterns, p) {
			kept = append(kept, p)
		}
	}
	sc.patterns = kept
	return sc.writeLocked("unsubscribe", patterns)
}

// Close stops the streaming client and cleans up resources
func (sc *StreamClient) Close() error {
	sc.cancel()

	sc.mu.Lock()
	if sc.conn != nil {
		sc.conn.Close()
	}
	sc.mu.Unlock()

	<-sc.done
	return nil
}

func (sc *StreamClient) writeLocked(event string, patterns []string) error {
	if sc.conn == nil || len(patterns) == 0 {
		return nil
	}
	sc.conn.SetWriteDeadline(time.Now().Add(sc.client.config.Timeout))
	return sc.conn.WriteJSON(map[string]interface{}{"event": event, "data": patterns})
}

// startStreaming handles the streaming loop with reconnection
func (sc *StreamClient) startStreaming(ctx context.Context, config StreamConfig) {
	defer close(sc.done)
	defer close(sc.events)
	defer close(sc.errors)

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		connected, err := sc.connectAndStream(ctx)
		if err != nil && ctx.Err() == nil {
			sc.reportError(fmt.Errorf("streaming error: %w", err))
		}
		// Only consecutive failed connects count against the limit
		if connected {
			attempts = 0
		}

		if config.MaxReconnectAttempts > 0 && attempts >= config.MaxReconnectAttempts {
			select {
			case sc.errors <- fmt.Errorf("max reconnect attempts (%d) exceeded", config.MaxReconnectAttempts):
			case <-ctx.Done():
			}
			return
		}

		attempts++

		select {
		case <-time.After(config.ReconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

// connectAndStream dials, subscribes and forwards frames until the
// connection fails. connected reports whether the dial and subscribe
// succeeded.
func (sc *StreamClient) connectAndStream(ctx context.Context) (connected bool, err error) {
	streamURL := sc.client.baseURL.ResolveReference(&url.URL{Path: "/stream"})
	if streamURL.Scheme == "https" {
		streamURL.Scheme = "wss"
	} else {
		streamURL.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL.String(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to connect to stream: %w", err)
	}

	sc.mu.Lock()
	sc.conn = conn
	err = sc.writeLocked("subscribe", sc.patterns)
	sc.mu.Unlock()

	defer func() {
		sc.mu.Lock()
		sc.conn = nil
		sc.mu.Unlock()
		conn.Close()
	}()
	if err != nil {
		return false, fmt.Errorf("failed to subscribe: %w", err)
	}

	// Unblock ReadJSON on cancellation
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return true, err
		}

		if ev.Name == "error" {
			sc.reportError(fmt.Errorf("%w: %s", ErrSubscriptionLimit, string(ev.Data)))
			continue
		}

		select {
		case sc.events <- ev:
		case <-ctx.Done():
			return true, nil
		}
	}
}

func (sc *StreamClient) reportError(err error) {
	select {
	case sc.errors <- err:
	default:
	}
}
