package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	sourcepkg "github.com/rmacdonaldsmith/streamrelay/pkg/source"
)

// ErrSubscriptionClosed is reported when Redis ends the subscription.
var ErrSubscriptionClosed = errors.New("redis subscription closed")

// RedisSource reads inbound payloads from one or more Redis Pub/Sub channels.
type RedisSource struct {
	config *Config
	rdb    *goredis.Client

	mu     sync.Mutex
	subs   []*goredis.PubSub
	closed bool
}

// NewRedisSource creates a source from config. It does not connect until
// Receive is called.
func NewRedisSource(config *Config) (*RedisSource, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.SetDefaults()

	opts, err := goredis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisSource{
		config: config,
		rdb:    goredis.NewClient(opts),
	}, nil
}

// Name identifies the source as redis plus its channels.
func (s *RedisSource) Name() string {
	return "redis:" + strings.Join(s.config.Channels, ",")
}

// Ping verifies the Redis connection.
func (s *RedisSource) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.PingTimeout)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

// Receive pings Redis, subscribes to the configured channels and forwards
// each message payload. A failed ping or a subscription that closes while
// ctx is live is reported as fatal on the error channel.
func (s *RedisSource) Receive(ctx context.Context) (<-chan []byte, <-chan error) {
	out := make(chan []byte, s.config.BufferSize)
	errs := make(chan error, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		errs <- fmt.Errorf("receive on closed source")
		close(out)
		return out, errs
	}
	s.mu.Unlock()

	if err := s.Ping(ctx); err != nil {
		errs <- fmt.Errorf("redis ping failed: %w", err)
		close(out)
		return out, errs
	}

	sub := s.rdb.Subscribe(ctx, s.config.Channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		errs <- fmt.Errorf("redis subscribe failed: %w", err)
		close(out)
		return out, errs
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	go func() {
		defer close(out)
		defer s.release(sub)

		msgCh := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgCh:
				if !ok {
					if ctx.Err() == nil && !s.isClosed() {
						errs <- ErrSubscriptionClosed
					}
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errs
}

func (s *RedisSource) release(sub *goredis.PubSub) {
	s.mu.Lock()
	for i, existing := range s.subs {
		if existing == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	_ = sub.Close()
}

func (s *RedisSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close ends every active subscription and closes the Redis client.
func (s *RedisSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return s.rdb.Close()
}

// Compile-time interface compliance check
var _ sourcepkg.Source = (*RedisSource)(nil)
