package source

import (
	"context"
	"errors"
	"sync"

	sourcepkg "github.com/rmacdonaldsmith/streamrelay/pkg/source"
)

// ErrSourceClosed is returned when publishing to a closed ChannelSource.
var ErrSourceClosed = errors.New("source is closed")

// ChannelSource is an in-memory Source fed by Publish. It is used to embed the
// relay in another process and in tests.
type ChannelSource struct {
	name  string
	input chan []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	fail   chan error
}

// NewChannelSource creates a source whose Publish blocks once size payloads
// are queued.
func NewChannelSource(name string, size int) *ChannelSource {
	if size < 0 {
		size = 0
	}
	return &ChannelSource{
		name:  name,
		input: make(chan []byte, size),
		done:  make(chan struct{}),
		fail:  make(chan error, 1),
	}
}

// Name returns the name given at construction.
func (s *ChannelSource) Name() string {
	return s.name
}

// Publish queues raw for delivery. It blocks while the queue is full.
func (s *ChannelSource) Publish(ctx context.Context, raw []byte) error {
	select {
	case <-s.done:
		return ErrSourceClosed
	default:
	}
	select {
	case s.input <- raw:
		return nil
	case <-s.done:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fail reports err as fatal to the current receiver.
func (s *ChannelSource) Fail(err error) {
	select {
	case s.fail <- err:
	default:
	}
}

// Receive forwards published payloads until ctx is cancelled, the source is
// closed, or Fail is called.
func (s *ChannelSource) Receive(ctx context.Context) (<-chan []byte, <-chan error) {
	out := make(chan []byte)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case err := <-s.fail:
				errs <- err
				return
			case raw := <-s.input:
				select {
				case out <- raw:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errs
}

// Close stops every receiver. Further publishes fail with ErrSourceClosed.
func (s *ChannelSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

// Compile-time interface compliance check
var _ sourcepkg.Source = (*ChannelSource)(nil)
