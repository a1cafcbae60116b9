package source

import (
	"context"
	"io"
)

// Source delivers raw inbound messages.
type Source interface {
	io.Closer

	// Receive starts consuming and returns a channel of payloads and a channel
	// of fatal errors. The payload channel is closed when ctx is cancelled,
	// the source is closed, or a fatal error has been reported.
	Receive(ctx context.Context) (<-chan []byte, <-chan error)

	// Name identifies the source in logs and health output.
	Name() string
}
