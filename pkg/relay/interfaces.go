package relay

import (
	"context"
	"io"

	"github.com/rmacdonaldsmith/streamrelay/pkg/routingtable"
)

// Default wire names.
const (
	// DefaultEventName is the name events are pushed under
	DefaultEventName = "change"

	// ErrorEventName is the name error signals are pushed under
	ErrorEventName = "error"

	// SubscribeErrorCode signals that a subscribe batch hit the pattern cap
	SubscribeErrorCode = "subscribe_error"
)

// Pusher is the outbound connection transport as seen by the core.
// Neither method returns anything: there is no delivery guarantee.
type Pusher interface {
	// Push sends payload to one connection under eventName.
	Push(id routingtable.ConnID, eventName string, payload []byte)

	// Error signals an error code to one connection.
	Error(id routingtable.ConnID, code string)
}

// BatchPusher is a Pusher that can send one payload to many connections in a
// single call. The dispatcher uses PushMany when the transport offers it.
type BatchPusher interface {
	Pusher

	// PushMany sends payload to every id under eventName.
	PushMany(ids []routingtable.ConnID, eventName string, payload []byte)
}

// Node represents a running relay.
type Node interface {
	io.Closer

	// Start begins consuming the source.
	Start(ctx context.Context) error

	// Stop stops consuming the source. The node can be started again.
	Stop(ctx context.Context) error

	// Fatal delivers unrecoverable upstream errors. The process is expected to exit.
	Fatal() <-chan error

	// GetRegistry returns the subscription registry.
	GetRegistry() routingtable.Registry

	// GetHealth returns the overall health status of this node.
	GetHealth(ctx context.Context) (HealthStatus, error)
}

// HealthStatus represents the overall health of a relay node
type HealthStatus struct {
	// Healthy indicates if the node is functioning properly
	Healthy bool

	// SourceHealthy indicates if the inbound source is being consumed
	SourceHealthy bool

	// Source names the inbound source
	Source string

	// ConnectedClients is the number of registered connections
	ConnectedClients int

	// Subscriptions is the total number of patterns across all connections
	Subscriptions int

	// EventsReceived counts inbound payloads since start
	EventsReceived uint64

	// EventsDropped counts malformed payloads since start
	EventsDropped uint64

	// Message provides additional health information
	Message string
}
