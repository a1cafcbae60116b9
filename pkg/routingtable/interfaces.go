package routingtable

import (
	"errors"
	"io"
)

var (
	// ErrDuplicateConnection is returned when a connection ID is registered twice.
	ErrDuplicateConnection = errors.New("connection already registered")

	// ErrUnknownConnection is returned when subscribing on a connection that was never registered.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrSubscriptionLimitExceeded is returned when a subscribe batch would take a
	// connection past its pattern cap. Patterns added earlier in the same batch are kept.
	ErrSubscriptionLimitExceeded = errors.New("subscription limit exceeded")

	// ErrRegistryClosed is returned by mutations after Close.
	ErrRegistryClosed = errors.New("registry is closed")
)

// DefaultMaxSubscriptions is the per-connection pattern cap.
const DefaultMaxSubscriptions = 10

// Snapshot maps every registered connection to a copy of its ordered patterns.
type Snapshot map[ConnID][]string

// Registry manages the pattern subscriptions of every active connection.
// It is the single source of truth for which connections exist.
type Registry interface {
	io.Closer

	// OnConnect creates an empty subscription set for id.
	OnConnect(id ConnID) error

	// Subscribe appends each new pattern in order, skipping duplicates, and
	// re-sorts the set after every addition. It stops at the cap and returns
	// ErrSubscriptionLimitExceeded along with the patterns already added.
	Subscribe(id ConnID, patterns ...string) ([]string, error)

	// Unsubscribe removes exact pattern matches. Unknown patterns and
	// connections are ignored.
	Unsubscribe(id ConnID, patterns ...string)

	// OnDisconnect deletes the connection. Unknown IDs are a no-op.
	OnDisconnect(id ConnID)

	// Patterns returns a copy of one connection's patterns.
	Patterns(id ConnID) ([]string, bool)

	// Snapshot returns a consistent copy of all connections and their patterns.
	Snapshot() Snapshot

	// ConnectionCount returns the number of registered connections.
	ConnectionCount() int

	// SubscriptionCount returns the total number of patterns across connections.
	SubscriptionCount() int
}
