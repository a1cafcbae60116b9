package routingtable

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rmacdonaldsmith/streamrelay/pkg/routingtable"
)

// InMemoryRegistry implements routingtable.Registry with a map guarded by a
// single RWMutex. Every mutation and every Snapshot runs under that one lock,
// so readers never observe a partially updated connection.
//
// Nothing is persisted; a restart starts from an empty registry.
type InMemoryRegistry struct {
	mu               sync.RWMutex
	maxSubscriptions int
	connections      map[routingtable.ConnID][]string
	closed           bool
}

// NewInMemoryRegistry creates a registry with the given per-connection cap.
// A non-positive cap falls back to routingtable.DefaultMaxSubscriptions.
func NewInMemoryRegistry(maxSubscriptions int) *InMemoryRegistry {
	if maxSubscriptions <= 0 {
		maxSubscriptions = routingtable.DefaultMaxSubscriptions
	}
	return &InMemoryRegistry{
		maxSubscriptions: maxSubscriptions,
		connections:      make(map[routingtable.ConnID][]string),
	}
}

// MaxSubscriptions returns the per-connection pattern cap.
func (r *InMemoryRegistry) MaxSubscriptions() int {
	return r.maxSubscriptions
}

// OnConnect creates an empty subscription set for id.
func (r *InMemoryRegistry) OnConnect(id routingtable.ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return routingtable.ErrRegistryClosed
	}
	if _, exists := r.connections[id]; exists {
		return routingtable.ErrDuplicateConnection
	}

	r.connections[id] = []string{}
	return nil
}

// Subscribe adds patterns to id in the order given.
//
// The batch is not transactional: when the cap is reached, patterns accepted
// earlier in the same call stay subscribed and ErrSubscriptionLimitExceeded is
// returned together with them. Duplicates are skipped before the cap is
// checked, so re-subscribing an existing pattern on a full connection is not
// an error.
func (r *InMemoryRegistry) Subscribe(id routingtable.ConnID, patterns ...string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, routingtable.ErrRegistryClosed
	}

	current, exists := r.connections[id]
	if !exists {
		return nil, routingtable.ErrUnknownConnection
	}

	added := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if slices.Contains(current, pattern) {
			continue
		}
		if len(current) >= r.maxSubscriptions {
			r.connections[id] = current
			return added, routingtable.ErrSubscriptionLimitExceeded
		}

		current = append(current, pattern)
		sortPatterns(current)
		added = append(added, pattern)
	}

	r.connections[id] = current
	return added, nil
}

// Unsubscribe removes every listed pattern that id currently holds.
func (r *InMemoryRegistry) Unsubscribe(id routingtable.ConnID, patterns ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.connections[id]
	if !exists || len(patterns) == 0 {
		return
	}

	r.connections[id] = slices.DeleteFunc(current, func(p string) bool {
		return slices.Contains(patterns, p)
	})
}

// OnDisconnect removes id and all of its patterns.
func (r *InMemoryRegistry) OnDisconnect(id routingtable.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connections, id)
}

// Patterns returns a copy of the patterns held by id.
func (r *InMemoryRegistry) Patterns(id routingtable.ConnID) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current, exists := r.connections[id]
	if !exists {
		return nil, false
	}
	return slices.Clone(current), true
}

// Snapshot returns a deep copy of every connection's patterns.
func (r *InMemoryRegistry) Snapshot() routingtable.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(routingtable.Snapshot, len(r.connections))
	for id, patterns := range r.connections {
		snapshot[id] = slices.Clone(patterns)
	}
	return snapshot
}

// ConnectionCount returns the number of registered connections.
func (r *InMemoryRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// SubscriptionCount returns the number of patterns across all connections.
func (r *InMemoryRegistry) SubscriptionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, patterns := range r.connections {
		total += len(patterns)
	}
	return total
}

// Close drops all connections. Further OnConnect and Subscribe calls fail.
func (r *InMemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	clear(r.connections)
	return nil
}

// sortPatterns orders wildcard patterns before literal ones, then shorter
// before longer. The sort is stable so equal keys keep insertion order.
func sortPatterns(patterns []string) {
	slices.SortStableFunc(patterns, func(a, b string) int {
		aWild := strings.Contains(a, Wildcard)
		bWild := strings.Contains(b, Wildcard)
		if aWild != bWild {
			if aWild {
				return -1
			}
			return 1
		}
		return cmp.Compare(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	})
}

// Verify that InMemoryRegistry implements the Registry interface at compile time
var _ routingtable.Registry = (*InMemoryRegistry)(nil)
