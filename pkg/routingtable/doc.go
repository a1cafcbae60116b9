// Package routingtable provides interfaces for per-connection pattern subscriptions.
//
// This package defines the core abstractions for the relay's routing component:
//   - ConnID: Identifier of one subscriber connection
//   - Snapshot: Point-in-time copy of every connection's patterns
//   - Registry: Owner of each connection's ordered, capped pattern set
//
// Patterns are matched against an event's key attribute as whole strings.
// The only special character is "*", which matches any run of characters,
// including the empty one:
//   - "en.wikipedia.org" matches only "en.wikipedia.org"
//   - "*.wikipedia.org" matches "en.wikipedia.org" and ".wikipedia.org",
//     but not "wikipedia.org"
//   - "*" matches everything
//
// A connection holds at most a fixed number of distinct patterns (10 unless
// configured otherwise). Patterns are kept sorted: wildcard patterns first,
// then shorter patterns before longer ones.
//
// Example usage:
//
//	id := routingtable.NewConnID()
//	if err := registry.OnConnect(id); err != nil {
//		return err
//	}
//
//	added, err := registry.Subscribe(id, "*.wikipedia.org", "commons.wikimedia.org")
//	if errors.Is(err, routingtable.ErrSubscriptionLimitExceeded) {
//		// patterns in added were kept; the rest of the batch was rejected
//	}
//
//	for id, patterns := range registry.Snapshot() {
//		...
//	}
//
//	registry.OnDisconnect(id)
package routingtable
