// Package relay provides interfaces for the relay node and its outbound transport.
//
// This package defines the core abstractions that tie the relay together:
//   - Pusher: One-way push into subscriber connections
//   - Node: Orchestrator that consumes a source and fans events out
//   - HealthStatus: Health monitoring and status reporting
//
// Architecture:
//  1. A connection transport reports connects and disconnects and forwards
//     subscribe/unsubscribe requests straight to the routing registry
//  2. The node consumes the inbound source on a single goroutine
//  3. For each payload the dispatcher decodes the event, takes a registry
//     snapshot and pushes the event to every connection with a matching pattern
//
// Push is fire-and-forget: no acknowledgment, no retry, no ordering between
// connections. A transport that cannot accept a frame drops it.
//
// Example usage:
//
//	node, err := relay.NewNode(config, src, registry, hub)
//	if err != nil {
//		return err
//	}
//	defer node.Close()
//
//	if err := node.Start(ctx); err != nil {
//		return err
//	}
//
//	select {
//	case err := <-node.Fatal():
//		return err
//	case <-ctx.Done():
//	}
package relay
