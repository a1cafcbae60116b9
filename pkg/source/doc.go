// Package source provides the interface for inbound message sources.
//
// A Source delivers opaque byte payloads, one per upstream message, on a
// channel. It makes no attempt to decode them; detecting and dropping
// undecodable payloads is the dispatcher's job.
//
// Errors on the error channel are fatal. A source that loses its upstream
// connection reports it there and stops; reconnecting, if wanted, is the
// concern of whatever supervises the process.
//
// The interfaces use Go idioms:
//   - context.Context for cancellation of the receive loop
//   - Channels for streaming payloads and errors
//   - io.Closer for resource cleanup
//
// Example usage:
//
//	payloads, errs := src.Receive(ctx)
//	for {
//		select {
//		case raw, ok := <-payloads:
//			if !ok {
//				return
//			}
//			dispatcher.OnEvent(raw)
//		case err := <-errs:
//			return err
//		}
//	}
package source
