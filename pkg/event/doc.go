// Package event decodes inbound change events and extracts their routing key.
//
// An inbound payload is an opaque JSON object. The relay only needs one string
// attribute from it, the key (by default "server_name"), which is matched
// against subscriber patterns. The payload itself is forwarded untouched.
//
// Decode fails with ErrMalformedEvent when the payload is not a JSON object and
// with ErrMissingKey when the key attribute is absent or not a string. Both are
// drop-and-log conditions for the caller; neither is retried.
//
// Example usage:
//
//	ev, err := event.Decode(raw, event.DefaultKeyField)
//	if err != nil {
//		logger.Warn("dropping event", "error", err)
//		return
//	}
//	fmt.Println(ev.Key) // "en.wikipedia.org"
package event
