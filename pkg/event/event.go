package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultKeyField is the attribute routed on when none is configured.
const DefaultKeyField = "server_name"

var (
	// ErrMalformedEvent is returned when a payload is not a JSON object.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrMissingKey is returned when the key attribute is absent or not a string.
	ErrMissingKey = errors.New("event key attribute missing")
)

// Event is one decoded inbound change. Events are transient and never stored.
type Event struct {
	// Key is the routing attribute matched against subscriber patterns
	Key string

	// Payload is the original JSON object, forwarded as-is to subscribers
	Payload json.RawMessage

	// ReceivedAt is when the relay decoded this event
	ReceivedAt time.Time
}

// Decode parses raw and extracts the string attribute at keyField.
// keyField uses gjson path syntax, so nested attributes such as "meta.domain"
// are supported. The payload is copied so callers may reuse raw.
func Decode(raw []byte, keyField string) (*Event, error) {
	if keyField == "" {
		keyField = DefaultKeyField
	}

	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedEvent)
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: expected JSON object, got %s", ErrMalformedEvent, doc.Type)
	}

	key := doc.Get(keyField)
	if !key.Exists() {
		return nil, fmt.Errorf("%w: %q not present", ErrMissingKey, keyField)
	}
	if key.Type != gjson.String {
		return nil, fmt.Errorf("%w: %q is %s, not a string", ErrMissingKey, keyField, key.Type)
	}

	payload := make([]byte, len(raw))
	copy(payload, raw)

	return &Event{
		Key:        key.String(),
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}, nil
}
