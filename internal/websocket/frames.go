package websocket

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/rmacdonaldsmith/streamrelay/pkg/relay"
)

// Client frame event names.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
)

// serverFrame is the outbound envelope.
type serverFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func encodeFrame(eventName string, data []byte) ([]byte, error) {
	if len(data) == 0 {
		data = []byte("null")
	}
	return json.Marshal(serverFrame{Event: eventName, Data: data})
}

func encodeError(code string) ([]byte, error) {
	data, err := json.Marshal(code)
	if err != nil {
		return nil, err
	}
	return encodeFrame(relay.ErrorEventName, data)
}

// clientFrame is a decoded inbound request. Patterns holds the string
// elements of data; other element types are skipped.
type clientFrame struct {
	Event    string
	Patterns []string
}

func decodeClientFrame(raw []byte) (clientFrame, bool) {
	if !gjson.ValidBytes(raw) {
		return clientFrame{}, false
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return clientFrame{}, false
	}

	frame := clientFrame{Event: doc.Get("event").String()}
	data := doc.Get("data")
	switch {
	case data.Type == gjson.String:
		frame.Patterns = []string{data.String()}
	case data.IsArray():
		for _, elem := range data.Array() {
			if elem.Type == gjson.String {
				frame.Patterns = append(frame.Patterns, elem.String())
			}
		}
	}
	return frame, true
}
