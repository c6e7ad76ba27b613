package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wildcard is the event type whose handlers receive every decoded frame.
const Wildcard = "*"

// Message is one decoded server-push frame.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalData decodes the frame payload into the provided value.
func (m *Message) UnmarshalData(v any) error {
	if len(m.Data) == 0 {
		return errors.New("message has no data")
	}
	return json.Unmarshal(m.Data, v)
}

// authFrame is the only frame the client generates on its own.
type authFrame struct {
	Type     string `json:"type"`
	FarmerID string `json:"farmerId"`
}

func marshalAuth(identity string) ([]byte, error) {
	return json.Marshal(authFrame{Type: "auth", FarmerID: identity})
}

// parseFrame decodes a raw inbound frame. Frames that are not JSON objects
// or carry no type are rejected.
func parseFrame(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	if msg.Type == "" {
		return nil, errors.New("parse frame: missing type")
	}
	return &msg, nil
}
