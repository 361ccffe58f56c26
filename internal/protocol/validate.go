package protocol

import (
	"encoding/json"
	"fmt"
)

var validClientTypes = map[string]bool{
	TypeConnectionInit: true,
	TypePing:           true,
	TypePong:           true,
	TypeSubscribe:      true,
	TypeComplete:       true,
}

var validServerTypes = map[string]bool{
	TypeConnectionAck: true,
	TypePing:          true,
	TypePong:          true,
	TypeNext:          true,
	TypeError:         true,
	TypeComplete:      true,
}

// operation types must carry an id.
var operationTypes = map[string]bool{
	TypeSubscribe: true,
	TypeNext:      true,
	TypeError:     true,
	TypeComplete:  true,
}

// ValidateClientMessage validates a raw JSON message sent by a client.
// Returns the parsed Message and any validation error; an error means the
// connection must be closed with CloseInvalidMessage.
func ValidateClientMessage(raw []byte) (*Message, error) {
	msg, err := decode(raw, validClientTypes)
	if err != nil {
		return nil, err
	}

	if msg.Type == TypeSubscribe {
		if _, err := DecodeSubscribe(msg); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// ValidateServerMessage validates a raw JSON message received from a server.
func ValidateServerMessage(raw []byte) (*Message, error) {
	msg, err := decode(raw, validServerTypes)
	if err != nil {
		return nil, err
	}
	if (msg.Type == TypeNext || msg.Type == TypeError) && len(msg.Payload) == 0 {
		return nil, fmt.Errorf("missing 'payload' field in %s", msg.Type)
	}
	return msg, nil
}

// DecodeSubscribe extracts the payload of a subscribe message.
func DecodeSubscribe(msg *Message) (*SubscribePayload, error) {
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("missing 'payload' field in %s", msg.Type)
	}
	var p SubscribePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return nil, fmt.Errorf("invalid payload for %s: %w", msg.Type, err)
	}
	if p.Query == "" {
		return nil, fmt.Errorf("missing required field 'query' in %s payload", msg.Type)
	}
	return &p, nil
}

func decode(raw []byte, allowed map[string]bool) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if msg.Type == "" {
		return nil, fmt.Errorf("missing 'type' field")
	}

	if !allowed[msg.Type] {
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}

	if operationTypes[msg.Type] && msg.ID == "" {
		return nil, fmt.Errorf("missing 'id' field in %s", msg.Type)
	}
	return &msg, nil
}
