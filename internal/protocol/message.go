// Package protocol defines the graphql-transport-ws message envelope.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Subprotocol is the websocket subprotocol negotiated by server and client.
const Subprotocol = "graphql-transport-ws"

// Message types exchanged in both directions.
const (
	TypeConnectionInit = "connection_init"
	TypeConnectionAck  = "connection_ack"
	TypePing           = "ping"
	TypePong           = "pong"
	TypeSubscribe      = "subscribe"
	TypeNext           = "next"
	TypeError          = "error"
	TypeComplete       = "complete"
)

// Close codes used to terminate a connection.
const (
	CloseInvalidMessage   = 4400
	CloseUnauthorized     = 4401
	CloseInitTimeout      = 4408
	CloseSubscriberExists = 4409
	CloseTooManyInit      = 4429
)

// Message is the envelope for every frame. ID is set for operation messages
// (subscribe, next, error, complete).
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload starts an operation.
type SubscribePayload struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	Extensions    map[string]interface{} `json:"extensions,omitempty"`
}

// ErrorEntry is one GraphQL error as carried by an error message.
type ErrorEntry struct {
	Message string `json:"message"`
}

// NewMessage creates a message with the payload marshalled to JSON. A nil
// payload leaves the field out.
func NewMessage(msgType, id string, payload interface{}) (*Message, error) {
	msg := &Message{ID: id, Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		msg.Payload = data
	}
	return msg, nil
}

// Encode marshals a message for the wire.
func Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

// NewSubscribe creates a subscribe message for the given operation id.
func NewSubscribe(id string, payload SubscribePayload) (*Message, error) {
	return NewMessage(TypeSubscribe, id, payload)
}

// NewErrorMessage creates an error message. errs is marshalled as the
// payload and must encode to a JSON array.
func NewErrorMessage(id string, errs interface{}) (*Message, error) {
	return NewMessage(TypeError, id, errs)
}
