package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewMessage(t *testing.T) {
	msg, err := NewSubscribe("op-1", SubscribePayload{
		Query:     "subscription { events { __typename } }",
		Variables: map[string]interface{}{"name": "DP-1"},
	})
	if err != nil {
		t.Fatalf("NewSubscribe failed: %v", err)
	}

	if msg.Type != TypeSubscribe || msg.ID != "op-1" {
		t.Errorf("unexpected envelope %+v", msg)
	}

	var p SubscribePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Variables["name"] != "DP-1" {
		t.Errorf("expected variable name=DP-1, got %v", p.Variables)
	}
}

func TestNewMessage_NilPayloadOmitted(t *testing.T) {
	msg, err := NewMessage(TypeConnectionAck, "", nil)
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(data) != `{"type":"connection_ack"}` {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestNewErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage("7", []ErrorEntry{{Message: "boom"}})
	if err != nil {
		t.Fatalf("NewErrorMessage failed: %v", err)
	}
	data, _ := Encode(msg)
	if string(data) != `{"id":"7","type":"error","payload":[{"message":"boom"}]}` {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestValidateClientMessage_Valid(t *testing.T) {
	tests := []string{
		`{"type":"connection_init"}`,
		`{"type":"connection_init","payload":{"token":"x"}}`,
		`{"type":"ping"}`,
		`{"type":"pong","payload":{}}`,
		`{"id":"1","type":"subscribe","payload":{"query":"{ outputs { name } }"}}`,
		`{"id":"1","type":"complete"}`,
	}
	for _, raw := range tests {
		if _, err := ValidateClientMessage([]byte(raw)); err != nil {
			t.Errorf("ValidateClientMessage(%s) failed: %v", raw, err)
		}
	}
}

func TestValidateClientMessage_Invalid(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`not json`, "invalid JSON"},
		{`{"payload":{}}`, "missing 'type'"},
		{`{"type":"next","id":"1","payload":{}}`, "unknown message type"},
		{`{"type":"connection_ack"}`, "unknown message type"},
		{`{"type":"subscribe","payload":{"query":"{}"}}`, "missing 'id'"},
		{`{"type":"complete"}`, "missing 'id'"},
		{`{"id":"1","type":"subscribe"}`, "missing 'payload'"},
		{`{"id":"1","type":"subscribe","payload":{}}`, "missing required field 'query'"},
		{`{"id":"1","type":"subscribe","payload":"nope"}`, "invalid payload"},
	}
	for _, tt := range tests {
		_, err := ValidateClientMessage([]byte(tt.raw))
		if err == nil {
			t.Errorf("ValidateClientMessage(%s): expected error", tt.raw)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("ValidateClientMessage(%s) = %v, want error containing %q", tt.raw, err, tt.want)
		}
	}
}

func TestValidateServerMessage(t *testing.T) {
	valid := []string{
		`{"type":"connection_ack"}`,
		`{"id":"1","type":"next","payload":{"data":{}}}`,
		`{"id":"1","type":"error","payload":[{"message":"x"}]}`,
		`{"id":"1","type":"complete"}`,
	}
	for _, raw := range valid {
		if _, err := ValidateServerMessage([]byte(raw)); err != nil {
			t.Errorf("ValidateServerMessage(%s) failed: %v", raw, err)
		}
	}

	invalid := []string{
		`{"type":"subscribe","id":"1","payload":{"query":"{}"}}`,
		`{"type":"next","payload":{}}`,
		`{"id":"1","type":"next"}`,
	}
	for _, raw := range invalid {
		if _, err := ValidateServerMessage([]byte(raw)); err == nil {
			t.Errorf("ValidateServerMessage(%s): expected error", raw)
		}
	}
}
