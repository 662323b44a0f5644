// Package proto defines the JSON envelope exchanged over the websocket.
package proto

import "encoding/json"

// Envelope frames every message in both directions: an event name plus an
// arbitrary payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope builds an envelope, marshaling the payload. A payload that
// cannot be marshaled yields an envelope without data.
func NewEnvelope(event string, payload any) Envelope {
	env := Envelope{Event: event}
	if payload == nil {
		return env
	}
	if raw, err := json.Marshal(payload); err == nil {
		env.Data = raw
	}
	return env
}
