package ws

import (
	"encoding/json"
	"sync"

	"huddle/internal/proto"
)

const outboundBuffer = 32

// Conn is one live websocket connection. It implements core.Channel; the
// handler goroutines own the actual socket reads and writes.
type Conn struct {
	id  string
	hub *Hub

	// out is drained by the write loop. Sends never block; a slow
	// consumer drops messages.
	out chan proto.Envelope

	mu       sync.Mutex
	handlers map[string][]handlerEntry
}

type handlerEntry struct {
	fn   func(json.RawMessage)
	once bool
}

// NewConn builds a connection with the given transport-assigned id.
func NewConn(id string, hub *Hub) *Conn {
	return &Conn{
		id:       id,
		hub:      hub,
		out:      make(chan proto.Envelope, outboundBuffer),
		handlers: make(map[string][]handlerEntry),
	}
}

// ID returns the transport-assigned connection id.
func (c *Conn) ID() string {
	return c.id
}

// Join adds this connection to a broadcast group.
func (c *Conn) Join(group string) {
	c.hub.join(c, group)
}

// Leave removes this connection from a broadcast group.
func (c *Conn) Leave(group string) {
	c.hub.leave(c, group)
}

// Emit sends an event directly to this connection.
func (c *Conn) Emit(event string, payload any) {
	c.enqueue(proto.NewEnvelope(event, payload))
}

// EmitTo sends an event to every member of a group except this connection.
func (c *Conn) EmitTo(group, event string, payload any) {
	c.hub.broadcastExcept(group, event, payload, c.id)
}

// On registers a handler for an inbound event.
func (c *Conn) On(event string, handler func(json.RawMessage)) {
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], handlerEntry{fn: handler})
	c.mu.Unlock()
}

// Once registers a handler that fires at most one time.
func (c *Conn) Once(event string, handler func(json.RawMessage)) {
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], handlerEntry{fn: handler, once: true})
	c.mu.Unlock()
}

// Off removes all handlers for an inbound event.
func (c *Conn) Off(event string) {
	c.mu.Lock()
	delete(c.handlers, event)
	c.mu.Unlock()
}

// dispatch runs the handlers registered for an inbound event, dropping
// one-shot handlers after their first invocation.
func (c *Conn) dispatch(event string, payload json.RawMessage) {
	c.mu.Lock()
	entries := c.handlers[event]
	kept := entries[:0]
	run := make([]func(json.RawMessage), 0, len(entries))
	for _, e := range entries {
		run = append(run, e.fn)
		if !e.once {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(c.handlers, event)
	} else {
		c.handlers[event] = kept
	}
	c.mu.Unlock()

	for _, fn := range run {
		fn(payload)
	}
}

func (c *Conn) enqueue(env proto.Envelope) {
	select {
	case c.out <- env:
	default:
		// Drop if slow consumer.
	}
}

// Outbound exposes the envelopes queued for this connection.
func (c *Conn) Outbound() <-chan proto.Envelope {
	return c.out
}
