package core

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"huddle/internal/storage/memory"
)

// sent is one event delivered to a fake channel.
type sent struct {
	event   string
	payload any
}

// fakeHub implements GroupHub over plain maps and delivers broadcasts to
// fake channels so tests can assert what each client saw.
type fakeHub struct {
	groups map[string]map[string]*fakeChannel
}

func newFakeHub() *fakeHub {
	return &fakeHub{groups: make(map[string]map[string]*fakeChannel)}
}

func (h *fakeHub) GroupSize(group string) int {
	return len(h.groups[group])
}

func (h *fakeHub) GroupMembers(group string) []string {
	ids := make([]string, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		ids = append(ids, id)
	}
	return ids
}

func (h *fakeHub) Broadcast(group, event string, payload any) {
	for _, ch := range h.groups[group] {
		ch.received = append(ch.received, sent{event: event, payload: payload})
	}
}

func (h *fakeHub) broadcastExcept(group, event string, payload any, exceptID string) {
	for id, ch := range h.groups[group] {
		if id == exceptID {
			continue
		}
		ch.received = append(ch.received, sent{event: event, payload: payload})
	}
}

// fakeChannel implements Channel, recording every event delivered to it.
type fakeChannel struct {
	id       string
	hub      *fakeHub
	received []sent
	handlers map[string][]fakeHandler
}

type fakeHandler struct {
	fn   func(json.RawMessage)
	once bool
}

func newFakeChannel(id string, hub *fakeHub) *fakeChannel {
	return &fakeChannel{id: id, hub: hub, handlers: make(map[string][]fakeHandler)}
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) Join(group string) {
	if c.hub.groups[group] == nil {
		c.hub.groups[group] = make(map[string]*fakeChannel)
	}
	c.hub.groups[group][c.id] = c
}

func (c *fakeChannel) Leave(group string) {
	delete(c.hub.groups[group], c.id)
	if len(c.hub.groups[group]) == 0 {
		delete(c.hub.groups, group)
	}
}

func (c *fakeChannel) Emit(event string, payload any) {
	c.received = append(c.received, sent{event: event, payload: payload})
}

func (c *fakeChannel) EmitTo(group, event string, payload any) {
	c.hub.broadcastExcept(group, event, payload, c.id)
}

func (c *fakeChannel) On(event string, handler func(json.RawMessage)) {
	c.handlers[event] = append(c.handlers[event], fakeHandler{fn: handler})
}

func (c *fakeChannel) Once(event string, handler func(json.RawMessage)) {
	c.handlers[event] = append(c.handlers[event], fakeHandler{fn: handler, once: true})
}

func (c *fakeChannel) Off(event string) {
	delete(c.handlers, event)
}

// deliver simulates an inbound client message.
func (c *fakeChannel) deliver(t *testing.T, event string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload for %s: %v", event, err)
	}

	entries := c.handlers[event]
	kept := entries[:0]
	for _, e := range entries {
		e.fn(raw)
		if !e.once {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(c.handlers, event)
	} else {
		c.handlers[event] = kept
	}
}

// eventsNamed filters the events a channel received by name.
func (c *fakeChannel) eventsNamed(event string) []sent {
	var out []sent
	for _, s := range c.received {
		if s.event == event {
			out = append(out, s)
		}
	}
	return out
}

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// newTestRoom builds a room over a fresh memory store and fake hub.
func newTestRoom(name string, maxUsers int) (*Room, *fakeHub, *memory.Store) {
	hub := newFakeHub()
	store := memory.New()
	room := NewRoom(name, hub, store, testLogger())
	room.MaxUsers = maxUsers
	return room, hub, store
}

// newTestUser builds a user with an attached fake channel.
func newTestUser(id string, hub *fakeHub, store *memory.Store) (*User, *fakeChannel) {
	ch := newFakeChannel(id, hub)
	user := NewUser(id, store, testLogger())
	user.SetChannel(ch)
	return user, ch
}

func mustMembers(t *testing.T, store *memory.Store, index string) []string {
	t.Helper()
	members, err := store.IndexGet(t.Context(), index)
	if err != nil {
		t.Fatalf("index get %s: %v", index, err)
	}
	return members
}
