// Package ws supplies the websocket transport consumed by the core: live
// connections implementing the Channel contract and a group registry that
// is the authoritative source of occupancy.
package ws

import (
	"sync"

	"huddle/internal/proto"
)

// Hub tracks connections and their broadcast groups for this process.
// It implements core.GroupHub.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	groups map[string]map[string]*Conn
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]*Conn),
		groups: make(map[string]map[string]*Conn),
	}
}

// Register tracks a connection.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

// Unregister forgets a connection and drops it from every group. Group
// membership cleanup on disconnect belongs to the transport layer, not the
// entities.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c.id)
	for name, group := range h.groups {
		delete(group, c.id)
		if len(group) == 0 {
			delete(h.groups, name)
		}
	}
	h.mu.Unlock()
}

// GroupSize returns the live member count of a group, 0 if unknown.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// GroupMembers returns the connection ids currently joined to a group.
func (h *Hub) GroupMembers(group string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast sends an event to every member of a group.
func (h *Hub) Broadcast(group, event string, payload any) {
	h.send(group, event, payload, "")
}

// broadcastExcept sends to every group member except one connection.
func (h *Hub) broadcastExcept(group, event string, payload any, exceptID string) {
	h.send(group, event, payload, exceptID)
}

func (h *Hub) send(group, event string, payload any, exceptID string) {
	env := proto.NewEnvelope(event, payload)

	h.mu.RLock()
	members := make([]*Conn, 0, len(h.groups[group]))
	for id, c := range h.groups[group] {
		if id == exceptID {
			continue
		}
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.enqueue(env)
	}
}

func (h *Hub) join(c *Conn, group string) {
	h.mu.Lock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]*Conn)
	}
	h.groups[group][c.id] = c
	h.mu.Unlock()
}

func (h *Hub) leave(c *Conn, group string) {
	h.mu.Lock()
	if members, ok := h.groups[group]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	h.mu.Unlock()
}
