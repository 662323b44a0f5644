package core

import "encoding/json"

// Channel is one live bidirectional connection as the core sees it. The
// surrounding service supplies the implementation; the core never touches
// framing, reconnection or heartbeats.
type Channel interface {
	// ID is the stable identifier the transport assigned to this connection.
	ID() string

	// Join adds this channel to a broadcast group.
	Join(group string)
	// Leave removes this channel from a broadcast group.
	Leave(group string)

	// Emit sends an event directly to this channel.
	Emit(event string, payload any)
	// EmitTo sends an event to every member of a group except this channel.
	EmitTo(group, event string, payload any)

	// On registers a handler for an inbound event.
	On(event string, handler func(payload json.RawMessage))
	// Once registers a handler that fires at most one time.
	Once(event string, handler func(payload json.RawMessage))
	// Off removes all handlers for an inbound event.
	Off(event string)
}

// GroupHub is the transport layer's authoritative view of group membership.
// Occupancy is always read from here, never cached, because membership can
// change from other instances without local notification.
type GroupHub interface {
	// GroupSize returns the live member count of a group, 0 if unknown.
	GroupSize(group string) int
	// GroupMembers returns the channel ids currently joined to a group.
	GroupMembers(group string) []string
	// Broadcast sends an event to every member of a group.
	Broadcast(group, event string, payload any)
}
