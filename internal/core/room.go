package core

import (
	"context"

	"github.com/rs/zerolog"

	"huddle/internal/storage"
)

// RoomRecord is the persisted shape of a room under Room:<name>.
type RoomRecord struct {
	CanBeClosed bool       `json:"canBeClosed"`
	MaxUsers    int        `json:"maxUsers"`
	Properties  Properties `json:"properties"`
}

// Room is a named group of users. Occupancy is never cached on the room;
// it is derived live from the transport layer's group membership, which may
// change from other instances without this object being notified.
type Room struct {
	emitter

	Name string
	// CanBeClosed marks the room's persisted record for deletion once
	// occupancy reaches zero.
	CanBeClosed bool
	// MaxUsers caps occupancy. 0 means unbounded.
	MaxUsers   int
	Properties Properties

	hub     GroupHub
	storage storage.Adapter
	log     *zerolog.Logger
}

// NewRoom constructs a room. Callers set capacity and closability before
// persisting.
func NewRoom(name string, hub GroupHub, st storage.Adapter, logger *zerolog.Logger) *Room {
	return &Room{
		Name:        name,
		CanBeClosed: true,
		hub:         hub,
		storage:     st,
		log:         logger,
	}
}

// AddUser admits a user into the room. When the room is at capacity it
// fails with RoomFullError and mutates nothing. The transport join happens
// before event emission, which happens before the index writes: a
// user-enter listener can rely on the user being reachable via group
// broadcast but must not assume the index write has completed.
func (r *Room) AddUser(ctx context.Context, user *User) error {
	if r.MaxUsers > 0 && r.Occupancy() >= r.MaxUsers {
		return &RoomFullError{Room: r.Name, MaxUsers: r.MaxUsers}
	}

	if ch := user.Channel(); ch != nil {
		ch.Join(r.Name)
	}
	r.emit(Event{Kind: EventUserEnter, Room: r, User: user})

	if r.MaxUsers > 0 && r.Occupancy() == r.MaxUsers {
		r.emit(Event{Kind: EventRoomFull, Room: r})
	}

	return r.updateIndexes(ctx, user.ID, true)
}

// RemoveUser removes a user from the room. Removing a non-member is a
// no-op at the transport level but still issues the index removals, which
// are idempotent. When a closable room empties, its persisted record is
// deleted; the in-memory handle stays valid for callers still holding it.
func (r *Room) RemoveUser(ctx context.Context, user *User) error {
	if ch := user.Channel(); ch != nil {
		ch.EmitTo(r.Name, MessageUserLeave, user.ID)
		ch.Leave(r.Name)
	} else {
		r.hub.Broadcast(r.Name, MessageUserLeave, user.ID)
	}
	r.emit(Event{Kind: EventUserLeave, Room: r, User: user})

	if r.CanBeClosed && r.Occupancy() == 0 {
		if err := r.storage.Delete(ctx, RoomKey(r.Name)); err != nil {
			r.log.Warn().Err(err).Str("room", r.Name).Msg("delete empty room record")
		}
		r.emit(Event{Kind: EventRoomEmpty, Room: r})
	}

	return r.updateIndexes(ctx, user.ID, false)
}

// updateIndexes writes the mirrored membership pair. The two writes are
// issued independently; a partial failure leaves the indexes inconsistent
// and is reported to the caller rather than rolled back.
func (r *Room) updateIndexes(ctx context.Context, userID string, add bool) error {
	op := r.storage.IndexRemove
	if add {
		op = r.storage.IndexAdd
	}

	var firstErr error
	if err := op(ctx, RoomUsersIndex(r.Name), userID); err != nil {
		r.log.Error().Err(err).Str("room", r.Name).Str("user_id", userID).Msg("room-users index write")
		firstErr = err
	}
	if err := op(ctx, UserRoomsIndex(userID), r.Name); err != nil {
		r.log.Error().Err(err).Str("room", r.Name).Str("user_id", userID).Msg("user-rooms index write")
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Broadcast sends an event to every member of the room's group.
// Fire-and-forget, no delivery acknowledgment.
func (r *Room) Broadcast(event string, payload any) {
	r.hub.Broadcast(r.Name, event, payload)
}

// Occupancy reads the live transport group size, 0 if the group is unknown.
func (r *Room) Occupancy() int {
	return r.hub.GroupSize(r.Name)
}

// Persist writes {canBeClosed, maxUsers, properties} under Room:<name>.
func (r *Room) Persist(ctx context.Context) error {
	return r.storage.Set(ctx, RoomKey(r.Name), RoomRecord{
		CanBeClosed: r.CanBeClosed,
		MaxUsers:    r.MaxUsers,
		Properties:  r.Properties,
	})
}

// Hydrate fills the entity from a persisted record.
func (r *Room) Hydrate(rec RoomRecord) *Room {
	r.CanBeClosed = rec.CanBeClosed
	r.MaxUsers = rec.MaxUsers
	r.Properties = rec.Properties
	return r
}

// RoomKey is the storage key for a room's record.
func RoomKey(name string) string {
	return "Room:" + name
}

// RoomUsersIndex names the set of users currently in a room.
func RoomUsersIndex(name string) string {
	return "RoomUsers:" + name
}
