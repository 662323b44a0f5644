package core

import (
	"context"

	"github.com/rs/zerolog"

	"huddle/internal/storage"
)

// Properties is an application-defined bag of values. It is replaced
// wholesale on every update, never merged.
type Properties map[string]any

// BroadcastData is the only representation of a user ever sent to other
// clients.
type BroadcastData struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
}

// UserRecord is the persisted shape of a user under User:<id>.
type UserRecord struct {
	Properties Properties `json:"properties"`
}

// PropertyPublisher relays a property change to other server instances
// instead of emitting it locally.
type PropertyPublisher interface {
	PublishPropChange(ctx context.Context, userID string) error
}

// User represents one connected participant. The entity survives until
// explicitly deleted; the channel is nil once disconnected.
type User struct {
	emitter

	ID         string
	Properties Properties

	channel   Channel
	storage   storage.Adapter
	publisher PropertyPublisher
	log       *zerolog.Logger
}

// NewUser constructs a user bound to the given storage adapter.
func NewUser(id string, st storage.Adapter, logger *zerolog.Logger) *User {
	return &User{
		ID:      id,
		storage: st,
		log:     logger,
	}
}

// SetChannel attaches (or with nil detaches) the live transport channel.
func (u *User) SetChannel(ch Channel) {
	u.channel = ch
}

// Channel returns the live transport channel, nil once disconnected.
func (u *User) Channel() Channel {
	return u.channel
}

// SetProperties replaces the property bag wholesale and persists it. In
// single-instance mode a prop-update event is emitted locally; when a
// cross-instance publisher is configured the change is published instead.
// Exactly one of the two paths fires per call.
func (u *User) SetProperties(ctx context.Context, props Properties) error {
	u.log.Debug().Str("user_id", u.ID).Msg("setting user properties")
	u.Properties = props

	if err := u.Persist(ctx); err != nil {
		return err
	}

	if u.publisher != nil {
		if err := u.publisher.PublishPropChange(ctx, u.ID); err != nil {
			u.log.Warn().Err(err).Str("user_id", u.ID).Msg("publish prop change")
		}
		return nil
	}

	u.emit(Event{Kind: EventPropUpdate, User: u})
	return nil
}

// Persist writes the user's record under User:<id>.
func (u *User) Persist(ctx context.Context) error {
	return u.storage.Set(ctx, UserKey(u.ID), UserRecord{Properties: u.Properties})
}

// Hydrate fills the entity from a persisted record.
func (u *User) Hydrate(rec UserRecord) *User {
	u.Properties = rec.Properties
	return u
}

// ToBroadcastData returns the public representation of the user. Internal
// fields are never serialized outward.
func (u *User) ToBroadcastData() BroadcastData {
	return BroadcastData{
		ID:         u.ID,
		Properties: u.Properties,
	}
}

// UserKey is the storage key for a user's record.
func UserKey(id string) string {
	return "User:" + id
}

// UserRoomsIndex names the set of rooms a user belongs to.
func UserRoomsIndex(id string) string {
	return "UserRooms:" + id
}
