package core

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"huddle/internal/storage"
)

// RemoteChannelFactory builds a channel proxy for a user whose live
// connection is held by another process.
type RemoteChannelFactory func(id string) Channel

// UserManager creates, looks up and deletes User entities. Lookups return
// the live in-memory instance when the connection is on this process, or
// rehydrate one from storage otherwise.
type UserManager struct {
	registry  *Registry
	storage   storage.Adapter
	publisher PropertyPublisher
	remote    RemoteChannelFactory
	log       *zerolog.Logger
}

// NewUserManager constructs a user manager around the given connection
// registry and storage adapter.
func NewUserManager(reg *Registry, st storage.Adapter, logger *zerolog.Logger) *UserManager {
	return &UserManager{
		registry: reg,
		storage:  st,
		log:      logger,
	}
}

// SetPropertyPublisher switches users created from now on into
// cross-instance mode: property changes are published instead of emitted.
func (m *UserManager) SetPropertyPublisher(p PropertyPublisher) {
	m.publisher = p
}

// SetRemoteChannelFactory configures channel proxies for users connected
// to other processes.
func (m *UserManager) SetRemoteChannelFactory(f RemoteChannelFactory) {
	m.remote = f
}

// CreateUser builds a User for a freshly accepted channel, binds the
// user-props message to its property-update routine, persists it and
// registers it as locally connected.
func (m *UserManager) CreateUser(ctx context.Context, ch Channel) *User {
	m.log.Debug().Str("user_id", ch.ID()).Msg("creating user")

	user := NewUser(ch.ID(), m.storage, m.log)
	user.publisher = m.publisher
	user.SetChannel(ch)

	ch.On(MessageUserProps, func(payload json.RawMessage) {
		var props Properties
		if err := json.Unmarshal(payload, &props); err != nil {
			m.log.Warn().Err(err).Str("user_id", user.ID).Msg("malformed user-props payload")
			return
		}
		if err := user.SetProperties(ctx, props); err != nil {
			m.log.Error().Err(err).Str("user_id", user.ID).Msg("persist user properties")
		}
	})

	if err := user.Persist(ctx); err != nil {
		m.log.Error().Err(err).Str("user_id", user.ID).Msg("persist new user")
	}

	m.registry.Add(user)
	return user
}

// GetByID returns the live instance if the connection is on this process,
// otherwise rehydrates one from storage, attaching a remote channel proxy
// when a factory is configured. An absent user yields (nil, nil).
func (m *UserManager) GetByID(ctx context.Context, id string) (*User, error) {
	if u := m.registry.Get(id); u != nil {
		return u, nil
	}

	var rec UserRecord
	found, err := m.storage.Get(ctx, UserKey(id), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	user := NewUser(id, m.storage, m.log).Hydrate(rec)
	user.publisher = m.publisher
	if m.remote != nil {
		user.SetChannel(m.remote(id))
	}
	return user, nil
}

// DeleteUser removes the persisted record and forgets the live instance.
func (m *UserManager) DeleteUser(ctx context.Context, user *User) error {
	m.registry.Remove(user.ID)
	return m.storage.Delete(ctx, UserKey(user.ID))
}

// IsUserInRoom reports whether the membership index places the user in the
// named room.
func (m *UserManager) IsUserInRoom(ctx context.Context, userID, roomName string) (bool, error) {
	rooms, err := m.storage.IndexGet(ctx, UserRoomsIndex(userID))
	if err != nil {
		return false, err
	}
	for _, name := range rooms {
		if name == roomName {
			return true, nil
		}
	}
	return false, nil
}

// RoomNames returns the rooms the user is indexed as belonging to.
func (m *UserManager) RoomNames(ctx context.Context, userID string) ([]string, error) {
	return m.storage.IndexGet(ctx, UserRoomsIndex(userID))
}

// RefreshProperties re-reads a user's persisted properties into the live
// instance and emits a local prop-update. Used when another instance
// published a property change for a user connected here. No-op when the
// user is not connected to this process.
func (m *UserManager) RefreshProperties(ctx context.Context, userID string) error {
	user := m.registry.Get(userID)
	if user == nil {
		return nil
	}

	var rec UserRecord
	found, err := m.storage.Get(ctx, UserKey(userID), &rec)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	user.Properties = rec.Properties
	user.emit(Event{Kind: EventPropUpdate, User: user})
	return nil
}
