package core

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"huddle/internal/storage"
)

// LobbyName is the distinguished always-present room every connecting user
// is placed into.
const LobbyName = "lobby"

// RoomManagerOptions are the lobby policies and room defaults.
type RoomManagerOptions struct {
	// BroadcastNewUserToLobby announces each joiner to the lobby group.
	BroadcastNewUserToLobby bool
	// SendLobbyUsers sends each joiner the current lobby roster.
	SendLobbyUsers bool
	// RoomLimit is the default max occupancy for rooms created without an
	// explicit limit. 0 means unbounded.
	RoomLimit int
}

// RoomManager creates rooms, manages lookup and membership transfer, and
// owns the lobby-join side effects.
type RoomManager struct {
	hub     GroupHub
	storage storage.Adapter
	users   *UserManager
	opts    RoomManagerOptions
	lobby   *Room
	log     *zerolog.Logger
}

// NewRoomManager constructs a room manager. Call CreateLobby before
// admitting users.
func NewRoomManager(hub GroupHub, st storage.Adapter, users *UserManager, opts RoomManagerOptions, logger *zerolog.Logger) *RoomManager {
	return &RoomManager{
		hub:     hub,
		storage: st,
		users:   users,
		opts:    opts,
		log:     logger,
	}
}

// CreateLobby looks up the lobby in storage and creates it only if absent.
// The lobby is non-closable and unbounded. Idempotent.
func (m *RoomManager) CreateLobby(ctx context.Context) (*Room, error) {
	lobby, err := m.GetByName(ctx, LobbyName)
	if err != nil {
		return nil, err
	}
	if lobby == nil {
		lobby, err = m.createRoom(ctx, LobbyName, 0, false)
		if err != nil {
			return nil, err
		}
	}
	m.lobby = lobby
	return lobby, nil
}

// Lobby returns the lobby handle created by CreateLobby.
func (m *RoomManager) Lobby() *Room {
	return m.lobby
}

// CreateRoom creates and immediately persists a room. A unique name is
// generated when none is given; rooms without an explicit limit inherit the
// configured default. The default never applies to the lobby, which is
// created through createRoom directly and stays unbounded.
func (m *RoomManager) CreateRoom(ctx context.Context, name string, maxUsers int, canBeClosed bool) (*Room, error) {
	if maxUsers == 0 {
		maxUsers = m.opts.RoomLimit
	}
	return m.createRoom(ctx, name, maxUsers, canBeClosed)
}

func (m *RoomManager) createRoom(ctx context.Context, name string, maxUsers int, canBeClosed bool) (*Room, error) {
	if name == "" {
		name = "room-" + uuid.NewString()
	}

	room := NewRoom(name, m.hub, m.storage, m.log)
	room.CanBeClosed = canBeClosed
	room.MaxUsers = maxUsers

	// A room exists in storage before any user joins it.
	if err := room.Persist(ctx); err != nil {
		return room, err
	}

	m.log.Debug().Str("room", name).Int("max_users", maxUsers).Bool("closable", canBeClosed).Msg("created room")
	return room, nil
}

// AddUserToLobby places a freshly connected user into the lobby. The order
// of the three steps is significant: the join announcement goes out before
// the user is in the group, so they never see themselves as "new", and the
// roster is computed before the join, so it reflects occupancy without the
// joiner.
func (m *RoomManager) AddUserToLobby(ctx context.Context, user *User) error {
	m.log.Debug().Str("user_id", user.ID).Msg("adding user to lobby")

	if m.opts.BroadcastNewUserToLobby {
		m.hub.Broadcast(LobbyName, MessageUserJoin, user.ToBroadcastData())
	}

	if m.opts.SendLobbyUsers {
		m.BroadcastRoomMembers(ctx, LobbyName, user)
	}

	return m.lobby.AddUser(ctx, user)
}

// ChangeRoom moves a user between rooms. The target admission runs first;
// when the target is full the error is swallowed here (logged only) and the
// user stays in the source room. A successful move is briefly a member of
// both rooms, never of none.
func (m *RoomManager) ChangeRoom(ctx context.Context, user *User, from, to *Room) error {
	if err := to.AddUser(ctx, user); err != nil {
		if IsRoomFull(err) {
			m.log.Info().Str("user_id", user.ID).Str("room", to.Name).Msg("room change rejected, target full")
			return nil
		}
		return err
	}

	m.log.Debug().Str("user_id", user.ID).Str("from", from.Name).Str("to", to.Name).Msg("moved user")
	return from.RemoveUser(ctx, user)
}

// GetByName fetches the persisted record and returns a freshly hydrated
// Room, or (nil, nil) when absent. No instance caching: two calls for the
// same name return distinct objects over the same persisted state.
func (m *RoomManager) GetByName(ctx context.Context, name string) (*Room, error) {
	var rec RoomRecord
	found, err := m.storage.Get(ctx, RoomKey(name), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return NewRoom(name, m.hub, m.storage, m.log).Hydrate(rec), nil
}

// GetRoomMembers derives the member set from the live transport group and
// resolves each id through the user manager. Failed or absent lookups are
// skipped, not surfaced as fatal.
func (m *RoomManager) GetRoomMembers(ctx context.Context, roomName string) []*User {
	ids := m.hub.GroupMembers(roomName)
	users := make([]*User, 0, len(ids))
	for _, id := range ids {
		user, err := m.users.GetByID(ctx, id)
		if err != nil {
			m.log.Warn().Err(err).Str("user_id", id).Str("room", roomName).Msg("resolve room member")
			continue
		}
		if user != nil {
			users = append(users, user)
		}
	}
	return users
}

// BroadcastRoomMembers sends the recipient the roster of a room's current
// members, excluding the recipient themselves.
func (m *RoomManager) BroadcastRoomMembers(ctx context.Context, roomName string, recipient *User) {
	members := m.GetRoomMembers(ctx, roomName)

	roster := make([]BroadcastData, 0, len(members))
	for _, member := range members {
		if member.ID == recipient.ID {
			continue
		}
		roster = append(roster, member.ToBroadcastData())
	}

	if ch := recipient.Channel(); ch != nil {
		ch.Emit(MessageLobbyUsers, roster)
	}
}
