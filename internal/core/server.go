package core

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"huddle/internal/storage"
)

// MessageHandler processes an application-defined client message.
type MessageHandler func(ch Channel, payload json.RawMessage)

// ConnectionHook observes user connect/disconnect at the server level.
type ConnectionHook func(user *User)

// ServerOptions control the per-connection flow.
type ServerOptions struct {
	// Version is reported to every connecting client.
	Version int
	// WaitForPropsBeforeLobby delays lobby entry until the first
	// user-props message arrives.
	WaitForPropsBeforeLobby bool
}

// Server coordinates presence for one process: it reacts to transport
// connect/disconnect events, places users into the lobby and fans
// application messages out to registered handlers.
type Server struct {
	opts     ServerOptions
	registry *Registry
	users    *UserManager
	rooms    *RoomManager
	storage  storage.Adapter
	log      *zerolog.Logger

	mu           sync.Mutex
	handlers     map[string]MessageHandler
	onConnect    []ConnectionHook
	onDisconnect []ConnectionHook
}

// NewServer wires the managers together.
func NewServer(opts ServerOptions, reg *Registry, users *UserManager, rooms *RoomManager, st storage.Adapter, logger *zerolog.Logger) *Server {
	return &Server{
		opts:     opts,
		registry: reg,
		users:    users,
		rooms:    rooms,
		storage:  st,
		log:      logger,
		handlers: make(map[string]MessageHandler),
	}
}

// Users exposes the user manager.
func (s *Server) Users() *UserManager { return s.users }

// ConnectionCount reports how many users are connected to this process.
func (s *Server) ConnectionCount() int { return s.registry.Len() }

// Rooms exposes the room manager.
func (s *Server) Rooms() *RoomManager { return s.rooms }

// AddMessageHandler binds a handler to a client message. Channels accepted
// from now on get the binding; already connected channels are updated too.
// Rebinding a message replaces the previous handler rather than stacking a
// second one on live channels.
func (s *Server) AddMessageHandler(message string, handler MessageHandler) {
	s.mu.Lock()
	s.handlers[message] = handler
	s.mu.Unlock()

	for _, user := range s.registry.All() {
		if ch := user.Channel(); ch != nil {
			ch.Off(message)
			ch.On(message, bindHandler(ch, handler))
		}
	}
}

// RemoveMessageHandler removes a previously bound handler from the table
// and from every connected channel.
func (s *Server) RemoveMessageHandler(message string) {
	s.mu.Lock()
	_, ok := s.handlers[message]
	delete(s.handlers, message)
	s.mu.Unlock()

	if !ok {
		return
	}
	for _, user := range s.registry.All() {
		if ch := user.Channel(); ch != nil {
			ch.Off(message)
		}
	}
}

// OnConnect registers a hook invoked after each user connects.
func (s *Server) OnConnect(hook ConnectionHook) {
	s.mu.Lock()
	s.onConnect = append(s.onConnect, hook)
	s.mu.Unlock()
}

// OnDisconnect registers a hook invoked after each user disconnects.
func (s *Server) OnDisconnect(hook ConnectionHook) {
	s.mu.Lock()
	s.onDisconnect = append(s.onDisconnect, hook)
	s.mu.Unlock()
}

// HandleConnect runs the per-connection flow for a freshly accepted
// channel: report the protocol version, create the user, place them in the
// lobby (immediately, or after their first user-props message) and attach
// the application message handlers.
func (s *Server) HandleConnect(ctx context.Context, ch Channel) *User {
	s.log.Debug().Str("conn_id", ch.ID()).Msg("connection accepted, reporting version")
	ch.Emit(MessageVersion, s.opts.Version)

	user := s.users.CreateUser(ctx, ch)

	if !s.opts.WaitForPropsBeforeLobby {
		if err := s.rooms.AddUserToLobby(ctx, user); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("add user to lobby")
		}
	} else {
		ch.Once(MessageUserProps, func(json.RawMessage) {
			inLobby, err := s.users.IsUserInRoom(ctx, user.ID, LobbyName)
			if err != nil {
				s.log.Warn().Err(err).Str("user_id", user.ID).Msg("check lobby membership")
			}
			if !inLobby {
				if err := s.rooms.AddUserToLobby(ctx, user); err != nil {
					s.log.Error().Err(err).Str("user_id", user.ID).Msg("add user to lobby")
				}
			}
		})
	}

	s.mu.Lock()
	for message, handler := range s.handlers {
		ch.On(message, bindHandler(ch, handler))
	}
	hooks := append([]ConnectionHook(nil), s.onConnect...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(user)
	}
	return user
}

// HandleDisconnect removes the user from every room they are indexed as
// belonging to and deletes their persisted record. The transport layer has
// already dropped the channel from its groups.
func (s *Server) HandleDisconnect(ctx context.Context, user *User) {
	s.log.Debug().Str("user_id", user.ID).Msg("user disconnected")

	names, err := s.users.RoomNames(ctx, user.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("list rooms on disconnect")
	}
	for _, name := range names {
		room, err := s.rooms.GetByName(ctx, name)
		if err != nil || room == nil {
			continue
		}
		if err := room.RemoveUser(ctx, user); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Str("room", name).Msg("remove user on disconnect")
		}
	}

	if err := s.users.DeleteUser(ctx, user); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("delete user record")
	}
	user.SetChannel(nil)

	s.mu.Lock()
	hooks := append([]ConnectionHook(nil), s.onDisconnect...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(user)
	}
}

func bindHandler(ch Channel, handler MessageHandler) func(json.RawMessage) {
	return func(payload json.RawMessage) {
		handler(ch, payload)
	}
}
