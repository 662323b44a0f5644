package syncbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"huddle/internal/core"
)

// Action is the command vocabulary relayed between instances.
type Action string

const (
	ActionJoinRoom   Action = "join-room"
	ActionLeaveRoom  Action = "leave-room"
	ActionEmit       Action = "emit"
	ActionPropChange Action = "prop-change"
)

// Command is the structured message carried on the bridge channels.
type Command struct {
	Action  Action          `json:"action"`
	Room    string          `json:"room,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// userChannel carries property-change notifications for one user.
func userChannel(userID string) string {
	return "user:" + userID
}

// connChannel carries join/leave/emit commands for one connection,
// consumed by the process holding its live channel.
func connChannel(connID string) string {
	return "conn:" + connID
}

// Bridge relays membership and property facts between processes. The
// process holding a user's live transport channel subscribes; any process
// holding only storage access publishes.
type Bridge struct {
	pubsub PubSub
	users  *core.UserManager
	rooms  *core.RoomManager
	log    *zerolog.Logger
}

// New constructs a bridge over the given fabric.
func New(pubsub PubSub, users *core.UserManager, rooms *core.RoomManager, logger *zerolog.Logger) *Bridge {
	return &Bridge{
		pubsub: pubsub,
		users:  users,
		rooms:  rooms,
		log:    logger,
	}
}

// PublishPropChange notifies other instances that a user's persisted
// properties changed. Implements core.PropertyPublisher.
func (b *Bridge) PublishPropChange(ctx context.Context, userID string) error {
	return b.publish(ctx, userChannel(userID), Command{Action: ActionPropChange})
}

// RemoteChannel returns a channel proxy for a connection held by another
// process. Implements core.RemoteChannelFactory.
func (b *Bridge) RemoteChannel(connID string) core.Channel {
	return &remoteChannel{id: connID, bridge: b}
}

// WatchUser subscribes to property-change notifications for a locally
// connected user. On receipt the user's persisted properties are re-read
// and a local prop-update is emitted.
func (b *Bridge) WatchUser(ctx context.Context, userID string) (func(), error) {
	return b.pubsub.Subscribe(ctx, userChannel(userID), func(payload []byte) {
		cmd, err := decode(payload)
		if err != nil {
			b.log.Warn().Err(err).Str("user_id", userID).Msg("malformed bridge message")
			return
		}
		if cmd.Action != ActionPropChange {
			return
		}
		if err := b.users.RefreshProperties(ctx, userID); err != nil {
			b.log.Warn().Err(err).Str("user_id", userID).Msg("refresh properties")
		}
	})
}

// ListenConnection subscribes to the command channel for a connection this
// process owns, executing join-room / leave-room / emit commands issued by
// other instances against the local Room and User entities.
func (b *Bridge) ListenConnection(ctx context.Context, connID string) (func(), error) {
	return b.pubsub.Subscribe(ctx, connChannel(connID), func(payload []byte) {
		cmd, err := decode(payload)
		if err != nil {
			b.log.Warn().Err(err).Str("conn_id", connID).Msg("malformed bridge command")
			return
		}
		b.handleConnCommand(ctx, connID, cmd)
	})
}

func (b *Bridge) handleConnCommand(ctx context.Context, connID string, cmd Command) {
	switch cmd.Action {
	case ActionJoinRoom, ActionLeaveRoom:
		room, err := b.rooms.GetByName(ctx, cmd.Room)
		if err != nil || room == nil {
			b.log.Warn().Err(err).Str("room", cmd.Room).Msg("bridge command for unknown room")
			return
		}
		user, err := b.users.GetByID(ctx, connID)
		if err != nil || user == nil {
			b.log.Warn().Err(err).Str("user_id", connID).Msg("bridge command for unknown user")
			return
		}
		if cmd.Action == ActionJoinRoom {
			if err := room.AddUser(ctx, user); err != nil {
				b.log.Warn().Err(err).Str("room", cmd.Room).Str("user_id", connID).Msg("remote join failed")
			}
		} else {
			if err := room.RemoveUser(ctx, user); err != nil {
				b.log.Warn().Err(err).Str("room", cmd.Room).Str("user_id", connID).Msg("remote leave failed")
			}
		}

	case ActionEmit:
		user, err := b.users.GetByID(ctx, connID)
		if err != nil || user == nil {
			return
		}
		if ch := user.Channel(); ch != nil {
			if cmd.Room != "" {
				ch.EmitTo(cmd.Room, cmd.Event, cmd.Payload)
			} else {
				ch.Emit(cmd.Event, cmd.Payload)
			}
		}

	default:
		b.log.Debug().Str("action", string(cmd.Action)).Str("conn_id", connID).Msg("ignoring bridge command")
	}
}

func (b *Bridge) publish(ctx context.Context, channel string, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal bridge command: %w", err)
	}
	return b.pubsub.Publish(ctx, channel, payload)
}

func decode(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, fmt.Errorf("unmarshal bridge command: %w", err)
	}
	return cmd, nil
}
