package syncbridge

import (
	"context"
	"encoding/json"
)

// remoteChannel implements core.Channel for a connection whose live socket
// is held by another process. Every operation becomes a command published
// on the connection's channel; the owning process executes it against the
// real channel. Best-effort, like all bridge traffic.
type remoteChannel struct {
	id     string
	bridge *Bridge
}

func (c *remoteChannel) ID() string {
	return c.id
}

func (c *remoteChannel) Join(group string) {
	c.send(Command{Action: ActionJoinRoom, Room: group})
}

func (c *remoteChannel) Leave(group string) {
	c.send(Command{Action: ActionLeaveRoom, Room: group})
}

func (c *remoteChannel) Emit(event string, payload any) {
	c.send(Command{Action: ActionEmit, Event: event, Payload: marshalPayload(c, event, payload)})
}

func (c *remoteChannel) EmitTo(group, event string, payload any) {
	c.send(Command{Action: ActionEmit, Room: group, Event: event, Payload: marshalPayload(c, event, payload)})
}

// On is not supported on a remote proxy: inbound messages arrive at the
// process holding the real socket.
func (c *remoteChannel) On(event string, _ func(json.RawMessage)) {
	c.bridge.log.Debug().Str("conn_id", c.id).Str("event", event).Msg("ignoring handler on remote channel")
}

func (c *remoteChannel) Once(event string, _ func(json.RawMessage)) {
	c.bridge.log.Debug().Str("conn_id", c.id).Str("event", event).Msg("ignoring handler on remote channel")
}

func (c *remoteChannel) Off(string) {}

func (c *remoteChannel) send(cmd Command) {
	if err := c.bridge.publish(context.Background(), connChannel(c.id), cmd); err != nil {
		c.bridge.log.Warn().Err(err).Str("conn_id", c.id).Msg("publish remote channel command")
	}
}

func marshalPayload(c *remoteChannel, event string, payload any) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.bridge.log.Warn().Err(err).Str("conn_id", c.id).Str("event", event).Msg("marshal remote payload")
		return nil
	}
	return raw
}
