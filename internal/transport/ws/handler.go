package ws

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"huddle/internal/core"
	"huddle/internal/proto"
)

// Handler upgrades HTTP connections and drives the per-connection flow.
type Handler struct {
	hub *Hub
	srv *core.Server
	log *zerolog.Logger
}

// NewHandler builds a new websocket handler.
func NewHandler(hub *Hub, srv *core.Server, logger *zerolog.Logger) stdhttp.Handler {
	return &Handler{hub: hub, srv: srv, log: logger}
}

func (h *Handler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer wsConn.Close(websocket.StatusInternalError, "internal error")

	conn := NewConn(uuid.NewString(), h.hub)
	h.hub.Register(conn)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	user := h.srv.HandleConnect(ctx, conn)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, wsConn, conn)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, wsConn, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	h.srv.HandleDisconnect(context.WithoutCancel(ctx), user)
	h.hub.Unregister(conn)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("ws connection closed with error")
		}
	}

	wsConn.Close(status, reason)
}

func (h *Handler) readLoop(ctx context.Context, wsConn *websocket.Conn, conn *Conn) error {
	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, wsConn, &env); err != nil {
			return err
		}
		if env.Event == "" {
			h.log.Warn().Str("conn_id", conn.ID()).Msg("inbound envelope without event")
			continue
		}
		conn.dispatch(env.Event, env.Data)
	}
}

func (h *Handler) writeLoop(ctx context.Context, wsConn *websocket.Conn, conn *Conn) error {
	for {
		select {
		case env := <-conn.Outbound():
			if err := wsjson.Write(ctx, wsConn, env); err != nil {
				h.log.Error().Err(err).Str("conn_id", conn.ID()).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
