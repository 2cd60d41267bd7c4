package http

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jorgedlr/listening-rooms/internal/chat"
	"github.com/jorgedlr/listening-rooms/internal/proto"
	"github.com/jorgedlr/listening-rooms/internal/store"
)

// WSHandler runs the per-connection chat session: accept, register, then
// read frames, persist each one, and fan it out to the room.
type WSHandler struct {
	registry *chat.Registry
	store    store.Store
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket session handler.
func NewWSHandler(registry *chat.Registry, st store.Store, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{registry: registry, store: st, log: logger}
}

// Serve handles GET /ws/rooms/:room_id. The room id is taken as given: rooms
// that were never created through the API still get a live channel, matching
// the permissive behavior the frontend relies on.
func (h *WSHandler) Serve(c *gin.Context) {
	roomID := c.Param("room_id")

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := chat.NewClient(uuid.NewString())
	h.registry.Register(roomID, client)
	defer h.registry.Unregister(roomID, client)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, roomID)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

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
			h.log.Warn().Err(err).Str("room_id", roomID).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop waits for inbound frames. Each frame is fully handled, persist
// then broadcast, before the next read; a connection never pipelines its own
// messages. A store failure skips the broadcast but keeps the session alive.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, roomID string) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		in := proto.DecodeInbound(data)

		msg, err := h.store.CreateMessage(ctx, roomID, in.Sender, in.Text)
		if err != nil {
			h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to persist message")
			continue
		}

		delivered := h.registry.Broadcast(roomID, proto.Outbound{
			ID:        msg.ID,
			Sender:    msg.Sender,
			Text:      msg.Text,
			Timestamp: msg.CreatedAt.Format(time.RFC3339),
		})
		h.log.Debug().Str("room_id", roomID).Str("message_id", msg.ID).Int("delivered", delivered).Msg("message broadcast")
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *chat.Client) error {
	for {
		select {
		case out := <-client.Events:
			if err := wsjson.Write(ctx, conn, out); err != nil {
				h.log.Warn().Err(err).Str("client_id", client.ID).Msg("write ws frame")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
