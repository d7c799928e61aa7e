package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/protocol"
)

const (
	writeWait      = 5 * time.Second
	readWait       = 60 * time.Second
	maxMessageSize = 1 << 16
	sendBuffer     = 64
)

// session is one connected websocket client. The write pump owns the
// connection for writes; everything else enqueues frames.
type session struct {
	id     model.SessionID
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	logger *slog.Logger

	closeOnce chan struct{}
}

func newSession(id model.SessionID, conn *websocket.Conn, hub *Hub, logger *slog.Logger) *session {
	return &session{
		id:        id,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		hub:       hub,
		logger:    logger.With(slog.Uint64("session", uint64(id))),
		closeOnce: make(chan struct{}),
	}
}

// enqueue queues a frame for the write pump. A full queue drops the frame
// rather than blocking the caller.
func (s *session) enqueue(msg protocol.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("marshal frame", slog.Any("error", err))
		return
	}
	select {
	case s.send <- payload:
	default:
		s.logger.Warn("send queue full, frame dropped", slog.String("type", msg.Type))
	}
}

func (s *session) writePump() {
	defer func() { _ = s.conn.Close() }()
	for {
		select {
		case payload, ok := <-s.send:
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-s.closeOnce:
			return
		}
	}
}

func (s *session) readPump(ctx context.Context) {
	defer func() {
		_ = s.conn.Close()
		s.hub.sessionClosed(s)
	}()
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(readWait))

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("read error", slog.Any("error", err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(readWait))

		var msg protocol.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("malformed frame dropped", slog.Any("error", err))
			continue
		}
		s.hub.dispatch(ctx, s, msg)
	}
}

// fail reports a command error back to the issuing client.
func (s *session) fail(seq uint64, err error) {
	s.enqueue(protocol.ServerMessage{
		Type:     protocol.ServerError,
		Error:    errorCode(err),
		Sequence: seq,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, model.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, model.ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, model.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, model.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, model.ErrAlreadyInRoom):
		return "already_in_room"
	case errors.Is(err, model.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, model.ErrMalformedIdentifier):
		return "malformed_identifier"
	case errors.Is(err, model.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, model.ErrInvalidKey):
		return "invalid_key"
	default:
		return "internal"
	}
}
