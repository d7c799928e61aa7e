// Package gateway is the websocket transport. It assigns session ids to
// incoming connections, relays directory state to clients, and routes client
// commands to the directory and the ping estimator.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lobbyd/lobbyd/internal/directory"
	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/ping"
	"github.com/lobbyd/lobbyd/internal/protocol"
	"github.com/lobbyd/lobbyd/internal/replica"
	"github.com/lobbyd/lobbyd/internal/runtime"
)

// Hub owns the connected session registry. It is the production
// runtime.ConnectionInfo and directory.Notifier.
type Hub struct {
	dir    *directory.Directory
	pinger *ping.Estimator
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[model.SessionID]*session
	nextSID  model.SessionID

	onConnected    func(model.SessionID)
	onDisconnected func(model.SessionID)

	unsubPlayers func()
	unsubRooms   func()
}

var (
	_ runtime.ConnectionInfo = (*Hub)(nil)
	_ directory.Notifier     = (*Hub)(nil)
)

// NewHub creates an unbound hub. The hub is handed to the directory as its
// connection source and notifier, then Bind closes the loop once the
// directory and estimator exist.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:   logger.With(slog.String("component", "gateway")),
		sessions: make(map[model.SessionID]*session),
		nextSID:  model.AuthoritySession + 1,
	}
}

// Bind attaches the directory and ping estimator. Must be called before Start.
func (h *Hub) Bind(dir *directory.Directory, pinger *ping.Estimator) {
	h.dir = dir
	h.pinger = pinger
}

// OnConnected registers a callback fired after a session is registered and
// has received its snapshot.
func (h *Hub) OnConnected(fn func(model.SessionID)) { h.onConnected = fn }

// OnDisconnected registers a callback fired after a session is removed.
func (h *Hub) OnDisconnected(fn func(model.SessionID)) { h.onDisconnected = fn }

// Start subscribes the hub to directory change events so every connected
// client receives the replicated collections.
func (h *Hub) Start() {
	_, h.unsubPlayers = h.dir.SubscribePlayers(func(ev replica.Event[model.Player]) {
		h.broadcast(playerEventMessage(ev))
	})
	_, h.unsubRooms = h.dir.SubscribeRooms(func(ev replica.Event[model.Room]) {
		h.broadcast(roomEventMessage(ev))
	})
}

// Stop detaches the hub from the directory and closes every connection.
func (h *Hub) Stop() {
	if h.unsubPlayers != nil {
		h.unsubPlayers()
	}
	if h.unsubRooms != nil {
		h.unsubRooms()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		close(s.closeOnce)
	}
	h.sessions = make(map[model.SessionID]*session)
}

func playerEventMessage(ev replica.Event[model.Player]) protocol.ServerMessage {
	state := playerState(ev.Value)
	msg := protocol.ServerMessage{Player: &state, Version: ev.Version}
	switch ev.Kind {
	case replica.Added:
		msg.Type = protocol.ServerPlayerAdded
	case replica.Removed:
		msg.Type = protocol.ServerPlayerRemoved
	default:
		msg.Type = protocol.ServerPlayerUpdated
	}
	return msg
}

func roomEventMessage(ev replica.Event[model.Room]) protocol.ServerMessage {
	state := roomState(ev.Value)
	msg := protocol.ServerMessage{Room: &state, Version: ev.Version}
	switch ev.Kind {
	case replica.Added:
		msg.Type = protocol.ServerRoomAdded
	case replica.Removed:
		msg.Type = protocol.ServerRoomRemoved
	default:
		msg.Type = protocol.ServerRoomUpdated
	}
	return msg
}

// IsConnected reports whether a session has a live connection. The authority
// session is the server process itself and is always connected.
func (h *Hub) IsConnected(session model.SessionID) bool {
	if session == model.AuthoritySession {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[session]
	return ok
}

// ConnectedSessions lists every session with a live connection, the authority
// session included.
func (h *Hub) ConnectedSessions() []model.SessionID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.SessionID, 0, len(h.sessions)+1)
	out = append(out, model.AuthoritySession)
	for id := range h.sessions {
		out = append(out, id)
	}
	return out
}

// RoomCreated confirms room creation to its owner.
func (h *Hub) RoomCreated(session model.SessionID, room model.Room) {
	h.sendTo(session, confirmation(protocol.ServerRoomCreated, room))
}

// RoomJoined confirms membership to the joining session.
func (h *Hub) RoomJoined(session model.SessionID, room model.Room) {
	h.sendTo(session, confirmation(protocol.ServerRoomJoined, room))
}

// RoomLeft confirms eviction or departure to the affected session.
func (h *Hub) RoomLeft(session model.SessionID, room model.Room) {
	h.sendTo(session, confirmation(protocol.ServerRoomLeft, room))
}

func confirmation(typ string, room model.Room) protocol.ServerMessage {
	state := roomState(room)
	return protocol.ServerMessage{Type: typ, Room: &state}
}

// SendProbe satisfies ping.SendFunc.
func (h *Hub) SendProbe(session model.SessionID, sentAt time.Time) error {
	h.sendTo(session, protocol.PingPayload(sentAt))
	return nil
}

func (h *Hub) sendTo(session model.SessionID, msg protocol.ServerMessage) {
	if session == model.AuthoritySession {
		return
	}
	h.mu.RLock()
	s, ok := h.sessions[session]
	h.mu.RUnlock()
	if ok {
		s.enqueue(msg)
	}
}

func (h *Hub) broadcast(msg protocol.ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		s.enqueue(msg)
	}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
}

func (h *Hub) allocateSID() model.SessionID {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSID
	h.nextSID++
	return id
}

func (h *Hub) sessionClosed(s *session) {
	h.mu.Lock()
	if current, ok := h.sessions[s.id]; !ok || current != s {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.id)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.dir.RemoveSession(ctx, s.id); err != nil {
		h.logger.Warn("remove session on close",
			slog.Uint64("session", uint64(s.id)),
			slog.Any("error", err))
	}
	_ = h.pinger.Do(ctx, func() { h.pinger.Untrack(s.id) })
	if h.onDisconnected != nil {
		h.onDisconnected(s.id)
	}
	h.logger.Info("session closed", slog.Uint64("session", uint64(s.id)))
}

// dispatch routes one client frame. All command errors are reported on the
// issuing connection only.
func (h *Hub) dispatch(ctx context.Context, s *session, msg protocol.ClientMessage) {
	var err error
	switch msg.Type {
	case protocol.ClientCreateRoom:
		_, err = h.dir.CreateRoom(ctx, s.id, msg.Name)
	case protocol.ClientJoinRoom:
		var roomID model.RoomID
		if roomID, err = directory.ParseRoomID(msg.RoomID); err == nil {
			_, err = h.dir.JoinRoom(ctx, s.id, roomID)
		}
	case protocol.ClientLeaveRoom:
		err = h.dir.LeaveRoom(ctx, s.id)
	case protocol.ClientSetHidden:
		var roomID model.RoomID
		if roomID, err = directory.ParseRoomID(msg.RoomID); err == nil {
			err = h.dir.SetRoomHidden(ctx, s.id, roomID, msg.Hidden)
		}
	case protocol.ClientSetName:
		err = h.dir.SetDisplayName(ctx, s.id, msg.Name)
	case protocol.ClientSetTeam:
		err = h.dir.SetTeam(ctx, s.id, msg.Team)
	case protocol.ClientSetReady:
		err = h.dir.SetReady(ctx, s.id, msg.Ready)
	case protocol.ClientSetMetadata:
		err = h.dir.UpdateMetadataString(ctx, s.id, msg.Key, msg.Value)
	case protocol.ClientRemoveMetadata:
		err = h.dir.RemoveMetadataKey(ctx, s.id, msg.Key)
	case protocol.ClientPing:
		// Echo the timestamp back unmodified so the client can estimate
		// its own latency.
		s.enqueue(protocol.ServerMessage{Type: protocol.ServerPong, SentAt: msg.SentAt})
	case protocol.ClientPong:
		echoed := protocol.EchoTime(msg)
		_ = h.pinger.Do(ctx, func() { h.pinger.HandleEcho(s.id, echoed) })
	default:
		s.logger.Warn("unknown frame type dropped", slog.String("type", msg.Type))
	}
	if err != nil {
		s.fail(msg.Sequence, err)
	}
}
