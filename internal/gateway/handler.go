package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/lobbyd/lobbyd/internal/auth"
	"github.com/lobbyd/lobbyd/internal/directory"
	"github.com/lobbyd/lobbyd/internal/match"
	"github.com/lobbyd/lobbyd/internal/middleware"
	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/protocol"
	"github.com/lobbyd/lobbyd/internal/runtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The directory carries no secrets beyond what replication already
		// shows every client; cross-origin browsers are allowed.
		return true
	},
}

// RouterConfig holds everything the gateway router serves.
type RouterConfig struct {
	Logger  *slog.Logger
	Hub     *Hub
	Dir     *directory.Directory
	Admin   *auth.Service
	Match   *match.Coordinator
	BaseCtx context.Context
}

// NewRouter builds the gateway's HTTP surface: the websocket endpoint, the
// read-only REST views, and the admin operations.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler))
	r.Use(middleware.Logging(cfg.Logger))

	g := &handlers{
		logger:  cfg.Logger,
		hub:     cfg.Hub,
		dir:     cfg.Dir,
		admin:   cfg.Admin,
		match:   cfg.Match,
		baseCtx: cfg.BaseCtx,
	}

	r.HandleFunc("/ws", g.serveWS)
	r.HandleFunc("/healthz", g.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/rooms", g.listRooms).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", g.getRoom).Methods(http.MethodGet)
	api.HandleFunc("/players", g.listPlayers).Methods(http.MethodGet)

	adminRoutes := api.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(auth.Middleware(cfg.Admin))
	adminRoutes.HandleFunc("/rooms/{id}", g.destroyRoom).Methods(http.MethodDelete)
	if cfg.Match != nil {
		adminRoutes.HandleFunc("/rooms/{id}/match/start", g.startMatch).Methods(http.MethodPost)
		adminRoutes.HandleFunc("/rooms/{id}/match/finish", g.finishMatch).Methods(http.MethodPost)
	}

	return r
}

type handlers struct {
	logger  *slog.Logger
	hub     *Hub
	dir     *directory.Directory
	admin   *auth.Service
	match   *match.Coordinator
	baseCtx context.Context
}

func (g *handlers) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("upgrade failed", slog.Any("error", err))
		return
	}

	sid := g.hub.allocateSID()
	if err := g.dir.RegisterSession(r.Context(), sid); err != nil {
		g.logger.Error("register session",
			slog.Uint64("session", uint64(sid)),
			slog.Any("error", err))
		_ = conn.Close()
		return
	}

	s := newSession(sid, conn, g.hub, g.logger)
	go s.writePump()

	// Register and snapshot on the authority goroutine so the Welcome is
	// atomic with event delivery: broadcasts originate there, so nothing can
	// reach this session before its Welcome and no event the snapshot already
	// reflects can follow it.
	if err := g.dir.Do(r.Context(), func() {
		g.hub.register(s)
		s.enqueue(protocol.ServerMessage{
			Type:      protocol.ServerWelcome,
			SessionID: uint64(sid),
			Players:   playerStates(g.dir.Players()),
			Rooms:     roomStates(g.dir.Rooms()),
		})
	}); err != nil {
		g.logger.Error("welcome snapshot",
			slog.Uint64("session", uint64(sid)),
			slog.Any("error", err))
		_ = conn.Close()
		cleanup, cancel := context.WithTimeout(g.baseCtx, 5*time.Second)
		defer cancel()
		_ = g.dir.RemoveSession(cleanup, sid)
		return
	}

	_ = g.hub.pinger.Do(g.baseCtx, func() { g.hub.pinger.Track(sid) })
	if g.hub.onConnected != nil {
		g.hub.onConnected(sid)
	}
	g.logger.Info("session connected", slog.Uint64("session", uint64(sid)))

	s.readPump(g.baseCtx)
}

func (g *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"players": g.dir.PlayerCount(),
		"rooms":   len(g.dir.Rooms()),
	})
}

func (g *handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms := g.dir.VisibleRooms()
	if r.URL.Query().Get("include_hidden") == "true" {
		rooms = g.dir.Rooms()
	}
	writeJSON(w, http.StatusOK, roomStates(rooms))
}

func (g *handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := directory.ParseRoomID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed room id")
		return
	}
	room, ok := g.dir.RoomByID(roomID)
	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		protocol.RoomState
		Members []protocol.PlayerState `json:"members"`
	}{
		RoomState: roomState(room),
		Members:   playerStates(g.dir.MembersOf(roomID)),
	})
}

func (g *handlers) listPlayers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, playerStates(g.dir.Players()))
}

func (g *handlers) destroyRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := directory.ParseRoomID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed room id")
		return
	}
	if err := g.dir.DestroyRoom(r.Context(), roomID); err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *handlers) startMatch(w http.ResponseWriter, r *http.Request) {
	g.matchTransition(w, r, g.match.Start)
}

func (g *handlers) finishMatch(w http.ResponseWriter, r *http.Request) {
	g.matchTransition(w, r, g.match.Finish)
}

func (g *handlers) matchTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, model.RoomID, runtime.SceneRef) error) {
	roomID, err := directory.ParseRoomID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed room id")
		return
	}
	var body struct {
		Scene string `json:"scene"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Scene == "" {
		writeError(w, http.StatusBadRequest, "missing scene")
		return
	}
	if err := op(r.Context(), roomID, runtime.SceneRef(body.Scene)); err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		g.logger.Error("match transition",
			slog.String("room", string(roomID)),
			slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
