package gateway

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/protocol"
	"github.com/lobbyd/lobbyd/internal/runtime"
)

// EntityRelay is the websocket-backed runtime.EntityLifecycle and
// runtime.SceneLoader. Spawns allocate handles server-side; visibility and
// scene changes become targeted frames.
type EntityRelay struct {
	hub    *Hub
	logger *slog.Logger

	mu      sync.Mutex
	next    runtime.EntityHandle
	prefabs map[runtime.EntityHandle]runtime.PrefabRef
}

var (
	_ runtime.EntityLifecycle = (*EntityRelay)(nil)
	_ runtime.SceneLoader     = (*EntityRelay)(nil)
)

func NewEntityRelay(hub *Hub, logger *slog.Logger) *EntityRelay {
	return &EntityRelay{
		hub:     hub,
		logger:  logger.With(slog.String("component", "entity_relay")),
		next:    1,
		prefabs: make(map[runtime.EntityHandle]runtime.PrefabRef),
	}
}

func (r *EntityRelay) Instantiate(prefab runtime.PrefabRef, roomID model.RoomID, owner model.SessionID) (runtime.EntityHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle := r.next
	r.next++
	r.prefabs[handle] = prefab
	r.logger.Debug("entity instantiated",
		slog.Uint64("entity", uint64(handle)),
		slog.String("prefab", string(prefab)),
		slog.String("room", string(roomID)))
	return handle, nil
}

func (r *EntityRelay) Destroy(handle runtime.EntityHandle) error {
	r.mu.Lock()
	_, ok := r.prefabs[handle]
	delete(r.prefabs, handle)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown entity %d", handle)
	}
	r.hub.broadcast(protocol.ServerMessage{
		Type:   protocol.ServerEntityDestroyed,
		Entity: uint64(handle),
	})
	return nil
}

func (r *EntityRelay) SetObserverVisible(handle runtime.EntityHandle, session model.SessionID, visible bool) error {
	r.mu.Lock()
	prefab, ok := r.prefabs[handle]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown entity %d", handle)
	}
	typ := protocol.ServerEntityHidden
	if visible {
		typ = protocol.ServerEntityShown
	}
	r.hub.sendTo(session, protocol.ServerMessage{
		Type:   typ,
		Entity: uint64(handle),
		Prefab: string(prefab),
	})
	return nil
}

func (r *EntityRelay) LoadForSessions(scene runtime.SceneRef, mode runtime.LoadMode, sessions []model.SessionID) error {
	for _, session := range sessions {
		r.hub.sendTo(session, protocol.ServerMessage{
			Type:  protocol.ServerSceneLoad,
			Scene: string(scene),
			Mode:  string(mode),
		})
	}
	return nil
}

func (r *EntityRelay) UnloadForSessions(scene runtime.SceneRef, sessions []model.SessionID) error {
	for _, session := range sessions {
		r.hub.sendTo(session, protocol.ServerMessage{
			Type:  protocol.ServerSceneUnload,
			Scene: string(scene),
		})
	}
	return nil
}
