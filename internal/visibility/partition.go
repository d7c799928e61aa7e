// Package visibility keeps per-entity observer sets aligned with room
// membership. Entities tagged with a room are shown only to that room's
// members plus the authority session; everyone else has them hidden.
package visibility

import (
	"log/slog"

	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/runtime"
)

// Membership is the slice of the directory the partition needs.
type Membership interface {
	MemberSessionsOf(roomID model.RoomID) []model.SessionID
}

type entity struct {
	handle runtime.EntityHandle
	roomID model.RoomID
	// visible holds the sessions the entity is currently shown to,
	// excluding the authority session which always sees everything.
	visible map[model.SessionID]bool
}

// Partition tracks every room-scoped entity and applies show/hide calls
// through the lifecycle so observers only replicate entities from their own
// room. Not safe for concurrent use; drive it from the authority goroutine.
type Partition struct {
	lifecycle  runtime.EntityLifecycle
	membership Membership
	logger     *slog.Logger

	entities map[runtime.EntityHandle]*entity
	byRoom   map[model.RoomID]map[runtime.EntityHandle]*entity
}

func New(lifecycle runtime.EntityLifecycle, membership Membership, logger *slog.Logger) *Partition {
	return &Partition{
		lifecycle:  lifecycle,
		membership: membership,
		logger:     logger.With(slog.String("component", "visibility")),
		entities:   make(map[runtime.EntityHandle]*entity),
		byRoom:     make(map[model.RoomID]map[runtime.EntityHandle]*entity),
	}
}

// Spawn instantiates a prefab under a room and begins tracking it.
func (p *Partition) Spawn(prefab runtime.PrefabRef, roomID model.RoomID, owner model.SessionID, connected []model.SessionID) (runtime.EntityHandle, error) {
	handle, err := p.lifecycle.Instantiate(prefab, roomID, owner)
	if err != nil {
		return 0, err
	}
	p.Track(handle, roomID, connected)
	return handle, nil
}

// Track registers a freshly spawned entity under a room and immediately
// reconciles its observer set: shown to current members, hidden from
// every other connected session.
func (p *Partition) Track(handle runtime.EntityHandle, roomID model.RoomID, connected []model.SessionID) {
	e := &entity{
		handle:  handle,
		roomID:  roomID,
		visible: make(map[model.SessionID]bool),
	}
	p.entities[handle] = e
	if p.byRoom[roomID] == nil {
		p.byRoom[roomID] = make(map[runtime.EntityHandle]*entity)
	}
	p.byRoom[roomID][handle] = e

	p.reconcile(e, connected)
	p.logger.Debug("entity tracked",
		slog.Uint64("entity", uint64(handle)),
		slog.String("room", string(roomID)))
}

// Forget stops tracking a single entity without touching the lifecycle.
// Use when the entity was destroyed by other means.
func (p *Partition) Forget(handle runtime.EntityHandle) {
	e, ok := p.entities[handle]
	if !ok {
		return
	}
	delete(p.entities, handle)
	delete(p.byRoom[e.roomID], handle)
	if len(p.byRoom[e.roomID]) == 0 {
		delete(p.byRoom, e.roomID)
	}
}

// DespawnRoom destroys every entity tracked under a room. Called when the
// room is about to be removed, while membership is still readable.
func (p *Partition) DespawnRoom(roomID model.RoomID) {
	for handle := range p.byRoom[roomID] {
		if err := p.lifecycle.Destroy(handle); err != nil {
			p.logger.Warn("destroy entity failed",
				slog.Uint64("entity", uint64(handle)),
				slog.Any("error", err))
		}
		p.Forget(handle)
	}
	p.logger.Debug("room entities despawned", slog.String("room", string(roomID)))
}

// HandleSessionConnected hides every foreign-room entity from a session that
// just finished connecting, and shows it the entities of its own room.
func (p *Partition) HandleSessionConnected(session model.SessionID) {
	if session == model.AuthoritySession {
		return
	}
	for _, e := range p.entities {
		p.apply(e, session, p.isMember(session, e.roomID))
	}
}

// HandleSessionDisconnected drops a session from every entity's observer set.
func (p *Partition) HandleSessionDisconnected(session model.SessionID) {
	for _, e := range p.entities {
		delete(e.visible, session)
	}
}

// HandleMembershipChanged re-derives observer sets for every entity in the
// room whose membership moved.
func (p *Partition) HandleMembershipChanged(roomID model.RoomID, connected []model.SessionID) {
	for _, e := range p.byRoom[roomID] {
		p.reconcile(e, connected)
	}
}

// VisibleTo reports whether an entity is currently shown to a session.
func (p *Partition) VisibleTo(handle runtime.EntityHandle, session model.SessionID) bool {
	if session == model.AuthoritySession {
		_, ok := p.entities[handle]
		return ok
	}
	e, ok := p.entities[handle]
	return ok && e.visible[session]
}

// TrackedCount returns the number of entities under management.
func (p *Partition) TrackedCount() int {
	return len(p.entities)
}

func (p *Partition) reconcile(e *entity, connected []model.SessionID) {
	for _, session := range connected {
		if session == model.AuthoritySession {
			continue
		}
		p.apply(e, session, p.isMember(session, e.roomID))
	}
}

func (p *Partition) apply(e *entity, session model.SessionID, want bool) {
	if e.visible[session] == want {
		return
	}
	if err := p.lifecycle.SetObserverVisible(e.handle, session, want); err != nil {
		p.logger.Warn("visibility change failed",
			slog.Uint64("entity", uint64(e.handle)),
			slog.Uint64("session", uint64(session)),
			slog.Any("error", err))
		return
	}
	if want {
		e.visible[session] = true
	} else {
		delete(e.visible, session)
	}
}

func (p *Partition) isMember(session model.SessionID, roomID model.RoomID) bool {
	for _, member := range p.membership.MemberSessionsOf(roomID) {
		if member == session {
			return true
		}
	}
	return false
}
