package directory

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lobbyd/lobbyd/internal/model"
)

// ParseRoomID validates a wire-format room identifier.
func ParseRoomID(s string) (model.RoomID, error) {
	if s == "" {
		return model.NoRoom, model.ErrMalformedIdentifier
	}
	if _, err := uuid.Parse(s); err != nil {
		return model.NoRoom, model.ErrMalformedIdentifier
	}
	return model.RoomID(s), nil
}

// CreateRoom creates a room owned by the requester and moves the requester
// into it. The requester receives Created and Joined confirmations in addition
// to the broadcast Added event.
func (d *Directory) CreateRoom(ctx context.Context, session model.SessionID, name string) (model.Room, error) {
	var (
		room  model.Room
		opErr error
	)
	err := d.submit(ctx, func() {
		if p, ok := d.players.Get(session); ok && p.InRoom() {
			d.logger.Warn("create room: already in a room", slog.Uint64("session", uint64(session)))
			opErr = model.ErrAlreadyInRoom
			return
		}
		room = model.Room{
			ID:             model.RoomID(d.random.UUID()),
			OwnerSessionID: session,
			Name:           model.BoundName(name),
		}
		if err := d.rooms.Insert(room.ID, room); err != nil {
			opErr = err
			return
		}
		d.setPlayerRoomLocked(session, room.ID)
		d.fireMembershipChanged(room.ID)

		if d.isConnected(session) {
			d.notifier.RoomCreated(session, room)
			d.notifier.RoomJoined(session, room)
		}
		d.logger.Info("room created",
			slog.String("room", string(room.ID)),
			slog.Uint64("owner", uint64(session)))
	})
	if err != nil {
		return model.Room{}, err
	}
	return room, opErr
}

// JoinRoom moves the requester into an existing room. Only the requester gets
// a targeted Joined confirmation; other observers learn of the new member from
// the player collection's broadcast Updated event.
func (d *Directory) JoinRoom(ctx context.Context, session model.SessionID, roomID model.RoomID) (model.Room, error) {
	var (
		room  model.Room
		opErr error
	)
	err := d.submit(ctx, func() {
		if p, ok := d.players.Get(session); ok && p.InRoom() {
			d.logger.Warn("join room: already in a room", slog.Uint64("session", uint64(session)))
			opErr = model.ErrAlreadyInRoom
			return
		}
		var ok bool
		room, ok = d.rooms.Get(roomID)
		if !ok {
			d.logger.Warn("join room: not found", slog.String("room", string(roomID)))
			opErr = model.ErrRoomNotFound
			return
		}
		d.setPlayerRoomLocked(session, roomID)
		d.fireMembershipChanged(roomID)

		if d.isConnected(session) {
			d.notifier.RoomJoined(session, room)
		}
		d.logger.Info("room joined",
			slog.String("room", string(roomID)),
			slog.Uint64("session", uint64(session)))
	})
	if err != nil {
		return model.Room{}, err
	}
	return room, opErr
}

// LeaveRoom removes the requester from its current room. When the requester
// owns the room, the room is destroyed: every remaining member is evicted,
// connected members get targeted Left confirmations, the room's entities are
// despawned and the record is removed.
func (d *Directory) LeaveRoom(ctx context.Context, session model.SessionID) error {
	var opErr error
	err := d.submit(ctx, func() {
		player, ok := d.players.Get(session)
		if !ok || !player.InRoom() {
			d.logger.Warn("leave room: not in a room", slog.Uint64("session", uint64(session)))
			opErr = model.ErrNotInRoom
			return
		}
		room, ok := d.rooms.Get(player.RoomID)
		if !ok {
			// Should not happen: roomId always names an existing room.
			d.setPlayerRoomLocked(session, model.NoRoom)
			opErr = model.ErrRoomNotFound
			return
		}

		d.setPlayerRoomLocked(session, model.NoRoom)
		if d.isConnected(session) {
			d.notifier.RoomLeft(session, room)
		}

		if room.OwnerSessionID == session {
			d.destroyRoom(room)
			d.logger.Info("owner left, room removed",
				slog.String("room", string(room.ID)),
				slog.Uint64("owner", uint64(session)))
		} else {
			d.fireMembershipChanged(room.ID)
			d.logger.Info("room left",
				slog.String("room", string(room.ID)),
				slog.Uint64("session", uint64(session)))
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// SetRoomOf is the privileged explicit-target variant of join/leave: it moves
// target into roomID, or out of its current room when roomID is NoRoom.
// Moving an owner out of its room destroys the room, same as a voluntary
// departure.
func (d *Directory) SetRoomOf(ctx context.Context, target model.SessionID, roomID model.RoomID) error {
	var opErr error
	err := d.submit(ctx, func() {
		player, ok := d.players.Get(target)
		if !ok {
			opErr = model.ErrPlayerNotFound
			return
		}

		var room model.Room
		if roomID != model.NoRoom {
			if room, ok = d.rooms.Get(roomID); !ok {
				opErr = model.ErrRoomNotFound
				return
			}
		}
		if player.RoomID == roomID {
			return
		}

		if player.InRoom() {
			if current, ok := d.rooms.Get(player.RoomID); ok {
				d.setPlayerRoomLocked(target, model.NoRoom)
				if d.isConnected(target) {
					d.notifier.RoomLeft(target, current)
				}
				if current.OwnerSessionID == target {
					d.destroyRoom(current)
				} else {
					d.fireMembershipChanged(current.ID)
				}
			}
		}

		if roomID == model.NoRoom {
			return
		}
		d.setPlayerRoomLocked(target, roomID)
		d.fireMembershipChanged(roomID)
		if d.isConnected(target) {
			d.notifier.RoomJoined(target, room)
		}
		d.logger.Info("room assigned",
			slog.String("room", string(roomID)),
			slog.Uint64("session", uint64(target)))
	})
	if err != nil {
		return err
	}
	return opErr
}

// SetRoomHidden updates a room's hidden flag. Only the room's owning member
// may do so.
func (d *Directory) SetRoomHidden(ctx context.Context, session model.SessionID, roomID model.RoomID, hidden bool) error {
	var opErr error
	err := d.submit(ctx, func() {
		room, ok := d.rooms.Get(roomID)
		if !ok {
			opErr = model.ErrRoomNotFound
			return
		}
		player, ok := d.players.Get(session)
		if !ok || player.RoomID != roomID || room.OwnerSessionID != session {
			d.logger.Warn("set hidden: not room owner",
				slog.String("room", string(roomID)),
				slog.Uint64("session", uint64(session)))
			opErr = model.ErrNotAuthorized
			return
		}
		room.Hidden = hidden
		d.rooms.Update(roomID, room)
		d.logger.Info("room hidden updated",
			slog.String("room", string(roomID)),
			slog.Bool("hidden", hidden))
	})
	if err != nil {
		return err
	}
	return opErr
}

// DestroyRoom forcibly removes a room regardless of membership. This is a
// server-privileged operation; it is not reachable from the request path.
func (d *Directory) DestroyRoom(ctx context.Context, roomID model.RoomID) error {
	var opErr error
	err := d.submit(ctx, func() {
		room, ok := d.rooms.Get(roomID)
		if !ok {
			opErr = model.ErrRoomNotFound
			return
		}
		d.destroyRoom(room)
		d.logger.Info("room destroyed", slog.String("room", string(roomID)))
	})
	if err != nil {
		return err
	}
	return opErr
}

// destroyRoom evicts every member, confirms Left to the connected ones, and
// removes the record. The removing hook fires before removal so collaborators
// can still read final room state. Members are cleared before the record goes
// so no reader ever sees a player referencing a missing room. Must run on the
// authority goroutine.
func (d *Directory) destroyRoom(room model.Room) {
	members := d.membersLocked(room.ID)

	d.fireRoomRemoving(room)

	for _, member := range members {
		d.setPlayerRoomLocked(member.SessionID, model.NoRoom)
		if d.isConnected(member.SessionID) {
			d.notifier.RoomLeft(member.SessionID, room)
		}
	}
	d.rooms.Remove(room.ID)
	d.fireMembershipChanged(room.ID)
}

// UpdateMetadata stores a typed value in the requester's current room. The
// requester must belong to a room but need not own it. An encoding that would
// overflow the buffer fails without mutating state.
func (d *Directory) UpdateMetadata(ctx context.Context, session model.SessionID, key string, value model.Value) error {
	return d.updateRoomMetadata(ctx, session, func(m model.Metadata) (model.Metadata, error) {
		return m.Set(key, value)
	})
}

// UpdateMetadataString stores a raw string value in the requester's current room.
func (d *Directory) UpdateMetadataString(ctx context.Context, session model.SessionID, key, value string) error {
	return d.updateRoomMetadata(ctx, session, func(m model.Metadata) (model.Metadata, error) {
		return m.SetString(key, value)
	})
}

// RemoveMetadataKey deletes a key from the requester's current room metadata.
func (d *Directory) RemoveMetadataKey(ctx context.Context, session model.SessionID, key string) error {
	return d.updateRoomMetadata(ctx, session, func(m model.Metadata) (model.Metadata, error) {
		next, _ := m.Remove(key)
		return next, nil
	})
}

func (d *Directory) updateRoomMetadata(ctx context.Context, session model.SessionID, apply func(model.Metadata) (model.Metadata, error)) error {
	var opErr error
	err := d.submit(ctx, func() {
		player, ok := d.players.Get(session)
		if !ok || !player.InRoom() {
			d.logger.Warn("metadata update: not in a room", slog.Uint64("session", uint64(session)))
			opErr = model.ErrNotInRoom
			return
		}
		room, ok := d.rooms.Get(player.RoomID)
		if !ok {
			opErr = model.ErrRoomNotFound
			return
		}
		next, err := apply(room.Metadata)
		if err != nil {
			d.logger.Warn("metadata update failed",
				slog.String("room", string(room.ID)),
				slog.Any("error", err))
			opErr = err
			return
		}
		if next == room.Metadata {
			return
		}
		room.Metadata = next
		d.rooms.Update(room.ID, room)
	})
	if err != nil {
		return err
	}
	return opErr
}

// RoomOf returns the room the session currently belongs to.
func (d *Directory) RoomOf(session model.SessionID) (model.Room, bool) {
	player, ok := d.players.Get(session)
	if !ok || !player.InRoom() {
		return model.Room{}, false
	}
	return d.rooms.Get(player.RoomID)
}

// RoomByID looks a room up by id.
func (d *Directory) RoomByID(roomID model.RoomID) (model.Room, bool) {
	return d.rooms.Get(roomID)
}

// RoomExists reports whether a room is present.
func (d *Directory) RoomExists(roomID model.RoomID) bool {
	_, ok := d.rooms.Get(roomID)
	return ok
}

// Rooms returns all room records in creation order.
func (d *Directory) Rooms() []model.Room {
	return d.rooms.Snapshot()
}

// VisibleRooms returns rooms whose hidden flag is unset.
func (d *Directory) VisibleRooms() []model.Room {
	return d.filterRooms(func(r model.Room) bool { return !r.Hidden })
}

// HiddenRooms returns rooms whose hidden flag is set.
func (d *Directory) HiddenRooms() []model.Room {
	return d.filterRooms(func(r model.Room) bool { return r.Hidden })
}

func (d *Directory) filterRooms(pred func(model.Room) bool) []model.Room {
	var out []model.Room
	for _, r := range d.rooms.Snapshot() {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// MembersOf derives a room's member set by scanning the session directory.
func (d *Directory) MembersOf(roomID model.RoomID) []model.Player {
	return d.membersLocked(roomID)
}

func (d *Directory) membersLocked(roomID model.RoomID) []model.Player {
	var out []model.Player
	for _, p := range d.players.Snapshot() {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	return out
}

// MemberCountOf returns the number of players currently in a room.
func (d *Directory) MemberCountOf(roomID model.RoomID) int {
	return len(d.membersLocked(roomID))
}

// MemberSessionsOf returns the session ids of a room's members.
func (d *Directory) MemberSessionsOf(roomID model.RoomID) []model.SessionID {
	members := d.membersLocked(roomID)
	out := make([]model.SessionID, 0, len(members))
	for _, m := range members {
		out = append(out, m.SessionID)
	}
	return out
}
