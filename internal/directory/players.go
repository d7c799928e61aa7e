package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lobbyd/lobbyd/internal/model"
)

// RegisterSession creates a player record for a newly accepted connection.
// The record gets a generated Player_<sessionId> display name and default
// fields. Registering an existing session is logged and leaves state untouched.
func (d *Directory) RegisterSession(ctx context.Context, session model.SessionID) error {
	var opErr error
	err := d.submit(ctx, func() {
		if _, ok := d.players.Get(session); ok {
			d.logger.Warn("player already exists", slog.Uint64("session", uint64(session)))
			opErr = model.ErrAlreadyRegistered
			return
		}
		player := model.Player{
			SessionID:   session,
			StableID:    model.StableID(d.random.UUID()),
			DisplayName: fmt.Sprintf("Player_%d", session),
			RoomID:      model.NoRoom,
		}
		if err := d.players.Insert(session, player); err != nil {
			opErr = err
			return
		}
		d.logger.Info("player added",
			slog.String("name", player.DisplayName),
			slog.Uint64("session", uint64(session)))
	})
	if err != nil {
		return err
	}
	return opErr
}

// RemoveSession removes a player on disconnect. If the player owned a room,
// the room is destroyed in the same step, so no observer ever sees a room
// whose owner has already disconnected. Removing an unknown session is a no-op.
func (d *Directory) RemoveSession(ctx context.Context, session model.SessionID) error {
	return d.submit(ctx, func() {
		player, ok := d.players.Get(session)
		if !ok {
			return
		}
		room, inRoom := model.Room{}, false
		if player.InRoom() {
			room, inRoom = d.rooms.Get(player.RoomID)
		}
		d.players.Remove(session)
		d.logger.Info("player removed", slog.Uint64("session", uint64(session)))

		if inRoom {
			if room.OwnerSessionID == session {
				d.destroyRoom(room)
			} else {
				d.fireMembershipChanged(room.ID)
			}
		}
	})
}

// SetDisplayName updates the requester's own display name.
func (d *Directory) SetDisplayName(ctx context.Context, session model.SessionID, name string) error {
	return d.updatePlayer(ctx, session, "name", func(p *model.Player) {
		p.DisplayName = model.BoundName(name)
	})
}

// SetTeam updates the requester's own team.
func (d *Directory) SetTeam(ctx context.Context, session model.SessionID, team uint8) error {
	return d.updatePlayer(ctx, session, "team", func(p *model.Player) {
		p.Team = team
	})
}

// SetReady updates the requester's own ready flag.
func (d *Directory) SetReady(ctx context.Context, session model.SessionID, ready bool) error {
	return d.updatePlayer(ctx, session, "ready", func(p *model.Player) {
		p.Ready = ready
	})
}

// SetInGame updates the requester's own in-game flag.
func (d *Directory) SetInGame(ctx context.Context, session model.SessionID, inGame bool) error {
	return d.updatePlayer(ctx, session, "in_game", func(p *model.Player) {
		p.InGame = inGame
	})
}

// SetTeamOf is the privileged explicit-target variant of SetTeam, for server
// code acting on any session's record.
func (d *Directory) SetTeamOf(ctx context.Context, target model.SessionID, team uint8) error {
	return d.SetTeam(ctx, target, team)
}

// SetReadyOf is the privileged explicit-target variant of SetReady.
func (d *Directory) SetReadyOf(ctx context.Context, target model.SessionID, ready bool) error {
	return d.SetReady(ctx, target, ready)
}

func (d *Directory) updatePlayer(ctx context.Context, session model.SessionID, field string, mutate func(*model.Player)) error {
	var opErr error
	err := d.submit(ctx, func() {
		opErr = d.updatePlayerLocked(session, field, mutate)
	})
	if err != nil {
		return err
	}
	return opErr
}

// updatePlayerLocked must run on the authority goroutine.
func (d *Directory) updatePlayerLocked(session model.SessionID, field string, mutate func(*model.Player)) error {
	player, ok := d.players.Get(session)
	if !ok {
		d.logger.Warn("player update for unknown session",
			slog.String("field", field),
			slog.Uint64("session", uint64(session)))
		return model.ErrPlayerNotFound
	}
	mutate(&player)
	d.players.Update(session, player)
	d.logger.Debug("player updated",
		slog.String("field", field),
		slog.Uint64("session", uint64(session)))
	return nil
}

// setPlayerRoomLocked rewrites a player's room reference. Must run on the
// authority goroutine.
func (d *Directory) setPlayerRoomLocked(session model.SessionID, roomID model.RoomID) {
	player, ok := d.players.Get(session)
	if !ok {
		return
	}
	player.RoomID = roomID
	d.players.Update(session, player)
}

// PlayerBySession looks a player up by session id.
func (d *Directory) PlayerBySession(session model.SessionID) (model.Player, bool) {
	return d.players.Get(session)
}

// PlayerByStableID looks a player up by its persistent identifier.
func (d *Directory) PlayerByStableID(id model.StableID) (model.Player, bool) {
	return d.players.Find(func(p model.Player) bool { return p.StableID == id })
}

// SessionExists reports whether a player record exists for session.
func (d *Directory) SessionExists(session model.SessionID) bool {
	_, ok := d.players.Get(session)
	return ok
}

// Players returns all player records in registration order.
func (d *Directory) Players() []model.Player {
	return d.players.Snapshot()
}

// PlayerCount returns the number of registered players.
func (d *Directory) PlayerCount() int {
	return d.players.Len()
}
