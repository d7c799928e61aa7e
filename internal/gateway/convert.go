package gateway

import (
	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/protocol"
)

func playerState(p model.Player) protocol.PlayerState {
	return protocol.PlayerState{
		SessionID:   uint64(p.SessionID),
		StableID:    string(p.StableID),
		DisplayName: p.DisplayName,
		Team:        p.Team,
		InGame:      p.InGame,
		Ready:       p.Ready,
		RoomID:      string(p.RoomID),
	}
}

func playerStates(players []model.Player) []protocol.PlayerState {
	out := make([]protocol.PlayerState, 0, len(players))
	for _, p := range players {
		out = append(out, playerState(p))
	}
	return out
}

func roomState(r model.Room) protocol.RoomState {
	return protocol.RoomState{
		ID:       string(r.ID),
		Owner:    uint64(r.OwnerSessionID),
		Name:     r.Name,
		Hidden:   r.Hidden,
		Metadata: string(r.Metadata),
	}
}

func roomStates(rooms []model.Room) []protocol.RoomState {
	out := make([]protocol.RoomState, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomState(r))
	}
	return out
}
