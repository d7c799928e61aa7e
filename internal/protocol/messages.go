// Package protocol defines the websocket wire format. Every frame is a JSON
// envelope with a type discriminator; payload fields are flattened into the
// envelope and omitted when empty.
package protocol

import "time"

// Client-to-server message types.
const (
	ClientCreateRoom     = "create_room"
	ClientJoinRoom       = "join_room"
	ClientLeaveRoom      = "leave_room"
	ClientSetHidden      = "set_hidden"
	ClientSetName        = "set_name"
	ClientSetTeam        = "set_team"
	ClientSetReady       = "set_ready"
	ClientSetMetadata    = "set_metadata"
	ClientRemoveMetadata = "remove_metadata"
	ClientPing           = "ping"
	ClientPong           = "pong"
)

// Server-to-client message types.
const (
	ServerWelcome       = "welcome"
	ServerPlayerAdded   = "player_added"
	ServerPlayerUpdated = "player_updated"
	ServerPlayerRemoved = "player_removed"
	ServerRoomAdded     = "room_added"
	ServerRoomUpdated   = "room_updated"
	ServerRoomRemoved   = "room_removed"
	ServerRoomCreated   = "room_created"
	ServerRoomJoined    = "room_joined"
	ServerRoomLeft      = "room_left"
	ServerError         = "error"
	ServerPing          = "ping"
	ServerPong          = "pong"

	ServerEntityShown     = "entity_shown"
	ServerEntityHidden    = "entity_hidden"
	ServerEntityDestroyed = "entity_destroyed"
	ServerSceneLoad       = "scene_load"
	ServerSceneUnload     = "scene_unload"
)

// ClientMessage is a frame sent by a client.
type ClientMessage struct {
	Type string `json:"type"`

	RoomID   string `json:"roomId,omitempty"`
	Name     string `json:"name,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`
	Team     uint8  `json:"team,omitempty"`
	Ready    bool   `json:"ready,omitempty"`
	Key      string `json:"key,omitempty"`
	Value    string `json:"value,omitempty"`
	SentAt   int64  `json:"sentAt,omitempty"`
	Sequence uint64 `json:"seq,omitempty"`
}

// ServerMessage is a frame sent by the server.
type ServerMessage struct {
	Type string `json:"type"`

	SessionID uint64        `json:"sessionId,omitempty"`
	Player    *PlayerState  `json:"player,omitempty"`
	Room      *RoomState    `json:"room,omitempty"`
	Players   []PlayerState `json:"players,omitempty"`
	Rooms     []RoomState   `json:"rooms,omitempty"`
	Version   uint64        `json:"version,omitempty"`
	Error     string        `json:"error,omitempty"`
	SentAt    int64         `json:"sentAt,omitempty"`
	Sequence  uint64        `json:"seq,omitempty"`

	Entity uint64 `json:"entity,omitempty"`
	Prefab string `json:"prefab,omitempty"`
	Scene  string `json:"scene,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

// PlayerState is the replicated view of a session directory record.
type PlayerState struct {
	SessionID   uint64 `json:"sessionId"`
	StableID    string `json:"stableId"`
	DisplayName string `json:"displayName"`
	Team        uint8  `json:"team"`
	InGame      bool   `json:"inGame"`
	Ready       bool   `json:"ready"`
	RoomID      string `json:"roomId,omitempty"`
}

// RoomState is the replicated view of a room directory record.
type RoomState struct {
	ID       string `json:"id"`
	Owner    uint64 `json:"owner"`
	Name     string `json:"name"`
	Hidden   bool   `json:"hidden"`
	Metadata string `json:"metadata,omitempty"`
}

// PingPayload builds a server ping frame carrying the wall-clock send time in
// unix microseconds.
func PingPayload(sentAt time.Time) ServerMessage {
	return ServerMessage{Type: ServerPing, SentAt: sentAt.UnixMicro()}
}

// EchoTime recovers the send time from a pong frame.
func EchoTime(msg ClientMessage) time.Time {
	return time.UnixMicro(msg.SentAt)
}
