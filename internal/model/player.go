package model

// SessionID is a connection-scoped identifier, stable for the lifetime of the
// connection. Session 0 is reserved for the authority's own local session when
// the server process also acts as a participant.
type SessionID uint64

// AuthoritySession is the authority's own local session id.
const AuthoritySession SessionID = 0

// StableID is a persistent opaque identifier, generated once per player instance.
type StableID string

// MaxNameLength bounds player and room display names.
const MaxNameLength = 32

// Player is one record in the session directory. Records are mutated only by
// the authority; a player's own client may request mutations of its own record.
type Player struct {
	SessionID   SessionID
	StableID    StableID
	DisplayName string
	Team        uint8
	InGame      bool
	Ready       bool
	RoomID      RoomID // NoRoom when not in a room
}

// InRoom reports whether the player currently belongs to a room.
func (p Player) InRoom() bool {
	return p.RoomID != NoRoom
}

// BoundName truncates a display name to MaxNameLength.
func BoundName(name string) string {
	if len(name) > MaxNameLength {
		return name[:MaxNameLength]
	}
	return name
}
