package model

// RoomID is a globally unique room identifier, generated at creation.
type RoomID string

// NoRoom is the empty room reference.
const NoRoom RoomID = ""

// Room is one record in the room directory. The member set is not stored here;
// membership is derived by scanning the session directory for matching RoomID.
type Room struct {
	ID             RoomID
	OwnerSessionID SessionID
	Hidden         bool
	Name           string
	Metadata       Metadata
}

// IsEmpty reports whether this is the zero room.
func (r Room) IsEmpty() bool {
	return r.ID == NoRoom
}
