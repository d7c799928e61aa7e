package redis

import (
	"fmt"

	"github.com/lobbyd/lobbyd/internal/model"
)

// Key prefix for all mirrored directory data
const keyPrefix = "lobbyd"

// playerKey returns the Redis key for a mirrored player record
func playerKey(session model.SessionID) string {
	return fmt.Sprintf("%s:player:%d", keyPrefix, session)
}

// roomKey returns the Redis key for a mirrored room record
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// playersIndexKey returns the Redis key for the SET of mirrored sessions
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// roomsIndexKey returns the Redis key for the SET of mirrored rooms
func roomsIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}
