// Package match moves a room's members in and out of a live match: it loads
// the match scene for exactly the room's member set and flips their in-game
// flags.
package match

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lobbyd/lobbyd/internal/directory"
	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/runtime"
)

// Coordinator drives match scene transitions for rooms.
type Coordinator struct {
	dir    *directory.Directory
	scenes runtime.SceneLoader
	logger *slog.Logger
}

func New(dir *directory.Directory, scenes runtime.SceneLoader, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		dir:    dir,
		scenes: scenes,
		logger: logger.With(slog.String("component", "match")),
	}
}

// Start loads scene for every current member of the room and marks them
// in-game. The member set is captured once; sessions joining the room later
// do not get the scene.
func (c *Coordinator) Start(ctx context.Context, roomID model.RoomID, scene runtime.SceneRef) error {
	if !c.dir.RoomExists(roomID) {
		return model.ErrRoomNotFound
	}
	members := c.dir.MemberSessionsOf(roomID)
	if err := c.scenes.LoadForSessions(scene, runtime.LoadAdditive, members); err != nil {
		return fmt.Errorf("load match scene: %w", err)
	}
	for _, session := range members {
		if err := c.dir.SetInGame(ctx, session, true); err != nil {
			return err
		}
	}
	c.logger.Info("match started",
		slog.String("room", string(roomID)),
		slog.String("scene", string(scene)),
		slog.Int("members", len(members)))
	return nil
}

// Finish unloads scene for the room's members and clears their in-game flags.
// Members who left the room mid-match keep their flag; they are no longer the
// room's concern.
func (c *Coordinator) Finish(ctx context.Context, roomID model.RoomID, scene runtime.SceneRef) error {
	if !c.dir.RoomExists(roomID) {
		return model.ErrRoomNotFound
	}
	members := c.dir.MemberSessionsOf(roomID)
	if err := c.scenes.UnloadForSessions(scene, members); err != nil {
		return fmt.Errorf("unload match scene: %w", err)
	}
	for _, session := range members {
		if err := c.dir.SetInGame(ctx, session, false); err != nil {
			return err
		}
	}
	c.logger.Info("match finished",
		slog.String("room", string(roomID)),
		slog.String("scene", string(scene)))
	return nil
}
