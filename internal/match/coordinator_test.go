package match

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lobbyd/lobbyd/internal/dependencies/mocks"
	"github.com/lobbyd/lobbyd/internal/directory"
	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/runtime"
	"github.com/lobbyd/lobbyd/internal/testutil"
)

type sceneCall struct {
	scene    runtime.SceneRef
	mode     runtime.LoadMode
	sessions []model.SessionID
}

type fakeScenes struct {
	loads   []sceneCall
	unloads []sceneCall
	err     error
}

func (f *fakeScenes) LoadForSessions(scene runtime.SceneRef, mode runtime.LoadMode, sessions []model.SessionID) error {
	if f.err != nil {
		return f.err
	}
	f.loads = append(f.loads, sceneCall{scene: scene, mode: mode, sessions: sessions})
	return nil
}

func (f *fakeScenes) UnloadForSessions(scene runtime.SceneRef, sessions []model.SessionID) error {
	if f.err != nil {
		return f.err
	}
	f.unloads = append(f.unloads, sceneCall{scene: scene, sessions: sessions})
	return nil
}

type allConnected struct{}

func (allConnected) IsConnected(model.SessionID) bool     { return true }
func (allConnected) ConnectedSessions() []model.SessionID { return nil }

type CoordinatorSuite struct {
	suite.Suite
	dir    *directory.Directory
	scenes *fakeScenes
	coord  *Coordinator
	ctx    context.Context
	cancel context.CancelFunc
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	rnd := mocks.NewMockRandom()
	for i := 0; i < 20; i++ {
		rnd.QueueUUID(fmt.Sprintf("uuid-%d", i))
	}
	logger := testutil.NopLogger()
	s.dir = directory.New(directory.NopNotifier{}, allConnected{}, rnd, logger)
	s.scenes = &fakeScenes{}
	s.coord = New(s.dir, s.scenes, logger)

	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.dir.Run(s.ctx)
}

func (s *CoordinatorSuite) TearDownTest() {
	s.cancel()
}

// roomWithMembers registers sessions, has the first create a room, and the
// rest join it.
func (s *CoordinatorSuite) roomWithMembers(sessions ...model.SessionID) model.RoomID {
	for _, session := range sessions {
		s.Require().NoError(s.dir.RegisterSession(s.ctx, session))
	}
	room, err := s.dir.CreateRoom(s.ctx, sessions[0], "arena")
	s.Require().NoError(err)
	for _, session := range sessions[1:] {
		_, err := s.dir.JoinRoom(s.ctx, session, room.ID)
		s.Require().NoError(err)
	}
	return room.ID
}

func (s *CoordinatorSuite) TestStartLoadsSceneForMembers() {
	roomID := s.roomWithMembers(1, 2)
	s.Require().NoError(s.dir.RegisterSession(s.ctx, 3))

	s.Require().NoError(s.coord.Start(s.ctx, roomID, "match_01"))

	s.Require().Len(s.scenes.loads, 1)
	call := s.scenes.loads[0]
	s.Equal(runtime.SceneRef("match_01"), call.scene)
	s.Equal(runtime.LoadAdditive, call.mode)
	s.ElementsMatch([]model.SessionID{1, 2}, call.sessions)

	for _, session := range []model.SessionID{1, 2} {
		player, ok := s.dir.PlayerBySession(session)
		s.Require().True(ok)
		s.True(player.InGame)
	}
	outsider, _ := s.dir.PlayerBySession(3)
	s.False(outsider.InGame)
}

func (s *CoordinatorSuite) TestFinishUnloadsAndClearsFlags() {
	roomID := s.roomWithMembers(1, 2)
	s.Require().NoError(s.coord.Start(s.ctx, roomID, "match_01"))

	s.Require().NoError(s.coord.Finish(s.ctx, roomID, "match_01"))

	s.Require().Len(s.scenes.unloads, 1)
	s.ElementsMatch([]model.SessionID{1, 2}, s.scenes.unloads[0].sessions)
	for _, session := range []model.SessionID{1, 2} {
		player, _ := s.dir.PlayerBySession(session)
		s.False(player.InGame)
	}
}

func (s *CoordinatorSuite) TestMidMatchLeaverKeepsFlag() {
	roomID := s.roomWithMembers(1, 2)
	s.Require().NoError(s.coord.Start(s.ctx, roomID, "match_01"))
	s.Require().NoError(s.dir.LeaveRoom(s.ctx, 2))

	s.Require().NoError(s.coord.Finish(s.ctx, roomID, "match_01"))

	owner, _ := s.dir.PlayerBySession(1)
	s.False(owner.InGame)
	leaver, _ := s.dir.PlayerBySession(2)
	s.True(leaver.InGame)
	s.ElementsMatch([]model.SessionID{1}, s.scenes.unloads[0].sessions)
}

func (s *CoordinatorSuite) TestUnknownRoomFails() {
	s.ErrorIs(s.coord.Start(s.ctx, "missing", "match_01"), model.ErrRoomNotFound)
	s.ErrorIs(s.coord.Finish(s.ctx, "missing", "match_01"), model.ErrRoomNotFound)
}

func (s *CoordinatorSuite) TestLoadFailureLeavesFlagsUntouched() {
	roomID := s.roomWithMembers(1)
	s.scenes.err = fmt.Errorf("transport down")

	s.Error(s.coord.Start(s.ctx, roomID, "match_01"))

	player, _ := s.dir.PlayerBySession(1)
	s.False(player.InGame)
}
