package visibility

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/runtime"
	"github.com/lobbyd/lobbyd/internal/testutil"
)

// fakeLifecycle records lifecycle calls.
type fakeLifecycle struct {
	next      runtime.EntityHandle
	destroyed []runtime.EntityHandle
	shows     []visCall
}

type visCall struct {
	handle  runtime.EntityHandle
	session model.SessionID
	visible bool
}

func (f *fakeLifecycle) Instantiate(runtime.PrefabRef, model.RoomID, model.SessionID) (runtime.EntityHandle, error) {
	f.next++
	return f.next, nil
}

func (f *fakeLifecycle) Destroy(handle runtime.EntityHandle) error {
	f.destroyed = append(f.destroyed, handle)
	return nil
}

func (f *fakeLifecycle) SetObserverVisible(handle runtime.EntityHandle, session model.SessionID, visible bool) error {
	f.shows = append(f.shows, visCall{handle, session, visible})
	return nil
}

// fakeMembership maps rooms to member sessions.
type fakeMembership struct {
	members map[model.RoomID][]model.SessionID
}

func (f *fakeMembership) MemberSessionsOf(roomID model.RoomID) []model.SessionID {
	return f.members[roomID]
}

type PartitionSuite struct {
	suite.Suite
	lifecycle  *fakeLifecycle
	membership *fakeMembership
	partition  *Partition
}

func TestPartitionSuite(t *testing.T) {
	suite.Run(t, new(PartitionSuite))
}

func (s *PartitionSuite) SetupTest() {
	s.lifecycle = &fakeLifecycle{}
	s.membership = &fakeMembership{members: make(map[model.RoomID][]model.SessionID)}
	s.partition = New(s.lifecycle, s.membership, testutil.NopLogger())
}

func (s *PartitionSuite) spawn(roomID model.RoomID, connected ...model.SessionID) runtime.EntityHandle {
	handle, err := s.partition.Spawn("door", roomID, model.AuthoritySession, connected)
	s.Require().NoError(err)
	return handle
}

func (s *PartitionSuite) TestSpawnShowsOnlyToRoomMembers() {
	s.membership.members["room-a"] = []model.SessionID{1, 2}

	handle := s.spawn("room-a", 0, 1, 2, 3)

	s.True(s.partition.VisibleTo(handle, 1))
	s.True(s.partition.VisibleTo(handle, 2))
	s.False(s.partition.VisibleTo(handle, 3))
}

func (s *PartitionSuite) TestAuthorityAlwaysSees() {
	s.membership.members["room-a"] = []model.SessionID{1}

	handle := s.spawn("room-a", 0, 1)

	s.True(s.partition.VisibleTo(handle, model.AuthoritySession))
	// No explicit show call is issued for the authority session.
	for _, call := range s.lifecycle.shows {
		s.NotEqual(model.AuthoritySession, call.session)
	}
}

func (s *PartitionSuite) TestLateConnectorSeesOwnRoomOnly() {
	s.membership.members["room-a"] = []model.SessionID{1}
	s.membership.members["room-b"] = []model.SessionID{2}
	inA := s.spawn("room-a", 0, 1)
	inB := s.spawn("room-b", 0, 1)

	// Session 2 connects after both spawns.
	s.partition.HandleSessionConnected(2)

	s.False(s.partition.VisibleTo(inA, 2))
	s.True(s.partition.VisibleTo(inB, 2))
}

func (s *PartitionSuite) TestMembershipChangeRecomputes() {
	s.membership.members["room-a"] = []model.SessionID{1}
	handle := s.spawn("room-a", 0, 1, 2)
	s.False(s.partition.VisibleTo(handle, 2))

	// Session 2 joins the room.
	s.membership.members["room-a"] = []model.SessionID{1, 2}
	s.partition.HandleMembershipChanged("room-a", []model.SessionID{0, 1, 2})
	s.True(s.partition.VisibleTo(handle, 2))

	// Session 1 leaves.
	s.membership.members["room-a"] = []model.SessionID{2}
	s.partition.HandleMembershipChanged("room-a", []model.SessionID{0, 1, 2})
	s.False(s.partition.VisibleTo(handle, 1))
}

func (s *PartitionSuite) TestNoRedundantVisibilityCalls() {
	s.membership.members["room-a"] = []model.SessionID{1}
	handle := s.spawn("room-a", 0, 1, 2)

	calls := len(s.lifecycle.shows)
	// Recompute with no membership change.
	s.partition.HandleMembershipChanged("room-a", []model.SessionID{0, 1, 2})
	s.Equal(calls, len(s.lifecycle.shows))
	s.True(s.partition.VisibleTo(handle, 1))
}

func (s *PartitionSuite) TestDespawnRoomDestroysItsEntities() {
	s.membership.members["room-a"] = []model.SessionID{1}
	s.membership.members["room-b"] = []model.SessionID{2}
	inA := s.spawn("room-a", 0, 1)
	inB := s.spawn("room-b", 0, 2)

	s.partition.DespawnRoom("room-a")

	s.Equal([]runtime.EntityHandle{inA}, s.lifecycle.destroyed)
	s.False(s.partition.VisibleTo(inA, 1))
	s.True(s.partition.VisibleTo(inB, 2))
	s.Equal(1, s.partition.TrackedCount())
}

func (s *PartitionSuite) TestDisconnectDropsObserver() {
	s.membership.members["room-a"] = []model.SessionID{1}
	handle := s.spawn("room-a", 0, 1)
	s.Require().True(s.partition.VisibleTo(handle, 1))

	s.partition.HandleSessionDisconnected(1)
	s.False(s.partition.VisibleTo(handle, 1))
}

func (s *PartitionSuite) TestForgetStopsTrackingWithoutDestroy() {
	s.membership.members["room-a"] = []model.SessionID{1}
	handle := s.spawn("room-a", 0, 1)

	s.partition.Forget(handle)

	s.Empty(s.lifecycle.destroyed)
	s.Equal(0, s.partition.TrackedCount())
}
