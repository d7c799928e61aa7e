package directory

import (
	"strings"

	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/replica"
)

// CreateRoom tests

func (s *DirectorySuite) TestCreateRoomMovesOwnerIn() {
	s.register(5)

	room, err := s.dir.CreateRoom(s.ctx, 5, "den")
	s.Require().NoError(err)

	s.Equal(model.RoomID("uuid-1"), room.ID)
	s.Equal(model.SessionID(5), room.OwnerSessionID)
	s.Equal("den", room.Name)
	s.False(room.Hidden)

	owner, _ := s.dir.PlayerBySession(5)
	s.Equal(room.ID, owner.RoomID)
	s.Equal(1, s.dir.MemberCountOf(room.ID))
}

func (s *DirectorySuite) TestCreateRoomNotifiesOwner() {
	s.register(5)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")

	s.Require().Len(s.notifier.created, 1)
	s.Equal(notice{5, room.ID}, s.notifier.created[0])
	s.Require().Len(s.notifier.joined, 1)
	s.Equal(notice{5, room.ID}, s.notifier.joined[0])
}

func (s *DirectorySuite) TestCreateRoomSkipsConfirmationsWhenOffline() {
	s.register(5)
	s.conns.offline[5] = true

	_, err := s.dir.CreateRoom(s.ctx, 5, "den")
	s.Require().NoError(err)

	s.Empty(s.notifier.created)
	s.Empty(s.notifier.joined)
}

func (s *DirectorySuite) TestCreateRoomWhileInRoomFails() {
	s.register(5)
	_, _ = s.dir.CreateRoom(s.ctx, 5, "first")

	_, err := s.dir.CreateRoom(s.ctx, 5, "second")
	s.ErrorIs(err, model.ErrAlreadyInRoom)
	s.Len(s.dir.Rooms(), 1)
}

func (s *DirectorySuite) TestCreateRoomTruncatesName() {
	s.register(5)
	long := strings.Repeat("n", model.MaxNameLength+10)

	room, err := s.dir.CreateRoom(s.ctx, 5, long)
	s.Require().NoError(err)
	s.Equal(long[:model.MaxNameLength], room.Name)
}

// JoinRoom tests

func (s *DirectorySuite) TestJoinRoomAddsMember() {
	s.register(5, 6)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")

	joined, err := s.dir.JoinRoom(s.ctx, 6, room.ID)
	s.Require().NoError(err)
	s.Equal(room.ID, joined.ID)
	s.Equal(2, s.dir.MemberCountOf(room.ID))

	s.Require().Len(s.notifier.joined, 2)
	s.Equal(notice{6, room.ID}, s.notifier.joined[1])
}

func (s *DirectorySuite) TestJoinMissingRoomFails() {
	s.register(5)
	_, err := s.dir.JoinRoom(s.ctx, 5, "not-a-room")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *DirectorySuite) TestJoinWhileInRoomFails() {
	s.register(5, 6)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "a")
	other, _ := s.dir.CreateRoom(s.ctx, 6, "b")

	_, err := s.dir.JoinRoom(s.ctx, 5, other.ID)
	s.ErrorIs(err, model.ErrAlreadyInRoom)

	owner, _ := s.dir.PlayerBySession(5)
	s.Equal(room.ID, owner.RoomID)
}

// LeaveRoom tests

func (s *DirectorySuite) TestMemberLeaveKeepsRoom() {
	s.register(5, 6)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")
	_, _ = s.dir.JoinRoom(s.ctx, 6, room.ID)

	s.Require().NoError(s.dir.LeaveRoom(s.ctx, 6))

	s.True(s.dir.RoomExists(room.ID))
	member, _ := s.dir.PlayerBySession(6)
	s.False(member.InRoom())
	s.Require().Len(s.notifier.left, 1)
	s.Equal(notice{6, room.ID}, s.notifier.left[0])
}

func (s *DirectorySuite) TestOwnerLeaveDestroysRoomAndEvictsMembers() {
	s.register(5, 6, 7)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")
	_, _ = s.dir.JoinRoom(s.ctx, 6, room.ID)
	_, _ = s.dir.JoinRoom(s.ctx, 7, room.ID)

	s.Require().NoError(s.dir.LeaveRoom(s.ctx, 5))

	s.False(s.dir.RoomExists(room.ID))
	for _, session := range []model.SessionID{5, 6, 7} {
		player, _ := s.dir.PlayerBySession(session)
		s.False(player.InRoom(), "session %d still references the room", session)
	}
	// Every member got a Left confirmation, the owner first.
	s.Require().Len(s.notifier.left, 3)
	s.Equal(notice{5, room.ID}, s.notifier.left[0])
}

func (s *DirectorySuite) TestOwnerLeaveSkipsOfflineMembers() {
	s.register(5, 6, 7)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")
	_, _ = s.dir.JoinRoom(s.ctx, 6, room.ID)
	_, _ = s.dir.JoinRoom(s.ctx, 7, room.ID)
	s.conns.offline[6] = true

	s.Require().NoError(s.dir.LeaveRoom(s.ctx, 5))

	for _, n := range s.notifier.left {
		s.NotEqual(model.SessionID(6), n.session)
	}
	// The offline member's record is still cleared.
	player, _ := s.dir.PlayerBySession(6)
	s.False(player.InRoom())
}

func (s *DirectorySuite) TestLeaveWithoutRoomFails() {
	s.register(5)
	err := s.dir.LeaveRoom(s.ctx, 5)
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *DirectorySuite) TestRoomRemovingHookSeesFinalState() {
	s.register(5, 6)

	var hookRoom model.Room
	var hookMembers int
	s.dir.OnRoomRemoving(func(room model.Room) {
		hookRoom = room
		hookMembers = s.dir.MemberCountOf(room.ID)
	})

	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")
	_, _ = s.dir.JoinRoom(s.ctx, 6, room.ID)
	s.Require().NoError(s.dir.LeaveRoom(s.ctx, 5))

	s.Equal(room.ID, hookRoom.ID)
	// The owner already left; the remaining member is still attached when
	// the hook fires.
	s.Equal(1, hookMembers)
}

// Hidden flag tests

func (s *DirectorySuite) TestOwnerCanSetHidden() {
	s.register(5)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")

	s.Require().NoError(s.dir.SetRoomHidden(s.ctx, 5, room.ID, true))

	got, _ := s.dir.RoomByID(room.ID)
	s.True(got.Hidden)
	s.Len(s.dir.HiddenRooms(), 1)
	s.Empty(s.dir.VisibleRooms())
}

func (s *DirectorySuite) TestNonOwnerCannotSetHidden() {
	s.register(5, 6)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")
	_, _ = s.dir.JoinRoom(s.ctx, 6, room.ID)

	err := s.dir.SetRoomHidden(s.ctx, 6, room.ID, true)
	s.ErrorIs(err, model.ErrNotAuthorized)

	got, _ := s.dir.RoomByID(room.ID)
	s.False(got.Hidden)
}

func (s *DirectorySuite) TestOutsiderCannotSetHidden() {
	s.register(5, 6)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")

	err := s.dir.SetRoomHidden(s.ctx, 6, room.ID, true)
	s.ErrorIs(err, model.ErrNotAuthorized)
}

// DestroyRoom tests

func (s *DirectorySuite) TestDestroyRoomEvictsEveryone() {
	s.register(5, 6)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")
	_, _ = s.dir.JoinRoom(s.ctx, 6, room.ID)

	s.Require().NoError(s.dir.DestroyRoom(s.ctx, room.ID))

	s.False(s.dir.RoomExists(room.ID))
	for _, session := range []model.SessionID{5, 6} {
		player, _ := s.dir.PlayerBySession(session)
		s.False(player.InRoom())
	}
	s.Len(s.notifier.left, 2)
}

func (s *DirectorySuite) TestDestroyClearsMembersBeforeRemovingRecord() {
	s.register(5, 6)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")
	_, _ = s.dir.JoinRoom(s.ctx, 6, room.ID)

	// When the Removed event fires no player may still reference the room.
	danglers := -1
	_, cancel := s.dir.SubscribeRooms(func(ev replica.Event[model.Room]) {
		if ev.Kind == replica.Removed {
			danglers = len(s.dir.MembersOf(ev.Value.ID))
		}
	})
	defer cancel()

	s.Require().NoError(s.dir.DestroyRoom(s.ctx, room.ID))
	s.Equal(0, danglers)
}

func (s *DirectorySuite) TestDestroyMissingRoomFails() {
	err := s.dir.DestroyRoom(s.ctx, "nope")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// Metadata tests

func (s *DirectorySuite) TestMetadataUpdateByAnyMember() {
	s.register(5, 6)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")
	_, _ = s.dir.JoinRoom(s.ctx, 6, room.ID)

	s.Require().NoError(s.dir.UpdateMetadataString(s.ctx, 6, "mode", "ctf"))

	got, _ := s.dir.RoomByID(room.ID)
	s.Equal("ctf", got.Metadata.GetString("mode", ""))
}

func (s *DirectorySuite) TestMetadataUpdateRequiresRoom() {
	s.register(5)
	err := s.dir.UpdateMetadataString(s.ctx, 5, "mode", "ctf")
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *DirectorySuite) TestMetadataTypedValue() {
	s.register(5)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")

	s.Require().NoError(s.dir.UpdateMetadata(s.ctx, 5, "maxPlayers", model.IntValue(8)))

	got, _ := s.dir.RoomByID(room.ID)
	v, ok := got.Metadata.Get("maxPlayers")
	s.Require().True(ok)
	s.Equal(int64(8), v.Int)
}

func (s *DirectorySuite) TestMetadataCapacityFailureLeavesRoomUnchanged() {
	s.register(5)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")
	s.Require().NoError(s.dir.UpdateMetadataString(s.ctx, 5, "keep", "me"))

	err := s.dir.UpdateMetadataString(s.ctx, 5, "big", strings.Repeat("x", model.MetadataCapacity))
	s.ErrorIs(err, model.ErrCapacityExceeded)

	got, _ := s.dir.RoomByID(room.ID)
	s.Equal("me", got.Metadata.GetString("keep", ""))
	s.Equal(1, got.Metadata.Len())
}

func (s *DirectorySuite) TestRemoveMetadataKey() {
	s.register(5)
	room, _ := s.dir.CreateRoom(s.ctx, 5, "den")
	s.Require().NoError(s.dir.UpdateMetadataString(s.ctx, 5, "mode", "ctf"))

	s.Require().NoError(s.dir.RemoveMetadataKey(s.ctx, 5, "mode"))

	got, _ := s.dir.RoomByID(room.ID)
	s.False(got.Metadata.Contains("mode"))
}

// Identifier parsing

func (s *DirectorySuite) TestSetRoomOfPlacesTarget() {
	s.register(1, 2)
	room, err := s.dir.CreateRoom(s.ctx, 1, "den")
	s.Require().NoError(err)

	s.Require().NoError(s.dir.SetRoomOf(s.ctx, 2, room.ID))

	player, _ := s.dir.PlayerBySession(2)
	s.Equal(room.ID, player.RoomID)
	s.Contains(s.notifier.joined, notice{2, room.ID})
}

func (s *DirectorySuite) TestSetRoomOfMovesBetweenRooms() {
	s.register(1, 2, 3)
	roomA, _ := s.dir.CreateRoom(s.ctx, 1, "a")
	roomB, _ := s.dir.CreateRoom(s.ctx, 2, "b")
	_, err := s.dir.JoinRoom(s.ctx, 3, roomA.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.dir.SetRoomOf(s.ctx, 3, roomB.ID))

	player, _ := s.dir.PlayerBySession(3)
	s.Equal(roomB.ID, player.RoomID)
	s.Contains(s.notifier.left, notice{3, roomA.ID})
	s.True(s.dir.RoomExists(roomA.ID))
}

func (s *DirectorySuite) TestSetRoomOfEvictingOwnerDestroysRoom() {
	s.register(1, 2)
	room, _ := s.dir.CreateRoom(s.ctx, 1, "den")
	_, err := s.dir.JoinRoom(s.ctx, 2, room.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.dir.SetRoomOf(s.ctx, 1, model.NoRoom))

	s.False(s.dir.RoomExists(room.ID))
	member, _ := s.dir.PlayerBySession(2)
	s.False(member.InRoom())
}

func (s *DirectorySuite) TestSetRoomOfValidatesTargets() {
	s.register(1)
	s.ErrorIs(s.dir.SetRoomOf(s.ctx, 9, model.NoRoom), model.ErrPlayerNotFound)
	s.ErrorIs(s.dir.SetRoomOf(s.ctx, 1, "missing"), model.ErrRoomNotFound)
}

func (s *DirectorySuite) TestSetRoomOfSameRoomIsNoOp() {
	s.register(1)
	room, _ := s.dir.CreateRoom(s.ctx, 1, "den")
	joinedBefore := len(s.notifier.joined)

	s.Require().NoError(s.dir.SetRoomOf(s.ctx, 1, room.ID))
	s.Len(s.notifier.joined, joinedBefore)
}

func (s *DirectorySuite) TestParseRoomID() {
	id, err := ParseRoomID("3b241101-e2bb-4255-8caf-4136c566a962")
	s.Require().NoError(err)
	s.Equal(model.RoomID("3b241101-e2bb-4255-8caf-4136c566a962"), id)
}

func (s *DirectorySuite) TestParseRoomIDRejectsGarbage() {
	_, err := ParseRoomID("not-a-uuid")
	s.ErrorIs(err, model.ErrMalformedIdentifier)

	_, err = ParseRoomID("")
	s.ErrorIs(err, model.ErrMalformedIdentifier)
}

// Invariants

func (s *DirectorySuite) TestEveryRoomReferenceNamesAnExistingRoom() {
	s.register(5, 6, 7)
	roomA, _ := s.dir.CreateRoom(s.ctx, 5, "a")
	_, _ = s.dir.JoinRoom(s.ctx, 6, roomA.ID)
	_, _ = s.dir.CreateRoom(s.ctx, 7, "b")
	_ = s.dir.LeaveRoom(s.ctx, 6)
	_ = s.dir.LeaveRoom(s.ctx, 5)
	_ = s.dir.RemoveSession(s.ctx, 7)

	for _, player := range s.dir.Players() {
		if player.InRoom() {
			s.True(s.dir.RoomExists(player.RoomID))
		}
	}
	for _, room := range s.dir.Rooms() {
		s.True(s.dir.SessionExists(room.OwnerSessionID))
	}
}
