package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/storage"
)

// CacheTTL is the state and room TTL the cache under test must be built with
const CacheTTL = time.Hour

// CacheSuite checks a StateCache implementation. NewCache must build a cache
// using CacheTTL; Advance moves that cache's notion of time forward.
type CacheSuite struct {
	suite.Suite
	NewCache func() storage.StateCache
	Advance  func(d time.Duration)

	cache storage.StateCache
	ctx   context.Context
}

func (s *CacheSuite) SetupTest() {
	s.cache = s.NewCache()
	s.ctx = context.Background()
}

// State builds a small game state at the given sequence
func State(gameID model.GameID, seq int64) *model.GameState {
	state := model.NewGameState(gameID)
	state.RoomCode = "ABCD"
	state.HostID = "alice"
	state.Options = model.DefaultHouseRules()
	state.TotalRounds = state.Options.TotalRounds
	state.Players["alice"] = &model.PlayerState{ID: "alice", Name: "Alice"}
	state.PlayerOrder = []model.PlayerID{"alice"}
	state.SequenceNum = seq
	return state
}

func (s *CacheSuite) TestSaveAndGetState() {
	state := State("g1", 3)

	ok, err := s.cache.SaveState(s.ctx, state)
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.cache.GetState(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(state, got)
}

func (s *CacheSuite) TestGetStateMissing() {
	_, err := s.cache.GetState(s.ctx, "missing")
	s.ErrorIs(err, model.ErrStateNotCached)
}

func (s *CacheSuite) TestStaleWriteDiscarded() {
	_, err := s.cache.SaveState(s.ctx, State("g1", 5))
	s.Require().NoError(err)

	ok, err := s.cache.SaveState(s.ctx, State("g1", 4))
	s.Require().NoError(err)
	s.False(ok)

	got, err := s.cache.GetState(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(int64(5), got.SequenceNum)
}

func (s *CacheSuite) TestEqualWriteDiscarded() {
	_, err := s.cache.SaveState(s.ctx, State("g1", 5))
	s.Require().NoError(err)

	same := State("g1", 5)
	same.Phase = model.PhasePlaying
	ok, err := s.cache.SaveState(s.ctx, same)
	s.Require().NoError(err)
	s.False(ok)

	got, err := s.cache.GetState(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(int64(5), got.SequenceNum)
	s.NotEqual(model.PhasePlaying, got.Phase)
}

func (s *CacheSuite) TestNewerWriteAccepted() {
	_, err := s.cache.SaveState(s.ctx, State("g1", 5))
	s.Require().NoError(err)

	ok, err := s.cache.SaveState(s.ctx, State("g1", 9))
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.cache.GetState(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(int64(9), got.SequenceNum)
}

func (s *CacheSuite) TestStateExpires() {
	_, err := s.cache.SaveState(s.ctx, State("g1", 1))
	s.Require().NoError(err)

	s.Advance(CacheTTL + time.Second)

	_, err = s.cache.GetState(s.ctx, "g1")
	s.ErrorIs(err, model.ErrStateNotCached)

	ok, err := s.cache.SaveState(s.ctx, State("g1", 0))
	s.Require().NoError(err)
	s.True(ok)
}

func (s *CacheSuite) TestWriteRefreshesTTL() {
	_, err := s.cache.SaveState(s.ctx, State("g1", 1))
	s.Require().NoError(err)
	s.Advance(CacheTTL / 2)
	_, err = s.cache.SaveState(s.ctx, State("g1", 2))
	s.Require().NoError(err)

	s.Advance(CacheTTL/2 + time.Minute)

	got, err := s.cache.GetState(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(int64(2), got.SequenceNum)
}

func (s *CacheSuite) TestDeleteState() {
	_, err := s.cache.SaveState(s.ctx, State("g1", 1))
	s.Require().NoError(err)

	s.Require().NoError(s.cache.DeleteState(s.ctx, "g1"))

	_, err = s.cache.GetState(s.ctx, "g1")
	s.ErrorIs(err, model.ErrStateNotCached)
}

func (s *CacheSuite) TestCachedStateIsACopy() {
	state := State("g1", 1)
	_, err := s.cache.SaveState(s.ctx, state)
	s.Require().NoError(err)

	state.Players["alice"].TotalScore = 99

	got, err := s.cache.GetState(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(0, got.Players["alice"].TotalScore)
}

func (s *CacheSuite) TestRooms() {
	room := &model.Room{
		RoomCode:     "ABCD",
		GameID:       "g1",
		HostID:       "alice",
		ServerNodeID: "node-a",
		CreatedAt:    baseTime,
	}

	s.Require().NoError(s.cache.SaveRoom(s.ctx, room))

	got, err := s.cache.GetRoom(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(room.GameID, got.GameID)
	s.Equal(room.ServerNodeID, got.ServerNodeID)
	s.True(room.CreatedAt.Equal(got.CreatedAt))

	s.Require().NoError(s.cache.DeleteRoom(s.ctx, "ABCD"))
	_, err = s.cache.GetRoom(s.ctx, "ABCD")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *CacheSuite) TestRoomExpires() {
	s.Require().NoError(s.cache.SaveRoom(s.ctx, &model.Room{RoomCode: "ABCD", GameID: "g1"}))

	s.Advance(CacheTTL + time.Second)

	_, err := s.cache.GetRoom(s.ctx, "ABCD")
	s.ErrorIs(err, model.ErrRoomNotFound)
}
