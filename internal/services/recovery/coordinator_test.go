package recovery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/golfcards/internal/dependencies/mocks"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/engine"
	"github.com/mcoot/golfcards/internal/services/game"
	"github.com/mcoot/golfcards/internal/storage"
	"github.com/mcoot/golfcards/internal/storage/memory"
	"github.com/mcoot/golfcards/internal/testutil"
)

type failingLog struct {
	storage.EventLog
}

func (failingLog) ActiveGames(ctx context.Context) ([]model.GameID, error) {
	return nil, errors.New("disk on fire")
}

type CoordinatorSuite struct {
	suite.Suite
	log         *memory.EventLog
	cache       *memory.Cache
	clock       *mocks.MockClock
	games       *game.Controller
	coordinator *Coordinator
	ctx         context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.log = memory.NewEventLog(mocks.NewMockIDs("evt"))
	s.cache = memory.NewCache(s.clock, time.Hour, time.Hour)
	s.games = game.NewController(
		game.Config{NodeID: "node-a"},
		s.log, s.cache, memory.NewBus(logger), nil,
		s.clock, mocks.NewMockRandom(), mocks.NewMockIDs("game"), logger,
	)
	s.coordinator = NewCoordinator(s.log, s.cache, s.clock, "node-b", 3, logger)
	s.ctx = context.Background()
}

func (s *CoordinatorSuite) rules() model.HouseRules {
	rules := model.DefaultHouseRules()
	rules.TotalRounds = 1
	rules.InitialFlips = 0
	rules.FlipAsAction = true
	return rules
}

// newGame starts a two-player game and returns its id
func (s *CoordinatorSuite) newGame(room model.RoomCode) model.GameID {
	state, err := s.games.CreateGame(s.ctx, room, "alice", "Alice", s.rules())
	s.Require().NoError(err)
	_, err = s.games.JoinGame(s.ctx, state.GameID, "bob", "Bob", false)
	s.Require().NoError(err)
	_, err = s.games.StartGame(s.ctx, state.GameID, "alice")
	s.Require().NoError(err)
	return state.GameID
}

// finishGame flips every card until the only round ends
func (s *CoordinatorSuite) finishGame(gameID model.GameID) {
	for pos := range model.HandSize {
		for _, player := range []model.PlayerID{"alice", "bob"} {
			_, err := s.games.FlipAsAction(s.ctx, gameID, player, pos)
			s.Require().NoError(err)
		}
	}
}

// forget simulates a node restart that lost every cached entry
func (s *CoordinatorSuite) forget(gameIDs ...model.GameID) {
	for _, id := range gameIDs {
		s.Require().NoError(s.cache.DeleteState(s.ctx, id))
	}
}

func (s *CoordinatorSuite) replay(gameID model.GameID) *model.GameState {
	events, err := s.log.GetEvents(s.ctx, gameID, 0, -1)
	s.Require().NoError(err)
	state, err := engine.Replay(gameID, events)
	s.Require().NoError(err)
	return state
}

func (s *CoordinatorSuite) TestFullRecovery() {
	gameID := s.newGame("ROOM")
	s.forget(gameID)

	state, mode, err := s.coordinator.RecoverGame(s.ctx, gameID)
	s.Require().NoError(err)

	s.Equal(ModeFull, mode)
	s.Equal(s.replay(gameID), state)
	cached, err := s.cache.GetState(s.ctx, gameID)
	s.Require().NoError(err)
	s.Equal(state.SequenceNum, cached.SequenceNum)
}

func (s *CoordinatorSuite) TestIncrementalRecovery() {
	gameID := s.newGame("ROOM")
	events, err := s.log.GetEvents(s.ctx, gameID, 0, 1)
	s.Require().NoError(err)
	stale, err := engine.Replay(gameID, events)
	s.Require().NoError(err)
	s.forget(gameID)
	_, err = s.cache.SaveState(s.ctx, stale)
	s.Require().NoError(err)

	state, mode, err := s.coordinator.RecoverGame(s.ctx, gameID)
	s.Require().NoError(err)

	s.Equal(ModeIncremental, mode)
	s.Equal(s.replay(gameID), state)
}

func (s *CoordinatorSuite) TestSnapshotAheadOfLogIsDiscarded() {
	gameID := s.newGame("ROOM")
	ahead := s.replay(gameID)
	ahead.SequenceNum = 99
	s.forget(gameID)
	_, err := s.cache.SaveState(s.ctx, ahead)
	s.Require().NoError(err)

	state, mode, err := s.coordinator.RecoverGame(s.ctx, gameID)
	s.Require().NoError(err)

	s.Equal(ModeFull, mode)
	s.Equal(int64(3), state.SequenceNum)
	cached, err := s.cache.GetState(s.ctx, gameID)
	s.Require().NoError(err)
	s.Equal(int64(3), cached.SequenceNum)
}

func (s *CoordinatorSuite) TestRecoveryRegistersRoom() {
	gameID := s.newGame("ROOM")

	_, _, err := s.coordinator.RecoverGame(s.ctx, gameID)
	s.Require().NoError(err)

	room, err := s.cache.GetRoom(s.ctx, "ROOM")
	s.Require().NoError(err)
	s.Equal(gameID, room.GameID)
	s.Equal(model.PlayerID("alice"), room.HostID)
	s.Equal(model.NodeID("node-b"), room.ServerNodeID)
}

func (s *CoordinatorSuite) TestRecoveryKeepsRoomOfAnotherGame() {
	gameID := s.newGame("ROOM")
	s.Require().NoError(s.cache.SaveRoom(s.ctx, &model.Room{RoomCode: "ROOM", GameID: "newer", ServerNodeID: "node-a"}))

	_, _, err := s.coordinator.RecoverGame(s.ctx, gameID)
	s.Require().NoError(err)

	room, err := s.cache.GetRoom(s.ctx, "ROOM")
	s.Require().NoError(err)
	s.Equal(model.GameID("newer"), room.GameID)
}

func (s *CoordinatorSuite) TestFinishedGameIsSkipped() {
	gameID := s.newGame("ROOM")
	s.finishGame(gameID)
	s.forget(gameID)

	state, mode, err := s.coordinator.RecoverGame(s.ctx, gameID)
	s.Require().NoError(err)

	s.Equal(ModeSkipped, mode)
	s.Equal(model.PhaseGameOver, state.Phase)
	_, err = s.cache.GetState(s.ctx, gameID)
	s.ErrorIs(err, model.ErrStateNotCached)
}

func (s *CoordinatorSuite) TestAbandonedGameIsNotRecovered() {
	closed := s.newGame("GONE")
	live := s.newGame("LIVE")
	_, err := s.games.AbandonGame(s.ctx, closed, "alice", model.AbandonRoomClosed)
	s.Require().NoError(err)
	s.forget(closed, live)

	report, err := s.coordinator.Run(s.ctx)
	s.Require().NoError(err)

	s.Equal([]model.GameID{live}, report.Recovered)
	s.Empty(report.Skipped)
	_, err = s.cache.GetRoom(s.ctx, "GONE")
	s.ErrorIs(err, model.ErrRoomNotFound)
	_, err = s.cache.GetState(s.ctx, closed)
	s.ErrorIs(err, model.ErrStateNotCached)

	state, mode, err := s.coordinator.RecoverGame(s.ctx, closed)
	s.Require().NoError(err)
	s.Equal(ModeSkipped, mode)
	s.True(state.Abandoned)
	_, err = s.cache.GetRoom(s.ctx, "GONE")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *CoordinatorSuite) TestUnknownGame() {
	_, _, err := s.coordinator.RecoverGame(s.ctx, "missing")

	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *CoordinatorSuite) TestRunRecoversActiveGames() {
	var ids []model.GameID
	for i := range 10 {
		ids = append(ids, s.newGame(model.RoomCode(fmt.Sprintf("R%d", i))))
	}
	s.finishGame(ids[0])
	s.forget(ids...)

	report, err := s.coordinator.Run(s.ctx)
	s.Require().NoError(err)

	s.ElementsMatch(ids[1:], report.Recovered)
	s.Empty(report.Failed)
	for _, id := range ids[1:] {
		cached, err := s.cache.GetState(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(s.replay(id), cached)
	}
}

func (s *CoordinatorSuite) TestRunIsIdempotent() {
	gameID := s.newGame("ROOM")
	s.forget(gameID)

	first, err := s.coordinator.Run(s.ctx)
	s.Require().NoError(err)
	before, err := s.cache.GetState(s.ctx, gameID)
	s.Require().NoError(err)

	second, err := s.coordinator.Run(s.ctx)
	s.Require().NoError(err)
	after, err := s.cache.GetState(s.ctx, gameID)
	s.Require().NoError(err)

	s.Equal(first.Recovered, second.Recovered)
	s.Zero(first.Incremental)
	s.Equal(1, second.Incremental)
	s.Equal(before, after)
}

func (s *CoordinatorSuite) TestRunReportsCorruptGame() {
	good := s.newGame("GOOD")
	// A draw before the game has started can never apply
	_, err := s.log.Append(s.ctx, model.NewEvent("broken", 0, "", s.clock.Now(), model.GameCreatedPayload{
		RoomCode: "BAD", HostID: "alice", Options: s.rules(),
	}))
	s.Require().NoError(err)
	_, err = s.log.Append(s.ctx, model.NewEvent("broken", 1, "alice", s.clock.Now(), model.CardDrawnPayload{
		Source: model.SourceDeck, Card: model.Card{Rank: model.RankAce, Suit: model.SuitClubs},
	}))
	s.Require().NoError(err)
	s.forget(good)

	report, err := s.coordinator.Run(s.ctx)
	s.Require().NoError(err)

	s.Equal([]model.GameID{good}, report.Recovered)
	s.Require().Len(report.Failed, 1)
	failure := report.Failed[0]
	s.Equal(model.GameID("broken"), failure.GameID)
	s.ErrorIs(&failure, model.ErrRecovery)
	s.ErrorIs(&failure, model.ErrInvalidTransition)

	_, err = s.cache.GetState(s.ctx, "broken")
	s.ErrorIs(err, model.ErrStateNotCached)
}

func (s *CoordinatorSuite) TestRunFailsWhenGamesCannotBeListed() {
	coordinator := NewCoordinator(failingLog{s.log}, s.cache, s.clock, "node-b", 0, testutil.NopLogger())

	_, err := coordinator.Run(s.ctx)

	s.ErrorContains(err, "list active games")
}
