package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/golfcards/internal/dependencies/mocks"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/engine"
	"github.com/mcoot/golfcards/internal/services/worker"
	"github.com/mcoot/golfcards/internal/storage"
	"github.com/mcoot/golfcards/internal/storage/memory"
	"github.com/mcoot/golfcards/internal/testutil"
)

const (
	alice model.PlayerID = "alice"
	bob   model.PlayerID = "bob"
	carol model.PlayerID = "carol"
)

// hookedLog runs beforeAppend ahead of every AppendBatch
type hookedLog struct {
	storage.EventLog
	beforeAppend func() error
}

func (l *hookedLog) AppendBatch(ctx context.Context, events []model.Event) ([]string, error) {
	if l.beforeAppend != nil {
		if err := l.beforeAppend(); err != nil {
			return nil, err
		}
	}
	return l.EventLog.AppendBatch(ctx, events)
}

type ControllerSuite struct {
	suite.Suite
	log        *memory.EventLog
	hooked     *hookedLog
	cache      *memory.Cache
	bus        *memory.Bus
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	ids        *mocks.MockIDs
	rules      model.HouseRules
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.log = memory.NewEventLog(mocks.NewMockIDs("evt"))
	s.hooked = &hookedLog{EventLog: s.log}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.cache = memory.NewCache(s.clock, time.Hour, time.Hour)
	s.bus = memory.NewBus(logger)
	s.random = mocks.NewMockRandom()
	s.ids = mocks.NewMockIDs("game")
	s.controller = s.newController("node-a", nil)
	s.ctx = context.Background()

	s.rules = model.DefaultHouseRules()
	s.rules.TotalRounds = 1
	s.rules.InitialFlips = 0
	s.rules.FlipAsAction = true
	s.rules.KnockEarly = true
}

func (s *ControllerSuite) newController(node model.NodeID, moves *worker.Queue[MoveRecord]) *Controller {
	return NewController(
		Config{NodeID: node},
		s.hooked, s.cache, s.bus, moves,
		s.clock, s.random, s.ids, testutil.NopLogger(),
	)
}

func card(r model.Rank) model.Card {
	return model.Card{Rank: r, Suit: model.SuitClubs}
}

// Unshuffled, alice is dealt the odd clubs and bob the even ones, with the
// king of clubs turned up and the ace of diamonds on top of the deck.

func (s *ControllerSuite) createGame() model.GameID {
	state, err := s.controller.CreateGame(s.ctx, "ROOM", alice, "Alice", s.rules)
	s.Require().NoError(err)
	return state.GameID
}

func (s *ControllerSuite) startGame() model.GameID {
	gameID := s.createGame()
	_, err := s.controller.JoinGame(s.ctx, gameID, bob, "Bob", false)
	s.Require().NoError(err)
	_, err = s.controller.StartGame(s.ctx, gameID, alice)
	s.Require().NoError(err)
	return gameID
}

func (s *ControllerSuite) flip(gameID model.GameID, player model.PlayerID, pos int) *model.GameState {
	state, err := s.controller.FlipAsAction(s.ctx, gameID, player, pos)
	s.Require().NoError(err)
	return state
}

// knockRound has first reveal four cards a turn at a time, knock, and
// gives second one last flip
func (s *ControllerSuite) knockRound(gameID model.GameID, first, second model.PlayerID) *model.GameState {
	for pos := range 4 {
		s.flip(gameID, first, pos)
		s.flip(gameID, second, pos)
	}
	state, err := s.controller.KnockEarly(s.ctx, gameID, first)
	s.Require().NoError(err)
	s.Equal(model.PhaseFinalTurn, state.Phase)
	s.Equal(first, state.FinisherID)
	return s.flip(gameID, second, 4)
}

func (s *ControllerSuite) eventTypes(gameID model.GameID) []model.EventType {
	events, err := s.controller.GetEvents(s.ctx, gameID, 0, -1)
	s.Require().NoError(err)
	types := make([]model.EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

// CreateGame tests

func (s *ControllerSuite) TestCreateGameSeatsHost() {
	state, err := s.controller.CreateGame(s.ctx, "ROOM", alice, "Alice", s.rules)
	s.Require().NoError(err)

	s.Equal(model.GameID("game-1"), state.GameID)
	s.Equal(model.RoomCode("ROOM"), state.RoomCode)
	s.Equal(alice, state.HostID)
	s.Equal(model.PhaseWaiting, state.Phase)
	s.Equal(int64(1), state.SequenceNum)
	s.Equal([]model.PlayerID{alice}, state.PlayerOrder)
	s.Equal("Alice", state.Players[alice].Name)
	s.Equal([]model.EventType{model.EventGameCreated, model.EventPlayerJoined}, s.eventTypes(state.GameID))
}

func (s *ControllerSuite) TestCreateGameRejectsInvalidRules() {
	s.rules.TotalRounds = 0

	_, err := s.controller.CreateGame(s.ctx, "ROOM", alice, "Alice", s.rules)

	s.ErrorIs(err, model.ErrInvalidRules)
}

func (s *ControllerSuite) TestCreateGameCachesState() {
	gameID := s.createGame()

	cached, err := s.cache.GetState(s.ctx, gameID)
	s.Require().NoError(err)
	s.Equal(int64(1), cached.SequenceNum)
}

// JoinGame / LeaveGame tests

func (s *ControllerSuite) TestJoinGame() {
	gameID := s.createGame()

	state, err := s.controller.JoinGame(s.ctx, gameID, bob, "Bob", true)
	s.Require().NoError(err)

	s.Equal([]model.PlayerID{alice, bob}, state.PlayerOrder)
	s.True(state.Players[bob].IsCPU)
}

func (s *ControllerSuite) TestJoinGameRejections() {
	gameID := s.createGame()

	_, err := s.controller.JoinGame(s.ctx, gameID, alice, "Alice", false)
	s.ErrorIs(err, model.ErrAlreadyJoined)

	_, err = s.controller.JoinGame(s.ctx, "missing", bob, "Bob", false)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestJoinGameFull() {
	gameID := s.createGame()
	for i := range MaxPlayers - 1 {
		_, err := s.controller.JoinGame(s.ctx, gameID, model.PlayerID(rune('b'+i)), "", false)
		s.Require().NoError(err)
	}

	_, err := s.controller.JoinGame(s.ctx, gameID, "late", "Late", false)

	s.ErrorIs(err, model.ErrGameFull)
}

func (s *ControllerSuite) TestJoinGameAfterStart() {
	gameID := s.startGame()

	_, err := s.controller.JoinGame(s.ctx, gameID, carol, "Carol", false)

	s.ErrorIs(err, model.ErrGameInProgress)
}

func (s *ControllerSuite) TestLeaveGameMovesHost() {
	gameID := s.createGame()
	_, err := s.controller.JoinGame(s.ctx, gameID, bob, "Bob", false)
	s.Require().NoError(err)

	state, err := s.controller.LeaveGame(s.ctx, gameID, alice)
	s.Require().NoError(err)

	s.Equal(bob, state.HostID)
	s.Equal([]model.PlayerID{bob}, state.PlayerOrder)

	_, err = s.controller.LeaveGame(s.ctx, gameID, alice)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ControllerSuite) TestLeaveGameAfterStart() {
	gameID := s.startGame()

	_, err := s.controller.LeaveGame(s.ctx, gameID, bob)

	s.ErrorIs(err, model.ErrGameInProgress)
}

// StartGame tests

func (s *ControllerSuite) TestStartGameDeals() {
	gameID := s.startGame()

	state, err := s.controller.GetState(s.ctx, gameID)
	s.Require().NoError(err)

	s.Equal(model.PhasePlaying, state.Phase)
	s.Equal(1, state.CurrentRound)
	s.Equal(alice, state.CurrentPlayer())
	s.Equal(1, s.random.Shuffles)
	s.Equal(card(model.RankAce).Down(), state.Players[alice].Cards[0])
	s.Equal(card(model.RankTwo).Down(), state.Players[bob].Cards[0])
	s.Equal(card(model.RankJack).Down(), state.Players[alice].Cards[5])
	s.Equal([]model.Card{card(model.RankKing).Up()}, state.Discard)
	s.Len(state.Deck, 52-2*model.HandSize-1)
	s.Equal(model.Card{Rank: model.RankAce, Suit: model.SuitDiamonds}, state.Deck[0])
}

func (s *ControllerSuite) TestStartGameRejections() {
	gameID := s.createGame()

	_, err := s.controller.StartGame(s.ctx, gameID, alice)
	s.ErrorIs(err, model.ErrInsufficientPlayers)

	_, err = s.controller.JoinGame(s.ctx, gameID, bob, "Bob", false)
	s.Require().NoError(err)

	_, err = s.controller.StartGame(s.ctx, gameID, bob)
	s.ErrorIs(err, model.ErrNotHost)

	_, err = s.controller.StartGame(s.ctx, gameID, alice)
	s.Require().NoError(err)

	_, err = s.controller.StartGame(s.ctx, gameID, alice)
	s.ErrorIs(err, model.ErrGameInProgress)
}

// Turn tests

func (s *ControllerSuite) TestDrawAndSwap() {
	gameID := s.startGame()

	state, err := s.controller.Draw(s.ctx, gameID, alice, model.SourceDeck)
	s.Require().NoError(err)
	s.Require().NotNil(state.DrawnCard)
	s.Equal(model.RankAce, state.DrawnCard.Rank)
	s.Equal(model.SuitDiamonds, state.DrawnCard.Suit)

	state, err = s.controller.Swap(s.ctx, gameID, alice, 0)
	s.Require().NoError(err)

	s.Equal(model.SuitDiamonds, state.Players[alice].Cards[0].Suit)
	s.True(state.Players[alice].Cards[0].FaceUp)
	top, _ := state.TopDiscard()
	s.Equal(card(model.RankAce).Up(), top)
	s.Nil(state.DrawnCard)
	s.Equal(bob, state.CurrentPlayer())
}

func (s *ControllerSuite) TestDrawFromDiscardCannotBeDiscarded() {
	gameID := s.startGame()

	_, err := s.controller.Draw(s.ctx, gameID, alice, model.SourceDiscard)
	s.Require().NoError(err)

	_, err = s.controller.Discard(s.ctx, gameID, alice)
	s.ErrorIs(err, model.ErrCannotDiscard)
}

func (s *ControllerSuite) TestTurnRejections() {
	gameID := s.createGame()
	_, err := s.controller.JoinGame(s.ctx, gameID, bob, "Bob", false)
	s.Require().NoError(err)

	_, err = s.controller.Draw(s.ctx, gameID, alice, model.SourceDeck)
	s.ErrorIs(err, model.ErrWrongPhase)

	_, err = s.controller.StartGame(s.ctx, gameID, alice)
	s.Require().NoError(err)

	_, err = s.controller.Draw(s.ctx, gameID, bob, model.SourceDeck)
	s.ErrorIs(err, model.ErrNotPlayerTurn)

	_, err = s.controller.Draw(s.ctx, gameID, alice, "hand")
	s.ErrorIs(err, model.ErrInvalidSource)

	_, err = s.controller.Swap(s.ctx, gameID, alice, 0)
	s.ErrorIs(err, model.ErrNoDrawnCard)

	_, err = s.controller.Draw(s.ctx, gameID, alice, model.SourceDeck)
	s.Require().NoError(err)

	_, err = s.controller.Draw(s.ctx, gameID, alice, model.SourceDeck)
	s.ErrorIs(err, model.ErrAlreadyDrawn)

	_, err = s.controller.Swap(s.ctx, gameID, alice, model.HandSize)
	s.ErrorIs(err, model.ErrInvalidPosition)

	_, err = s.controller.Draw(s.ctx, gameID, carol, model.SourceDeck)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ControllerSuite) TestRejectedCommandAppendsNothing() {
	gameID := s.startGame()
	before := len(s.eventTypes(gameID))

	_, err := s.controller.Draw(s.ctx, gameID, bob, model.SourceDeck)
	s.Require().Error(err)

	s.Len(s.eventTypes(gameID), before)
}

func (s *ControllerSuite) TestDiscardWithRequiredFlip() {
	s.rules.FlipOnDiscard = model.FlipAlways
	gameID := s.startGame()

	_, err := s.controller.Draw(s.ctx, gameID, alice, model.SourceDeck)
	s.Require().NoError(err)
	state, err := s.controller.Discard(s.ctx, gameID, alice)
	s.Require().NoError(err)
	s.True(state.PendingFlip)
	s.Equal(alice, state.CurrentPlayer())

	_, err = s.controller.Draw(s.ctx, gameID, alice, model.SourceDeck)
	s.ErrorIs(err, model.ErrFlipRequired)

	_, err = s.controller.SkipFlip(s.ctx, gameID, alice)
	s.ErrorIs(err, model.ErrFlipNotOptional)

	state, err = s.controller.Flip(s.ctx, gameID, alice, 2)
	s.Require().NoError(err)

	s.True(state.Players[alice].Cards[2].FaceUp)
	s.False(state.PendingFlip)
	s.Equal(bob, state.CurrentPlayer())

	_, err = s.controller.Flip(s.ctx, gameID, bob, 0)
	s.ErrorIs(err, model.ErrNoFlipPending)
}

func (s *ControllerSuite) TestDiscardWithOptionalFlip() {
	s.rules.FlipOnDiscard = model.FlipOptional
	gameID := s.startGame()

	_, err := s.controller.Draw(s.ctx, gameID, alice, model.SourceDeck)
	s.Require().NoError(err)
	_, err = s.controller.Discard(s.ctx, gameID, alice)
	s.Require().NoError(err)

	state, err := s.controller.SkipFlip(s.ctx, gameID, alice)
	s.Require().NoError(err)

	s.False(state.PendingFlip)
	s.Equal(bob, state.CurrentPlayer())
}

func (s *ControllerSuite) TestFlipAsAction() {
	gameID := s.startGame()

	state := s.flip(gameID, alice, 3)

	s.True(state.Players[alice].Cards[3].FaceUp)
	s.Equal(bob, state.CurrentPlayer())

	s.flip(gameID, bob, 0)
	_, err := s.controller.FlipAsAction(s.ctx, gameID, alice, 3)
	s.ErrorIs(err, model.ErrCardAlreadyFaceUp)
}

func (s *ControllerSuite) TestHouseRulesDisabled() {
	s.rules.FlipAsAction = false
	s.rules.KnockEarly = false
	gameID := s.startGame()

	_, err := s.controller.FlipAsAction(s.ctx, gameID, alice, 0)
	s.ErrorIs(err, model.ErrRuleDisabled)

	_, err = s.controller.KnockEarly(s.ctx, gameID, alice)
	s.ErrorIs(err, model.ErrRuleDisabled)
}

func (s *ControllerSuite) TestKnockNeedsFewHiddenCards() {
	gameID := s.startGame()

	_, err := s.controller.KnockEarly(s.ctx, gameID, alice)

	s.ErrorIs(err, model.ErrCannotKnock)
}

func (s *ControllerSuite) TestKnockOutOfTurn() {
	gameID := s.startGame()
	for pos := range 4 {
		s.flip(gameID, alice, pos)
		s.flip(gameID, bob, pos)
	}

	_, err := s.controller.KnockEarly(s.ctx, gameID, "carol")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	state, err := s.controller.KnockEarly(s.ctx, gameID, bob)
	s.Require().NoError(err)
	s.Equal(bob, state.FinisherID)
	s.Equal(model.PhaseFinalTurn, state.Phase)
	s.Equal(alice, state.CurrentPlayer())
	s.True(state.Players[bob].Cards.AllFaceUp())

	state = s.flip(gameID, alice, 4)
	s.Equal(model.PhaseGameOver, state.Phase)
}

func (s *ControllerSuite) TestKnockOutOfTurnWaitsForTurnToFinish() {
	gameID := s.startGame()
	for pos := range 4 {
		s.flip(gameID, alice, pos)
		s.flip(gameID, bob, pos)
	}
	_, err := s.controller.Draw(s.ctx, gameID, alice, model.SourceDeck)
	s.Require().NoError(err)

	_, err = s.controller.KnockEarly(s.ctx, gameID, bob)
	s.ErrorIs(err, model.ErrAlreadyDrawn)

	_, err = s.controller.Discard(s.ctx, gameID, alice)
	s.Require().NoError(err)
	_, err = s.controller.KnockEarly(s.ctx, gameID, alice)
	s.Require().NoError(err)
}

func (s *ControllerSuite) TestInitialFlips() {
	s.rules.InitialFlips = 2
	gameID := s.startGame()

	state, err := s.controller.GetState(s.ctx, gameID)
	s.Require().NoError(err)
	s.Equal(model.PhaseInitialFlip, state.Phase)

	_, err = s.controller.Draw(s.ctx, gameID, alice, model.SourceDeck)
	s.ErrorIs(err, model.ErrWrongPhase)

	_, err = s.controller.InitialFlip(s.ctx, gameID, alice, []int{0})
	s.ErrorIs(err, model.ErrWrongFlipCount)

	_, err = s.controller.InitialFlip(s.ctx, gameID, alice, []int{1, 1})
	s.ErrorIs(err, model.ErrInvalidPosition)

	state, err = s.controller.InitialFlip(s.ctx, gameID, alice, []int{0, 3})
	s.Require().NoError(err)
	s.True(state.Players[alice].Cards[0].FaceUp)
	s.True(state.Players[alice].Cards[3].FaceUp)
	s.Equal(model.PhaseInitialFlip, state.Phase)

	_, err = s.controller.InitialFlip(s.ctx, gameID, alice, []int{1, 2})
	s.ErrorIs(err, model.ErrAlreadyFlipped)

	state, err = s.controller.InitialFlip(s.ctx, gameID, bob, []int{1, 2})
	s.Require().NoError(err)
	s.Equal(model.PhasePlaying, state.Phase)
}

// Round and game completion

func (s *ControllerSuite) TestKnockEndsGame() {
	gameID := s.startGame()

	state := s.knockRound(gameID, alice, bob)

	// Alice holds A/7, 3/9, 5/J; bob holds 2/8, 4/10, 6/Q
	s.Equal(model.PhaseGameOver, state.Phase)
	s.Equal(35, state.Players[alice].TotalScore)
	s.Equal(36, state.Players[bob].TotalScore)
	s.Equal(1, state.Players[alice].RoundsWon)
	s.Equal(alice, state.WinnerID)
	for _, p := range state.Players {
		s.True(p.Cards.AllFaceUp())
	}

	types := s.eventTypes(gameID)
	s.Equal([]model.EventType{
		model.EventKnockedEarly, model.EventFlipAsAction, model.EventRoundEnded, model.EventGameEnded,
	}, types[len(types)-4:])

	_, err := s.controller.Draw(s.ctx, gameID, bob, model.SourceDeck)
	s.ErrorIs(err, model.ErrGameOver)

	_, err = s.controller.StartNextRound(s.ctx, gameID, alice)
	s.ErrorIs(err, model.ErrGameOver)
}

func (s *ControllerSuite) TestNextRound() {
	s.rules.TotalRounds = 2
	gameID := s.startGame()

	_, err := s.controller.StartNextRound(s.ctx, gameID, alice)
	s.ErrorIs(err, model.ErrRoundNotOver)

	state := s.knockRound(gameID, alice, bob)
	s.Equal(model.PhaseRoundOver, state.Phase)
	s.True(state.RoundScored)

	_, err = s.controller.StartNextRound(s.ctx, gameID, bob)
	s.ErrorIs(err, model.ErrNotHost)

	state, err = s.controller.StartNextRound(s.ctx, gameID, alice)
	s.Require().NoError(err)
	s.Equal(2, state.CurrentRound)
	s.Equal(bob, state.CurrentPlayer())
	s.Nil(state.Players[alice].Score)
	s.Equal(35, state.Players[alice].TotalScore)

	state = s.knockRound(gameID, bob, alice)
	s.Equal(model.PhaseGameOver, state.Phase)
	s.Equal(map[model.PlayerID]int{alice: 70, bob: 72}, state.TotalScores())
	s.Equal(alice, state.WinnerID)
}

func (s *ControllerSuite) TestDeckReshuffledWhenEmpty() {
	gameID := s.startGame()
	state, err := s.controller.GetState(s.ctx, gameID)
	s.Require().NoError(err)

	for range len(state.Deck) {
		player := state.CurrentPlayer()
		_, err = s.controller.Draw(s.ctx, gameID, player, model.SourceDeck)
		s.Require().NoError(err)
		state, err = s.controller.Discard(s.ctx, gameID, player)
		s.Require().NoError(err)
	}
	s.Empty(state.Deck)
	discards := len(state.Discard)

	state, err = s.controller.Draw(s.ctx, gameID, state.CurrentPlayer(), model.SourceDeck)
	s.Require().NoError(err)

	s.Equal(2, s.random.Shuffles)
	s.Equal(card(model.RankKing).Up(), *state.DrawnCard)
	s.Len(state.Deck, discards-2)
	s.Len(state.Discard, 1)

	types := s.eventTypes(gameID)
	s.Equal([]model.EventType{model.EventDeckReshuffled, model.EventCardDrawn}, types[len(types)-2:])
}

// Pipeline tests

func (s *ControllerSuite) TestAppendConflictIsRetried() {
	gameID := s.createGame()
	rival := NewController(Config{NodeID: "node-b"}, s.log, s.cache, s.bus, nil,
		s.clock, s.random, s.ids, testutil.NopLogger())

	raced := false
	s.hooked.beforeAppend = func() error {
		if raced {
			return nil
		}
		raced = true
		_, err := rival.JoinGame(s.ctx, gameID, bob, "Bob", false)
		return err
	}

	state, err := s.controller.JoinGame(s.ctx, gameID, carol, "Carol", false)
	s.Require().NoError(err)

	s.Equal([]model.PlayerID{alice, bob, carol}, state.PlayerOrder)
	s.Equal(int64(3), state.SequenceNum)
}

func (s *ControllerSuite) TestAppendConflictRetriesAreBounded() {
	gameID := s.createGame()
	calls := 0
	s.hooked.beforeAppend = func() error {
		calls++
		return &model.ConcurrencyConflictError{GameID: gameID, SequenceNum: 2}
	}

	_, err := s.controller.JoinGame(s.ctx, gameID, bob, "Bob", false)

	s.ErrorIs(err, model.ErrConcurrencyConflict)
	s.Equal(DefaultAppendRetries, calls)
}

func (s *ControllerSuite) TestLoadCatchesUpStaleCache() {
	gameID := s.createGame()
	events, err := s.log.GetEvents(s.ctx, gameID, 0, 0)
	s.Require().NoError(err)
	stale, err := engine.Replay(gameID, events)
	s.Require().NoError(err)

	s.Require().NoError(s.cache.DeleteState(s.ctx, gameID))
	_, err = s.cache.SaveState(s.ctx, stale)
	s.Require().NoError(err)

	state, err := s.controller.GetState(s.ctx, gameID)
	s.Require().NoError(err)

	s.Equal(int64(1), state.SequenceNum)
	s.Contains(state.Players, alice)
}

func (s *ControllerSuite) TestCacheAheadOfLogIsDropped() {
	gameID := s.createGame()
	// A fresh log behind a surviving cache, as after a restart that lost the log
	s.log = memory.NewEventLog(mocks.NewMockIDs("evt"))
	s.hooked.EventLog = s.log

	_, err := s.controller.JoinGame(s.ctx, gameID, bob, "Bob", false)
	s.ErrorIs(err, model.ErrGameNotFound)

	latest, err := s.log.LatestSequence(s.ctx, gameID)
	s.Require().NoError(err)
	s.Equal(int64(-1), latest)
	_, err = s.cache.GetState(s.ctx, gameID)
	s.ErrorIs(err, model.ErrStateNotCached)
}

func (s *ControllerSuite) TestCacheAheadOfShorterLogIsDropped() {
	gameID := s.startGame()
	events, err := s.log.GetEvents(s.ctx, gameID, 0, 1)
	s.Require().NoError(err)
	// The log only reaches seq 1 while the cache holds seq 3
	s.log = memory.NewEventLog(mocks.NewMockIDs("evt"))
	s.hooked.EventLog = s.log
	_, err = s.log.AppendBatch(s.ctx, events)
	s.Require().NoError(err)

	state, err := s.controller.JoinGame(s.ctx, gameID, bob, "Bob", false)
	s.Require().NoError(err)

	s.Equal(int64(2), state.SequenceNum)
	all, err := s.log.GetEvents(s.ctx, gameID, 0, -1)
	s.Require().NoError(err)
	replayed, err := engine.Replay(gameID, all)
	s.Require().NoError(err)
	s.Equal(state, replayed)
}

func (s *ControllerSuite) TestLoadReplaysWithoutCache() {
	gameID := s.startGame()
	s.Require().NoError(s.cache.DeleteState(s.ctx, gameID))

	state, err := s.controller.GetState(s.ctx, gameID)
	s.Require().NoError(err)

	s.Equal(model.PhasePlaying, state.Phase)
	s.Equal(int64(3), state.SequenceNum)
}

func (s *ControllerSuite) TestGetStateUnknownGame() {
	_, err := s.controller.GetState(s.ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.controller.GetEvents(s.ctx, "missing", 0, -1)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestGetEventsRange() {
	gameID := s.startGame()

	events, err := s.controller.GetEvents(s.ctx, gameID, 1, 2)
	s.Require().NoError(err)

	s.Require().Len(events, 2)
	s.Equal(model.EventPlayerJoined, events[0].Type)
	s.Equal(int64(2), events[1].SequenceNum)
}

func (s *ControllerSuite) TestCommittedNotifiesListenersAndBus() {
	sub, err := s.bus.Subscribe(s.ctx)
	s.Require().NoError(err)
	defer sub.Close()

	var seen []int64
	s.controller.OnStateChange(func(ctx context.Context, state *model.GameState) {
		seen = append(seen, state.SequenceNum)
	})

	gameID := s.createGame()

	s.Equal([]int64{1}, seen)
	select {
	case msg := <-sub.C():
		s.Equal(gameID, msg.GameID)
		s.Equal(model.RoomCode("ROOM"), msg.RoomCode)
		s.Equal(int64(1), msg.SequenceNum)
		s.Equal(model.NodeID("node-a"), msg.NodeID)
	case <-time.After(time.Second):
		s.Fail("no state change published")
	}
}

func (s *ControllerSuite) TestMovesAreRecorded() {
	analytics := NewAnalytics(testutil.NopLogger())
	moves := worker.NewQueue[MoveRecord](16, 1, analytics.Handle, testutil.NopLogger())
	s.controller = s.newController("node-a", moves)

	s.startGame()
	moves.Close()

	stats := analytics.Stats()
	s.Equal(map[string]int{"create": 1, "join": 1, "start": 1}, stats.Commands)
	s.Zero(stats.Retried)
}

func (s *ControllerSuite) TestConcurrentJoinsAllLand() {
	gameID := s.createGame()
	s.controller = NewController(Config{NodeID: "node-a", AppendRetries: 10},
		s.log, s.cache, s.bus, nil, s.clock, s.random, s.ids, testutil.NopLogger())

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.controller.JoinGame(s.ctx, gameID, model.PlayerID(rune('b'+i)), "", false)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}
	state, err := s.controller.GetState(s.ctx, gameID)
	s.Require().NoError(err)
	s.Len(state.Players, 5)
	s.Equal(int64(5), state.SequenceNum)
}
