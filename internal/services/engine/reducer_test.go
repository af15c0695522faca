package engine

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/golfcards/internal/model"
)

const (
	alice model.PlayerID = "alice"
	bob   model.PlayerID = "bob"
)

var startedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type EngineSuite struct {
	suite.Suite
	gameID model.GameID
	rules  model.HouseRules
	events []model.Event
	state  *model.GameState
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.gameID = "game-1"
	s.rules = model.DefaultHouseRules()
	s.rules.TotalRounds = 1
	s.rules.InitialFlips = 0
	s.rules.FlipAsAction = true
	s.rules.KnockEarly = true
	s.events = nil
	s.state = model.NewGameState(s.gameID)
}

func card(r model.Rank, suit model.Suit) model.Card {
	return model.Card{Rank: r, Suit: suit}
}

func handOf(suit model.Suit) model.Hand {
	return model.Hand{
		card(model.RankAce, suit), card(model.RankTwo, suit), card(model.RankThree, suit),
		card(model.RankFour, suit), card(model.RankFive, suit), card(model.RankSix, suit),
	}
}

// deal gives alice clubs A-6, bob diamonds A-6, a short deck of hearts and
// the king of spades on the discard pile
func deal(deck ...model.Card) model.Deal {
	if deck == nil {
		deck = []model.Card{
			card(model.RankSeven, model.SuitHearts),
			card(model.RankEight, model.SuitHearts),
			card(model.RankNine, model.SuitHearts),
		}
	}
	return model.Deal{
		Hands:   map[model.PlayerID]model.Hand{alice: handOf(model.SuitClubs), bob: handOf(model.SuitDiamonds)},
		Deck:    deck,
		Discard: []model.Card{card(model.RankKing, model.SuitSpades).Up()},
	}
}

// next builds the event that follows everything applied so far
func (s *EngineSuite) next(player model.PlayerID, p model.Payload) model.Event {
	seq := int64(len(s.events))
	return model.NewEvent(s.gameID, seq, player, startedAt.Add(time.Duration(seq)*time.Second), p)
}

// apply appends an event that must be accepted
func (s *EngineSuite) apply(player model.PlayerID, p model.Payload) {
	evt := s.next(player, p)
	next, err := Apply(s.state, evt)
	s.Require().NoError(err, "applying %s", evt.Type)
	s.events = append(s.events, evt)
	s.state = next
}

// reject applies an event that must fail, and checks the state is untouched
func (s *EngineSuite) reject(player model.PlayerID, p model.Payload) error {
	before := s.state.Clone()
	next, err := Apply(s.state, s.next(player, p))
	s.Require().Error(err)
	s.Nil(next)
	s.Equal(before, s.state)
	return err
}

func (s *EngineSuite) startGame(d model.Deal) {
	s.apply(alice, model.GameCreatedPayload{RoomCode: "ABCD", HostID: alice, Options: s.rules})
	s.apply(alice, model.PlayerJoinedPayload{Name: "Alice"})
	s.apply(bob, model.PlayerJoinedPayload{Name: "Bob"})
	s.apply("", model.GameStartedPayload{
		PlayerOrder: []model.PlayerID{alice, bob},
		TotalRounds: s.rules.TotalRounds,
		Deal:        d,
	})
}

func (s *EngineSuite) flipAction(player model.PlayerID, pos int) {
	c := s.state.Players[player].Cards[pos]
	s.apply(player, model.FlipAsActionPayload{Position: pos, Card: c})
}

func (s *EngineSuite) endRound() {
	result := ScoreRound(s.state)
	s.apply("", model.RoundEndedPayload{
		Round:    s.state.CurrentRound,
		Scores:   result.Scores,
		WinnerID: result.WinnerID,
	})
}

// Lifecycle

func (s *EngineSuite) TestEmptyState() {
	s.Equal(int64(-1), s.state.SequenceNum)
	s.Equal(model.PhaseWaiting, s.state.Phase)
}

func (s *EngineSuite) TestStartDealsRoundOne() {
	s.startGame(deal())

	s.Equal(int64(3), s.state.SequenceNum)
	s.Equal(model.PhasePlaying, s.state.Phase)
	s.Equal(1, s.state.CurrentRound)
	s.Equal(alice, s.state.CurrentPlayer())
	s.Len(s.state.Deck, 3)
	s.Len(s.state.Players[alice].Cards.HiddenPositions(), model.HandSize)
	top, ok := s.state.TopDiscard()
	s.Require().True(ok)
	s.True(top.FaceUp)
}

func (s *EngineSuite) TestStartWithInitialFlips() {
	s.rules.InitialFlips = 2
	s.startGame(deal())
	s.Equal(model.PhaseInitialFlip, s.state.Phase)

	hand := s.state.Players[bob].Cards
	s.apply(bob, model.InitialFlipPayload{Positions: []int{0, 4}, Cards: []model.Card{hand[0], hand[4]}})
	s.Equal(model.PhaseInitialFlip, s.state.Phase)

	err := s.reject(bob, model.InitialFlipPayload{Positions: []int{1, 2}, Cards: []model.Card{hand[1], hand[2]}})
	s.ErrorIs(err, model.ErrInvalidTransition)

	hand = s.state.Players[alice].Cards
	s.reject(alice, model.InitialFlipPayload{Positions: []int{1}, Cards: []model.Card{hand[1]}})
	s.reject(alice, model.InitialFlipPayload{Positions: []int{1, 1}, Cards: []model.Card{hand[1], hand[1]}})

	s.apply(alice, model.InitialFlipPayload{Positions: []int{1, 2}, Cards: []model.Card{hand[1], hand[2]}})
	s.Equal(model.PhasePlaying, s.state.Phase)
	s.True(s.state.Players[alice].Cards[1].FaceUp)
}

func (s *EngineSuite) TestPlayerLeftMovesHost() {
	s.apply(alice, model.GameCreatedPayload{RoomCode: "ABCD", HostID: alice, Options: s.rules})
	s.apply(alice, model.PlayerJoinedPayload{Name: "Alice"})
	s.apply(bob, model.PlayerJoinedPayload{Name: "Bob"})

	s.apply(alice, model.PlayerLeftPayload{})

	s.Equal(bob, s.state.HostID)
	s.Equal([]model.PlayerID{bob}, s.state.PlayerOrder)
	s.NotContains(s.state.Players, alice)
}

func (s *EngineSuite) TestLifecycleRejections() {
	err := s.reject(alice, model.PlayerJoinedPayload{Name: "Alice"})
	var invalidErr *model.InvalidTransitionError
	s.Require().ErrorAs(err, &invalidErr)

	s.startGame(deal())

	s.reject(alice, model.GameCreatedPayload{Options: s.rules})
	s.reject("carol", model.PlayerJoinedPayload{Name: "Carol"})
	s.reject(bob, model.PlayerLeftPayload{})
	s.reject("", model.RoundEndedPayload{Round: 1})
	s.reject("", model.RoundStartedPayload{Round: 2, Deal: deal()})
}

func (s *EngineSuite) TestDealMustCoverEveryPlayer() {
	s.apply(alice, model.GameCreatedPayload{RoomCode: "ABCD", HostID: alice, Options: s.rules})
	s.apply(alice, model.PlayerJoinedPayload{Name: "Alice"})
	s.apply(bob, model.PlayerJoinedPayload{Name: "Bob"})

	d := deal()
	delete(d.Hands, bob)
	s.reject("", model.GameStartedPayload{PlayerOrder: []model.PlayerID{alice, bob}, TotalRounds: 1, Deal: d})

	d = deal()
	h := d.Hands[bob]
	h[2] = h[2].Up()
	d.Hands[bob] = h
	s.reject("", model.GameStartedPayload{PlayerOrder: []model.PlayerID{alice, bob}, TotalRounds: 1, Deal: d})

	s.reject("", model.GameStartedPayload{PlayerOrder: []model.PlayerID{alice, alice}, TotalRounds: 1, Deal: deal()})
}

func (s *EngineSuite) TestGameAbandonedWhileWaiting() {
	s.apply(alice, model.GameCreatedPayload{RoomCode: "ABCD", HostID: alice, Options: s.rules})
	s.apply(alice, model.PlayerJoinedPayload{Name: "Alice"})

	s.reject(alice, model.GameAbandonedPayload{})
	s.apply(alice, model.GameAbandonedPayload{Reason: model.AbandonRoomClosed})

	s.Equal(model.PhaseGameOver, s.state.Phase)
	s.True(s.state.Abandoned)
	s.Empty(s.state.WinnerID)
	s.True(s.events[len(s.events)-1].IsTerminal())

	err := s.reject(bob, model.PlayerJoinedPayload{Name: "Bob"})
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *EngineSuite) TestGameAbandonedMidTurn() {
	s.startGame(deal())
	s.apply(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: s.state.Deck[0]})

	s.apply(alice, model.GameAbandonedPayload{Reason: model.AbandonRoomClosed})

	s.Equal(model.PhaseGameOver, s.state.Phase)
	s.Nil(s.state.DrawnCard)
	s.False(s.state.PendingFlip)
	s.reject(alice, model.GameAbandonedPayload{Reason: model.AbandonRoomClosed})
	s.reject("", model.GameEndedPayload{FinalScores: s.state.TotalScores()})

	replayed, err := Replay(s.gameID, s.events)
	s.Require().NoError(err)
	s.Equal(s.state, replayed)
}

// Ordering

func (s *EngineSuite) TestSequenceGap() {
	s.apply(alice, model.GameCreatedPayload{RoomCode: "ABCD", HostID: alice, Options: s.rules})

	evt := model.NewEvent(s.gameID, 5, alice, startedAt, model.PlayerJoinedPayload{Name: "Alice"})
	next, err := Apply(s.state, evt)

	s.Nil(next)
	var gap *model.SequenceGapError
	s.Require().ErrorAs(err, &gap)
	s.Equal(int64(1), gap.Expected)
	s.Equal(int64(5), gap.Got)
	s.True(errors.Is(err, model.ErrSequenceGap))
	s.Equal(int64(0), s.state.SequenceNum)
}

func (s *EngineSuite) TestReplayedEventIsRejected() {
	s.startGame(deal())

	_, err := Apply(s.state, s.events[2])

	s.ErrorIs(err, model.ErrSequenceGap)
}

func (s *EngineSuite) TestEventForAnotherGame() {
	evt := model.NewEvent("other", 0, alice, startedAt, model.GameCreatedPayload{Options: s.rules})

	_, err := Apply(s.state, evt)

	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *EngineSuite) TestMismatchedPayload() {
	evt := s.next(alice, model.GameCreatedPayload{Options: s.rules})
	evt.Type = model.EventPlayerJoined

	_, err := Apply(s.state, evt)

	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *EngineSuite) TestFoldStopsAtFirstBadEvent() {
	s.startGame(deal())
	events := append([]model.Event{}, s.events...)
	bad := s.next(bob, model.CardDrawnPayload{Source: model.SourceDeck, Card: s.state.Deck[0]})
	events = append(events, bad)

	state, err := Replay(s.gameID, events)

	s.ErrorIs(err, model.ErrInvalidTransition)
	s.Equal(s.state, state)
}

// Turns

func (s *EngineSuite) TestDrawSwapCycle() {
	s.startGame(deal())
	drawn := s.state.Deck[0]
	old := s.state.Players[alice].Cards[2]

	s.apply(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: drawn})
	s.Require().NotNil(s.state.DrawnCard)
	s.True(s.state.DrawnCard.FaceUp)
	s.Len(s.state.Deck, 2)

	s.apply(alice, model.CardSwappedPayload{Position: 2, NewCard: drawn, OldCard: old})

	s.Nil(s.state.DrawnCard)
	s.Equal(drawn.Up(), s.state.Players[alice].Cards[2])
	top, _ := s.state.TopDiscard()
	s.Equal(old.Up(), top)
	s.Equal(bob, s.state.CurrentPlayer())
	s.Equal(model.PhasePlaying, s.state.Phase)
}

func (s *EngineSuite) TestDrawFromDiscardMustSwap() {
	s.startGame(deal())
	top, _ := s.state.TopDiscard()

	s.apply(alice, model.CardDrawnPayload{Source: model.SourceDiscard, Card: top})
	s.Empty(s.state.Discard)

	s.reject(alice, model.CardDiscardedPayload{Card: top})
	s.apply(alice, model.CardSwappedPayload{Position: 0, NewCard: top, OldCard: s.state.Players[alice].Cards[0]})
	s.Len(s.state.Discard, 1)
}

func (s *EngineSuite) TestDrawRejections() {
	s.startGame(deal())
	drawn := s.state.Deck[0]

	s.reject(bob, model.CardDrawnPayload{Source: model.SourceDeck, Card: drawn})
	s.reject(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: s.state.Deck[1]})
	s.reject(alice, model.CardDrawnPayload{Source: "hand", Card: drawn})

	s.apply(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: drawn})
	s.reject(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: s.state.Deck[0]})
	s.reject(alice, model.FlipAsActionPayload{Position: 0, Card: s.state.Players[alice].Cards[0]})
}

func (s *EngineSuite) TestDiscardWithoutFlip() {
	s.startGame(deal())
	drawn := s.state.Deck[0]

	s.apply(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: drawn})
	s.apply(alice, model.CardDiscardedPayload{Card: drawn})

	s.False(s.state.PendingFlip)
	s.Equal(bob, s.state.CurrentPlayer())
	s.reject(alice, model.FlipSkippedPayload{})
}

func (s *EngineSuite) TestDiscardWithRequiredFlip() {
	s.rules.FlipOnDiscard = model.FlipAlways
	s.startGame(deal())
	drawn := s.state.Deck[0]

	s.apply(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: drawn})
	s.apply(alice, model.CardDiscardedPayload{Card: drawn})
	s.True(s.state.PendingFlip)
	s.Equal(alice, s.state.CurrentPlayer())

	s.reject(alice, model.FlipSkippedPayload{})
	s.reject(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: s.state.Deck[0]})

	s.apply(alice, model.CardFlippedPayload{Position: 3, Card: s.state.Players[alice].Cards[3]})
	s.False(s.state.PendingFlip)
	s.True(s.state.Players[alice].Cards[3].FaceUp)
	s.Equal(bob, s.state.CurrentPlayer())
}

func (s *EngineSuite) TestDiscardWithOptionalFlip() {
	s.rules.FlipOnDiscard = model.FlipOptional
	s.startGame(deal())
	drawn := s.state.Deck[0]

	s.apply(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: drawn})
	s.apply(alice, model.CardDiscardedPayload{Card: drawn})
	s.apply(alice, model.FlipSkippedPayload{})

	s.Equal(bob, s.state.CurrentPlayer())
	s.Len(s.state.Players[alice].Cards.HiddenPositions(), model.HandSize)
}

func (s *EngineSuite) TestFlipAsActionDisabled() {
	s.rules.FlipAsAction = false
	s.startGame(deal())

	err := s.reject(alice, model.FlipAsActionPayload{Position: 0, Card: s.state.Players[alice].Cards[0]})

	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *EngineSuite) TestDeckReshuffled() {
	s.startGame(deal(card(model.RankSeven, model.SuitHearts)))
	king, _ := s.state.TopDiscard()
	drawn := s.state.Deck[0]
	old := s.state.Players[alice].Cards[0]

	s.apply(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: drawn})
	s.apply(alice, model.CardSwappedPayload{Position: 0, NewCard: drawn, OldCard: old})
	s.Empty(s.state.Deck)

	s.reject("", model.DeckReshuffledPayload{Deck: []model.Card{old}})
	s.reject("", model.DeckReshuffledPayload{Deck: []model.Card{king, king}})

	s.apply("", model.DeckReshuffledPayload{Deck: []model.Card{king}})

	s.Equal([]model.Card{king.Down()}, s.state.Deck)
	s.Equal([]model.Card{old.Up()}, s.state.Discard)
	s.Equal(bob, s.state.CurrentPlayer())
}

func (s *EngineSuite) TestReshuffleNeedsEmptyDeck() {
	s.startGame(deal())

	err := s.reject("", model.DeckReshuffledPayload{})

	s.ErrorIs(err, model.ErrInvalidTransition)
}

// Finishing

func (s *EngineSuite) TestFinisherDetection() {
	s.startGame(deal())

	for pos := range model.HandSize - 1 {
		s.flipAction(alice, pos)
		s.flipAction(bob, pos)
	}
	s.Equal(model.PhasePlaying, s.state.Phase)

	s.flipAction(alice, 5)
	s.Equal(model.PhaseFinalTurn, s.state.Phase)
	s.Equal(alice, s.state.FinisherID)
	s.Equal(bob, s.state.CurrentPlayer())

	s.flipAction(bob, 5)
	s.Equal(model.PhaseRoundOver, s.state.Phase)
	s.Equal(alice, s.state.FinisherID)
	s.reject(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: s.state.Deck[0]})
}

func (s *EngineSuite) TestKnockEarly() {
	s.rules.ScoringRules = []model.ScoringRule{model.ScoreKnockBonus}
	s.startGame(deal())
	for pos := range 4 {
		s.flipAction(alice, pos)
		s.flipAction(bob, pos)
	}
	hand := s.state.Players[alice].Cards

	s.reject(alice, model.KnockedEarlyPayload{Revealed: []model.RevealedCard{{Position: 4, Card: hand[4]}}})

	s.apply(alice, model.KnockedEarlyPayload{Revealed: []model.RevealedCard{
		{Position: 5, Card: hand[5]},
		{Position: 4, Card: hand[4]},
	}})
	s.True(s.state.Players[alice].Cards.AllFaceUp())
	s.Equal(alice, s.state.FinisherID)
	s.Equal(model.PhaseFinalTurn, s.state.Phase)
	s.Equal(bob, s.state.CurrentPlayer())

	s.reject(bob, model.KnockedEarlyPayload{Revealed: []model.RevealedCard{
		{Position: 4, Card: s.state.Players[bob].Cards[4]},
		{Position: 5, Card: s.state.Players[bob].Cards[5]},
	}})

	s.flipAction(bob, 4)
	s.Equal(model.PhaseRoundOver, s.state.Phase)

	s.endRound()
	s.Equal(12, s.state.Players[alice].TotalScore)
	s.Equal(17, s.state.Players[bob].TotalScore)
	s.Equal(1, s.state.Players[alice].RoundsWon)
	s.True(s.state.Players[bob].Cards.AllFaceUp())
	s.Require().NotNil(s.state.Players[bob].Score)
	s.Equal(17, *s.state.Players[bob].Score)

	s.apply("", model.GameEndedPayload{FinalScores: s.state.TotalScores(), WinnerID: alice})
	s.Equal(model.PhaseGameOver, s.state.Phase)
	s.Equal(alice, s.state.WinnerID)

	err := s.reject("", model.RoundStartedPayload{Round: 2, Deal: deal()})
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *EngineSuite) TestKnockOutOfTurn() {
	s.startGame(deal())
	for pos := range 4 {
		s.flipAction(alice, pos)
		s.flipAction(bob, pos)
	}
	s.Require().Equal(alice, s.state.CurrentPlayer())
	hand := s.state.Players[bob].Cards

	s.apply(bob, model.KnockedEarlyPayload{Revealed: []model.RevealedCard{
		{Position: 4, Card: hand[4]},
		{Position: 5, Card: hand[5]},
	}})
	s.Equal(bob, s.state.FinisherID)
	s.Equal(model.PhaseFinalTurn, s.state.Phase)
	s.Equal(alice, s.state.CurrentPlayer())

	s.flipAction(alice, 4)
	s.Equal(model.PhaseRoundOver, s.state.Phase)
}

func (s *EngineSuite) TestKnockRejectedMidTurn() {
	s.startGame(deal())
	for pos := range 4 {
		s.flipAction(alice, pos)
		s.flipAction(bob, pos)
	}
	s.apply(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: s.state.Deck[0]})
	hand := s.state.Players[bob].Cards

	s.reject(bob, model.KnockedEarlyPayload{Revealed: []model.RevealedCard{
		{Position: 4, Card: hand[4]},
		{Position: 5, Card: hand[5]},
	}})
}

func (s *EngineSuite) TestKnockNeedsFewHiddenCards() {
	s.startGame(deal())
	hand := s.state.Players[alice].Cards

	revealed := make([]model.RevealedCard, model.HandSize)
	for i := range revealed {
		revealed[i] = model.RevealedCard{Position: i, Card: hand[i]}
	}
	s.reject(alice, model.KnockedEarlyPayload{Revealed: revealed})
}

func (s *EngineSuite) TestRoundScoresAreCrossChecked() {
	s.startGame(deal())
	for pos := range model.HandSize {
		s.flipAction(alice, pos)
		s.flipAction(bob, pos)
	}
	s.Require().Equal(model.PhaseRoundOver, s.state.Phase)

	s.reject("", model.RoundEndedPayload{Round: 1, Scores: map[model.PlayerID]int{alice: 0, bob: 17}})
	s.reject("", model.RoundEndedPayload{Round: 1, WinnerID: alice})
	s.reject("", model.RoundEndedPayload{Round: 2})

	s.endRound()
	s.Empty(ScoreRound(s.state).WinnerID)
	s.Equal(1, s.state.Players[alice].RoundsWon)
	s.Equal(1, s.state.Players[bob].RoundsWon)

	s.reject("", model.GameEndedPayload{WinnerID: alice})
	s.apply("", model.GameEndedPayload{FinalScores: s.state.TotalScores()})
	s.Empty(s.state.WinnerID)
}

func (s *EngineSuite) TestNextRound() {
	s.rules.TotalRounds = 2
	s.startGame(deal())
	for pos := range model.HandSize {
		s.flipAction(alice, pos)
		s.flipAction(bob, pos)
	}
	s.reject("", model.RoundStartedPayload{Round: 2, Deal: deal()})
	s.endRound()
	s.reject("", model.GameEndedPayload{FinalScores: s.state.TotalScores()})

	d := deal()
	d.FirstPlayerIdx = 1
	s.apply("", model.RoundStartedPayload{Round: 2, Deal: d})

	s.Equal(2, s.state.CurrentRound)
	s.Equal(model.PhasePlaying, s.state.Phase)
	s.Equal(bob, s.state.CurrentPlayer())
	s.Empty(s.state.FinisherID)
	s.False(s.state.RoundScored)
	s.Nil(s.state.Players[alice].Score)
	s.Equal(17, s.state.Players[alice].TotalScore)
}

// Replay

func (s *EngineSuite) playScriptedGame() {
	s.rules.ScoringRules = []model.ScoringRule{model.ScoreKnockBonus}
	s.rules.FlipOnDiscard = model.FlipAlways
	s.startGame(deal())
	drawn := s.state.Deck[0]
	s.apply(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: drawn})
	s.apply(alice, model.CardDiscardedPayload{Card: drawn})
	s.apply(alice, model.CardFlippedPayload{Position: 0, Card: s.state.Players[alice].Cards[0]})
	for pos := range 4 {
		s.flipAction(bob, pos)
		s.flipAction(alice, pos+1)
	}
	hand := s.state.Players[alice].Cards
	s.flipAction(bob, 4)
	s.apply(alice, model.KnockedEarlyPayload{Revealed: []model.RevealedCard{{Position: 5, Card: hand[5]}}})
	s.flipAction(bob, 5)
	s.endRound()
	s.apply("", model.GameEndedPayload{FinalScores: s.state.TotalScores(), WinnerID: alice})
}

func (s *EngineSuite) TestReplayIsDeterministic() {
	s.playScriptedGame()

	first, err := Replay(s.gameID, s.events)
	s.Require().NoError(err)
	second, err := Replay(s.gameID, s.events)
	s.Require().NoError(err)

	s.Equal(s.state, first)
	s.Equal(first, second)
	s.Equal(int64(len(s.events)-1), first.SequenceNum)
}

func (s *EngineSuite) TestFoldFromSnapshot() {
	s.playScriptedGame()

	snapshot, err := Replay(s.gameID, s.events[:7])
	s.Require().NoError(err)
	resumed, err := Fold(snapshot, s.events[7:])
	s.Require().NoError(err)

	s.Equal(s.state, resumed)
}

func (s *EngineSuite) TestApplyNeverMutatesInput() {
	s.startGame(deal())
	before := s.state.Clone()

	next, err := Apply(s.state, s.next(alice, model.CardDrawnPayload{Source: model.SourceDeck, Card: s.state.Deck[0]}))

	s.Require().NoError(err)
	s.Equal(before, s.state)
	s.NotEqual(before, next)
}

func (s *EngineSuite) TestWireRoundTripUnderNewID() {
	s.playScriptedGame()

	raw, err := json.Marshal(s.events)
	s.Require().NoError(err)
	var decoded []model.Event
	s.Require().NoError(json.Unmarshal(raw, &decoded))

	rebased := model.RebaseEvents(decoded, "game-2")
	state, err := Replay("game-2", rebased)
	s.Require().NoError(err)

	s.Equal(model.GameID("game-2"), state.GameID)
	s.Equal(s.state.TotalScores(), state.TotalScores())
	s.Equal(s.state.WinnerID, state.WinnerID)
	state.GameID = s.gameID
	s.Equal(s.state, state)
}

func (s *EngineSuite) TestFoldSeq() {
	s.playScriptedGame()
	stream := func(yield func(model.Event, error) bool) {
		for _, e := range s.events {
			if !yield(e, nil) {
				return
			}
		}
	}

	state, err := FoldSeq(model.NewGameState(s.gameID), stream)

	s.Require().NoError(err)
	s.Equal(s.state, state)
}
