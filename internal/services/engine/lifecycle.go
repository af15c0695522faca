package engine

import (
	"maps"
	"slices"

	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/scoring"
)

func applyGameCreated(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.GameCreatedPayload](s, e)
	if err != nil {
		return err
	}
	if err := p.Options.Validate(); err != nil {
		return invalid(s, e, "%v", err)
	}
	s.RoomCode = p.RoomCode
	s.HostID = p.HostID
	s.Options = p.Options.Clone()
	s.TotalRounds = p.Options.TotalRounds
	s.Phase = model.PhaseWaiting
	return nil
}

func applyPlayerJoined(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.PlayerJoinedPayload](s, e)
	if err != nil {
		return err
	}
	if s.Phase != model.PhaseWaiting {
		return invalid(s, e, "players can only join before the deal")
	}
	if e.PlayerID == "" {
		return invalid(s, e, "player id is required")
	}
	if _, ok := s.Players[e.PlayerID]; ok {
		return invalid(s, e, "player %s already joined", e.PlayerID)
	}
	s.Players[e.PlayerID] = &model.PlayerState{
		ID:    e.PlayerID,
		Name:  p.Name,
		IsCPU: p.IsCPU,
	}
	s.PlayerOrder = append(s.PlayerOrder, e.PlayerID)
	if s.HostID == "" {
		s.HostID = e.PlayerID
	}
	return nil
}

func applyPlayerLeft(s *model.GameState, e model.Event) error {
	if _, err := payloadOf[model.PlayerLeftPayload](s, e); err != nil {
		return err
	}
	if s.Phase != model.PhaseWaiting {
		return invalid(s, e, "players can only leave before the deal")
	}
	if _, ok := s.Players[e.PlayerID]; !ok {
		return invalid(s, e, "player %s is not seated", e.PlayerID)
	}
	delete(s.Players, e.PlayerID)
	s.PlayerOrder = slices.DeleteFunc(s.PlayerOrder, func(id model.PlayerID) bool { return id == e.PlayerID })
	if s.HostID == e.PlayerID {
		s.HostID = ""
		if len(s.PlayerOrder) > 0 {
			s.HostID = s.PlayerOrder[0]
		}
	}
	return nil
}

func applyGameStarted(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.GameStartedPayload](s, e)
	if err != nil {
		return err
	}
	if s.Phase != model.PhaseWaiting {
		return invalid(s, e, "game already started")
	}
	if len(s.Players) == 0 {
		return invalid(s, e, "no players seated")
	}
	if p.TotalRounds < 1 {
		return invalid(s, e, "total rounds must be positive")
	}
	if len(p.PlayerOrder) != len(s.Players) {
		return invalid(s, e, "turn order has %d players, %d seated", len(p.PlayerOrder), len(s.Players))
	}
	for _, id := range p.PlayerOrder {
		if _, ok := s.Players[id]; !ok {
			return invalid(s, e, "turn order names unknown player %s", id)
		}
	}
	if len(slices.Compact(slices.Sorted(slices.Values(p.PlayerOrder)))) != len(p.PlayerOrder) {
		return invalid(s, e, "turn order repeats a player")
	}

	s.PlayerOrder = slices.Clone(p.PlayerOrder)
	s.TotalRounds = p.TotalRounds
	s.CurrentRound = 1
	return applyDeal(s, e, p.Deal)
}

func applyRoundStarted(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.RoundStartedPayload](s, e)
	if err != nil {
		return err
	}
	if s.Phase != model.PhaseRoundOver || !s.RoundScored {
		return invalid(s, e, "previous round has not been scored")
	}
	if s.CurrentRound >= s.TotalRounds {
		return invalid(s, e, "all %d rounds have been played", s.TotalRounds)
	}
	if p.Round != s.CurrentRound+1 {
		return invalid(s, e, "expected round %d, got %d", s.CurrentRound+1, p.Round)
	}
	s.CurrentRound = p.Round
	return applyDeal(s, e, p.Deal)
}

// applyDeal installs a dealt table exactly as recorded
func applyDeal(s *model.GameState, e model.Event, deal model.Deal) error {
	if len(deal.Hands) != len(s.PlayerOrder) {
		return invalid(s, e, "deal has %d hands for %d players", len(deal.Hands), len(s.PlayerOrder))
	}
	if deal.FirstPlayerIdx < 0 || deal.FirstPlayerIdx >= len(s.PlayerOrder) {
		return invalid(s, e, "first player index %d out of range", deal.FirstPlayerIdx)
	}
	for _, id := range s.PlayerOrder {
		hand, ok := deal.Hands[id]
		if !ok {
			return invalid(s, e, "no hand dealt to %s", id)
		}
		if len(hand.HiddenPositions()) != model.HandSize {
			return invalid(s, e, "hand dealt to %s is not face down", id)
		}
	}

	for _, id := range s.PlayerOrder {
		p := s.Players[id]
		p.Cards = deal.Hands[id]
		p.Score = nil
		p.InitialFlipped = false
	}
	s.Deck = make([]model.Card, len(deal.Deck))
	for i, c := range deal.Deck {
		s.Deck[i] = c.Down()
	}
	s.Discard = make([]model.Card, len(deal.Discard))
	for i, c := range deal.Discard {
		s.Discard[i] = c.Up()
	}
	s.DrawnCard = nil
	s.DrawnFrom = ""
	s.PendingFlip = false
	s.FinisherID = ""
	s.RoundScored = false
	s.CurrentPlayerIdx = deal.FirstPlayerIdx

	s.Phase = model.PhasePlaying
	if s.Options.InitialFlips > 0 {
		s.Phase = model.PhaseInitialFlip
	}
	return nil
}

func applyRoundEnded(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.RoundEndedPayload](s, e)
	if err != nil {
		return err
	}
	if s.Phase != model.PhaseRoundOver {
		return invalid(s, e, "round is still in play")
	}
	if s.RoundScored {
		return invalid(s, e, "round %d already scored", s.CurrentRound)
	}
	if p.Round != s.CurrentRound {
		return invalid(s, e, "expected round %d, got %d", s.CurrentRound, p.Round)
	}

	result := ScoreRound(s)
	if p.Scores != nil && !maps.Equal(p.Scores, result.Scores) {
		return invalid(s, e, "recorded scores differ from computed scores")
	}
	if p.WinnerID != result.WinnerID {
		return invalid(s, e, "recorded winner %q, computed %q", p.WinnerID, result.WinnerID)
	}

	for id, player := range s.Players {
		score := result.Scores[id]
		player.Cards = player.Cards.Revealed()
		player.Score = &score
		player.TotalScore += score
	}
	for _, id := range result.Lowest {
		s.Players[id].RoundsWon++
	}
	s.RoundScored = true
	return nil
}

func applyGameEnded(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.GameEndedPayload](s, e)
	if err != nil {
		return err
	}
	if s.Phase != model.PhaseRoundOver || !s.RoundScored {
		return invalid(s, e, "final round has not been scored")
	}
	if s.CurrentRound != s.TotalRounds {
		return invalid(s, e, "round %d of %d is not the last", s.CurrentRound, s.TotalRounds)
	}

	totals := s.TotalScores()
	if p.FinalScores != nil && !maps.Equal(p.FinalScores, totals) {
		return invalid(s, e, "recorded final scores differ from totals")
	}
	winner := scoring.Winner(totals)
	if p.WinnerID != winner {
		return invalid(s, e, "recorded winner %q, computed %q", p.WinnerID, winner)
	}
	s.WinnerID = winner
	s.Phase = model.PhaseGameOver
	return nil
}

// applyGameAbandoned ends the game without a winner. Any phase may be
// abandoned; hands and scores are left as they stood.
func applyGameAbandoned(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.GameAbandonedPayload](s, e)
	if err != nil {
		return err
	}
	if p.Reason == "" {
		return invalid(s, e, "abandon reason is required")
	}
	s.DrawnCard = nil
	s.DrawnFrom = ""
	s.PendingFlip = false
	s.WinnerID = ""
	s.Abandoned = true
	s.Phase = model.PhaseGameOver
	return nil
}

// ScoreRound scores the current hands under the game's house rules
func ScoreRound(s *model.GameState) scoring.RoundResult {
	return scoring.ScoreRound(s.Players, s.FinisherID, s.Options)
}
