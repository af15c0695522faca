package engine

import "github.com/mcoot/golfcards/internal/model"

// requireTurn checks that play is under way and that it is the event
// player's turn
func requireTurn(s *model.GameState, e model.Event) (*model.PlayerState, error) {
	if !s.InPlay() {
		return nil, invalid(s, e, "no turns are being taken")
	}
	if e.PlayerID != s.CurrentPlayer() {
		return nil, invalid(s, e, "it is %s's turn, not %s's", s.CurrentPlayer(), e.PlayerID)
	}
	return s.Players[e.PlayerID], nil
}

// requireHidden checks that pos is a face-down slot holding the recorded card
func requireHidden(s *model.GameState, e model.Event, p *model.PlayerState, pos int, card model.Card) error {
	if !model.ValidPosition(pos) {
		return invalid(s, e, "position %d out of range", pos)
	}
	if p.Cards[pos].FaceUp {
		return invalid(s, e, "position %d is already face up", pos)
	}
	if !p.Cards[pos].Same(card) {
		return invalid(s, e, "position %d holds %s, not %s", pos, p.Cards[pos], card)
	}
	return nil
}

// advanceTurn ends the given player's turn. A player whose hand is fully
// revealed becomes the finisher, and the round is over once the pointer
// comes back around to them.
func advanceTurn(s *model.GameState, player model.PlayerID) {
	if s.FinisherID == "" && s.Players[player].Cards.AllFaceUp() {
		s.FinisherID = player
		s.Phase = model.PhaseFinalTurn
	}
	moveTo(s, (s.PlayerIndex(player)+1)%len(s.PlayerOrder))
}

func moveTo(s *model.GameState, idx int) {
	s.CurrentPlayerIdx = idx
	if s.Phase == model.PhaseFinalTurn && s.PlayerOrder[idx] == s.FinisherID {
		s.Phase = model.PhaseRoundOver
	}
}
