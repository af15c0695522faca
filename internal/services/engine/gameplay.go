package engine

import (
	"slices"

	"github.com/mcoot/golfcards/internal/model"
)

func applyInitialFlip(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.InitialFlipPayload](s, e)
	if err != nil {
		return err
	}
	if s.Phase != model.PhaseInitialFlip {
		return invalid(s, e, "not in the initial flip")
	}
	player, ok := s.Players[e.PlayerID]
	if !ok {
		return invalid(s, e, "player %s is not seated", e.PlayerID)
	}
	if player.InitialFlipped {
		return invalid(s, e, "player %s already flipped", e.PlayerID)
	}
	if len(p.Positions) != s.Options.InitialFlips || len(p.Cards) != len(p.Positions) {
		return invalid(s, e, "expected %d flips, got %d", s.Options.InitialFlips, len(p.Positions))
	}
	seen := make(map[int]bool, len(p.Positions))
	for i, pos := range p.Positions {
		if seen[pos] {
			return invalid(s, e, "position %d flipped twice", pos)
		}
		seen[pos] = true
		if err := requireHidden(s, e, player, pos, p.Cards[i]); err != nil {
			return err
		}
	}

	for _, pos := range p.Positions {
		player.Cards[pos] = player.Cards[pos].Up()
	}
	player.InitialFlipped = true

	for _, pl := range s.Players {
		if !pl.InitialFlipped {
			return nil
		}
	}
	s.Phase = model.PhasePlaying
	return nil
}

func applyCardDrawn(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.CardDrawnPayload](s, e)
	if err != nil {
		return err
	}
	if _, err := requireTurn(s, e); err != nil {
		return err
	}
	if s.DrawnCard != nil {
		return invalid(s, e, "a card has already been drawn")
	}
	if s.PendingFlip {
		return invalid(s, e, "a flip is pending")
	}

	var card model.Card
	switch p.Source {
	case model.SourceDeck:
		if len(s.Deck) == 0 {
			return invalid(s, e, "deck is empty")
		}
		card, s.Deck = s.Deck[0], s.Deck[1:]
	case model.SourceDiscard:
		top, ok := s.TopDiscard()
		if !ok {
			return invalid(s, e, "discard pile is empty")
		}
		card, s.Discard = top, s.Discard[:len(s.Discard)-1]
	default:
		return invalid(s, e, "unknown draw source %q", p.Source)
	}
	if !card.Same(p.Card) {
		return invalid(s, e, "drew %s, event records %s", card, p.Card)
	}

	drawn := card.Up()
	s.DrawnCard = &drawn
	s.DrawnFrom = p.Source
	return nil
}

func applyCardSwapped(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.CardSwappedPayload](s, e)
	if err != nil {
		return err
	}
	player, err := requireTurn(s, e)
	if err != nil {
		return err
	}
	if s.DrawnCard == nil {
		return invalid(s, e, "no card drawn")
	}
	if !model.ValidPosition(p.Position) {
		return invalid(s, e, "position %d out of range", p.Position)
	}
	if !s.DrawnCard.Same(p.NewCard) {
		return invalid(s, e, "holding %s, event records %s", *s.DrawnCard, p.NewCard)
	}
	old := player.Cards[p.Position]
	if !old.Same(p.OldCard) {
		return invalid(s, e, "position %d holds %s, event records %s", p.Position, old, p.OldCard)
	}

	player.Cards[p.Position] = s.DrawnCard.Up()
	s.Discard = append(s.Discard, old.Up())
	s.DrawnCard = nil
	s.DrawnFrom = ""
	advanceTurn(s, player.ID)
	return nil
}

func applyCardDiscarded(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.CardDiscardedPayload](s, e)
	if err != nil {
		return err
	}
	player, err := requireTurn(s, e)
	if err != nil {
		return err
	}
	if s.DrawnCard == nil {
		return invalid(s, e, "no card drawn")
	}
	if s.DrawnFrom != model.SourceDeck {
		return invalid(s, e, "a card taken from the discard pile must be swapped")
	}
	if !s.DrawnCard.Same(p.Card) {
		return invalid(s, e, "holding %s, event records %s", *s.DrawnCard, p.Card)
	}

	s.Discard = append(s.Discard, s.DrawnCard.Up())
	s.DrawnCard = nil
	s.DrawnFrom = ""

	if s.Options.FlipOnDiscard != model.FlipNever && len(player.Cards.HiddenPositions()) > 0 {
		s.PendingFlip = true
		return nil
	}
	advanceTurn(s, player.ID)
	return nil
}

func applyCardFlipped(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.CardFlippedPayload](s, e)
	if err != nil {
		return err
	}
	player, err := requireTurn(s, e)
	if err != nil {
		return err
	}
	if !s.PendingFlip {
		return invalid(s, e, "no flip pending")
	}
	if err := requireHidden(s, e, player, p.Position, p.Card); err != nil {
		return err
	}

	player.Cards[p.Position] = player.Cards[p.Position].Up()
	s.PendingFlip = false
	advanceTurn(s, player.ID)
	return nil
}

func applyFlipSkipped(s *model.GameState, e model.Event) error {
	if _, err := payloadOf[model.FlipSkippedPayload](s, e); err != nil {
		return err
	}
	player, err := requireTurn(s, e)
	if err != nil {
		return err
	}
	if !s.PendingFlip {
		return invalid(s, e, "no flip pending")
	}
	if s.Options.FlipOnDiscard != model.FlipOptional {
		return invalid(s, e, "flip after discard is not optional")
	}

	s.PendingFlip = false
	advanceTurn(s, player.ID)
	return nil
}

func applyFlipAsAction(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.FlipAsActionPayload](s, e)
	if err != nil {
		return err
	}
	if !s.Options.FlipAsAction {
		return invalid(s, e, "flip as action is disabled")
	}
	player, err := requireTurn(s, e)
	if err != nil {
		return err
	}
	if s.DrawnCard != nil || s.PendingFlip {
		return invalid(s, e, "turn already in progress")
	}
	if err := requireHidden(s, e, player, p.Position, p.Card); err != nil {
		return err
	}

	player.Cards[p.Position] = player.Cards[p.Position].Up()
	advanceTurn(s, player.ID)
	return nil
}

func applyKnockedEarly(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.KnockedEarlyPayload](s, e)
	if err != nil {
		return err
	}
	if !s.Options.KnockEarly {
		return invalid(s, e, "knocking early is disabled")
	}
	if s.Phase != model.PhasePlaying || s.FinisherID != "" {
		return invalid(s, e, "the round already has a finisher")
	}
	player, ok := s.Players[e.PlayerID]
	if !ok {
		return invalid(s, e, "player %s is not seated", e.PlayerID)
	}
	if s.DrawnCard != nil || s.PendingFlip {
		return invalid(s, e, "turn already in progress")
	}
	hidden := player.Cards.HiddenPositions()
	if len(hidden) < 1 || len(hidden) > 2 {
		return invalid(s, e, "knocking needs 1 or 2 hidden cards, have %d", len(hidden))
	}
	positions := make([]int, len(p.Revealed))
	for i, r := range p.Revealed {
		positions[i] = r.Position
		if err := requireHidden(s, e, player, r.Position, r.Card); err != nil {
			return err
		}
	}
	slices.Sort(positions)
	if !slices.Equal(positions, hidden) {
		return invalid(s, e, "knock must reveal exactly positions %v", hidden)
	}

	player.Cards = player.Cards.Revealed()
	s.FinisherID = player.ID
	s.Phase = model.PhaseFinalTurn
	moveTo(s, (s.PlayerIndex(player.ID)+1)%len(s.PlayerOrder))
	return nil
}

func applyDeckReshuffled(s *model.GameState, e model.Event) error {
	p, err := payloadOf[model.DeckReshuffledPayload](s, e)
	if err != nil {
		return err
	}
	if !s.InPlay() {
		return invalid(s, e, "no turns are being taken")
	}
	if s.DrawnCard != nil {
		return invalid(s, e, "a card has already been drawn")
	}
	if len(s.Deck) != 0 {
		return invalid(s, e, "deck still holds %d cards", len(s.Deck))
	}
	top, ok := s.TopDiscard()
	if !ok {
		return invalid(s, e, "discard pile is empty")
	}
	if !sameCards(s.Discard[:len(s.Discard)-1], p.Deck) {
		return invalid(s, e, "reshuffled deck does not match the discard pile")
	}

	s.Deck = make([]model.Card, len(p.Deck))
	for i, c := range p.Deck {
		s.Deck[i] = c.Down()
	}
	s.Discard = []model.Card{top}
	return nil
}

// sameCards reports whether a and b hold the same cards in any order
func sameCards(a, b []model.Card) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[model.Card]int, len(a))
	for _, c := range a {
		counts[c.Down()]++
	}
	for _, c := range b {
		counts[c.Down()]--
		if counts[c.Down()] < 0 {
			return false
		}
	}
	return true
}
