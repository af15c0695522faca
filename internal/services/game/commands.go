package game

import (
	"context"
	"log/slog"
	"slices"

	"github.com/mcoot/golfcards/internal/model"
)

// CreateGame opens a new game with the host seated
func (c *Controller) CreateGame(ctx context.Context, roomCode model.RoomCode, hostID model.PlayerID, hostName string, options model.HouseRules) (*model.GameState, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	gameID := model.GameID(c.ids.NewID())

	state, err := c.execute(ctx, gameID, hostID, "create", func(b *batch) error {
		if b.state.SequenceNum >= 0 {
			return model.ErrGameInProgress
		}
		if err := b.add(hostID, model.GameCreatedPayload{RoomCode: roomCode, HostID: hostID, Options: options}); err != nil {
			return err
		}
		return b.add(hostID, model.PlayerJoinedPayload{Name: hostName})
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("game created",
		slog.String("game_id", string(gameID)),
		slog.String("room_code", string(roomCode)),
		slog.String("player_id", string(hostID)),
	)
	return state, nil
}

// JoinGame seats a player before the deal
func (c *Controller) JoinGame(ctx context.Context, gameID model.GameID, playerID model.PlayerID, name string, isCPU bool) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "join", func(b *batch) error {
		s := b.state
		if err := requireGame(s); err != nil {
			return err
		}
		if s.Phase != model.PhaseWaiting {
			return model.ErrGameInProgress
		}
		if _, ok := s.Players[playerID]; ok {
			return model.ErrAlreadyJoined
		}
		if len(s.Players) >= MaxPlayers {
			return model.ErrGameFull
		}
		return b.add(playerID, model.PlayerJoinedPayload{Name: name, IsCPU: isCPU})
	})
}

// LeaveGame removes a player before the deal
func (c *Controller) LeaveGame(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "leave", func(b *batch) error {
		s := b.state
		if err := requireGame(s); err != nil {
			return err
		}
		if _, ok := s.Players[playerID]; !ok {
			return model.ErrPlayerNotFound
		}
		if s.Phase != model.PhaseWaiting {
			return model.ErrGameInProgress
		}
		return b.add(playerID, model.PlayerLeftPayload{})
	})
}

// AbandonGame ends a game without a winner. Games that are already over are
// returned unchanged.
func (c *Controller) AbandonGame(ctx context.Context, gameID model.GameID, playerID model.PlayerID, reason string) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "abandon", func(b *batch) error {
		if err := requireGame(b.state); err != nil {
			return err
		}
		if b.state.Phase == model.PhaseGameOver {
			return nil
		}
		return b.add(playerID, model.GameAbandonedPayload{Reason: reason})
	})
}

// StartGame fixes the turn order and deals the first round. Only the host may start.
func (c *Controller) StartGame(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	state, err := c.execute(ctx, gameID, playerID, "start", func(b *batch) error {
		s := b.state
		if err := requireGame(s); err != nil {
			return err
		}
		if s.HostID != playerID {
			return model.ErrNotHost
		}
		if s.Phase != model.PhaseWaiting {
			return model.ErrGameInProgress
		}
		if len(s.Players) < MinPlayers {
			return model.ErrInsufficientPlayers
		}
		if len(s.Players)*model.HandSize+1 > len(NewDeck(s.Options)) {
			return model.ErrGameFull
		}
		order := slices.Clone(s.PlayerOrder)
		return b.add(playerID, model.GameStartedPayload{
			PlayerOrder: order,
			TotalRounds: s.Options.TotalRounds,
			Deal:        DealRound(c.random, s.Options, order, firstPlayer(1, len(order))),
		})
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("game started",
		slog.String("game_id", string(gameID)),
		slog.Int("player_count", len(state.PlayerOrder)),
		slog.Int("total_rounds", state.TotalRounds),
	)
	return state, nil
}

// StartNextRound deals the next round once the previous one is scored
func (c *Controller) StartNextRound(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "next_round", func(b *batch) error {
		s := b.state
		if err := requireGame(s); err != nil {
			return err
		}
		if s.HostID != playerID {
			return model.ErrNotHost
		}
		if s.Phase == model.PhaseGameOver {
			return model.ErrGameOver
		}
		if s.Phase != model.PhaseRoundOver || !s.RoundScored {
			return model.ErrRoundNotOver
		}
		round := s.CurrentRound + 1
		return b.add(playerID, model.RoundStartedPayload{
			Round: round,
			Deal:  DealRound(c.random, s.Options, s.PlayerOrder, firstPlayer(round, len(s.PlayerOrder))),
		})
	})
}

// InitialFlip reveals a player's opening cards
func (c *Controller) InitialFlip(ctx context.Context, gameID model.GameID, playerID model.PlayerID, positions []int) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "initial_flip", func(b *batch) error {
		s := b.state
		if err := requireGame(s); err != nil {
			return err
		}
		if s.Phase != model.PhaseInitialFlip {
			return model.ErrWrongPhase
		}
		player, ok := s.Players[playerID]
		if !ok {
			return model.ErrPlayerNotFound
		}
		if player.InitialFlipped {
			return model.ErrAlreadyFlipped
		}
		if len(positions) != s.Options.InitialFlips {
			return model.ErrWrongFlipCount
		}
		cards := make([]model.Card, len(positions))
		for i, pos := range positions {
			if slices.Contains(positions[:i], pos) {
				return model.ErrInvalidPosition
			}
			if err := requireHidden(player, pos); err != nil {
				return err
			}
			cards[i] = player.Cards[pos]
		}
		return b.add(playerID, model.InitialFlipPayload{Positions: slices.Clone(positions), Cards: cards})
	})
}

// Draw takes the top card of the deck or the discard pile. An exhausted
// deck is rebuilt from the discard pile first.
func (c *Controller) Draw(ctx context.Context, gameID model.GameID, playerID model.PlayerID, source model.DrawSource) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "draw", func(b *batch) error {
		if _, err := requireTurn(b.state, playerID); err != nil {
			return err
		}
		if err := requireTurnStart(b.state); err != nil {
			return err
		}

		switch source {
		case model.SourceDeck:
			if len(b.state.Deck) == 0 {
				if err := c.reshuffle(b); err != nil {
					return err
				}
			}
			return b.add(playerID, model.CardDrawnPayload{Source: source, Card: b.state.Deck[0]})
		case model.SourceDiscard:
			top, ok := b.state.TopDiscard()
			if !ok {
				return model.ErrEmptyPile
			}
			return b.add(playerID, model.CardDrawnPayload{Source: source, Card: top})
		default:
			return model.ErrInvalidSource
		}
	})
}

// reshuffle turns every discard but the top into a fresh deck
func (c *Controller) reshuffle(b *batch) error {
	if len(b.state.Discard) < 2 {
		return model.ErrEmptyPile
	}
	deck := slices.Clone(b.state.Discard[:len(b.state.Discard)-1])
	for i := range deck {
		deck[i] = deck[i].Down()
	}
	Shuffle(c.random, deck)
	c.logger.Info("deck reshuffled",
		slog.String("game_id", string(b.state.GameID)),
		slog.Int("cards", len(deck)),
	)
	return b.add("", model.DeckReshuffledPayload{Deck: deck})
}

// Swap replaces a hand card with the drawn card
func (c *Controller) Swap(ctx context.Context, gameID model.GameID, playerID model.PlayerID, position int) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "swap", func(b *batch) error {
		player, err := requireTurn(b.state, playerID)
		if err != nil {
			return err
		}
		if b.state.DrawnCard == nil {
			return model.ErrNoDrawnCard
		}
		if !model.ValidPosition(position) {
			return model.ErrInvalidPosition
		}
		return b.add(playerID, model.CardSwappedPayload{
			Position: position,
			NewCard:  *b.state.DrawnCard,
			OldCard:  player.Cards[position],
		})
	})
}

// Discard throws away a card drawn from the deck
func (c *Controller) Discard(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "discard", func(b *batch) error {
		if _, err := requireTurn(b.state, playerID); err != nil {
			return err
		}
		if b.state.DrawnCard == nil {
			return model.ErrNoDrawnCard
		}
		if b.state.DrawnFrom != model.SourceDeck {
			return model.ErrCannotDiscard
		}
		return b.add(playerID, model.CardDiscardedPayload{Card: *b.state.DrawnCard})
	})
}

// Flip reveals a hidden card after a discard
func (c *Controller) Flip(ctx context.Context, gameID model.GameID, playerID model.PlayerID, position int) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "flip", func(b *batch) error {
		player, err := requireTurn(b.state, playerID)
		if err != nil {
			return err
		}
		if !b.state.PendingFlip {
			return model.ErrNoFlipPending
		}
		if err := requireHidden(player, position); err != nil {
			return err
		}
		return b.add(playerID, model.CardFlippedPayload{Position: position, Card: player.Cards[position]})
	})
}

// SkipFlip declines an optional flip after a discard
func (c *Controller) SkipFlip(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "skip_flip", func(b *batch) error {
		if _, err := requireTurn(b.state, playerID); err != nil {
			return err
		}
		if !b.state.PendingFlip {
			return model.ErrNoFlipPending
		}
		if b.state.Options.FlipOnDiscard != model.FlipOptional {
			return model.ErrFlipNotOptional
		}
		return b.add(playerID, model.FlipSkippedPayload{})
	})
}

// FlipAsAction reveals a hidden card as the whole turn
func (c *Controller) FlipAsAction(ctx context.Context, gameID model.GameID, playerID model.PlayerID, position int) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "flip_action", func(b *batch) error {
		if err := requireGame(b.state); err != nil {
			return err
		}
		if !b.state.Options.FlipAsAction {
			return model.ErrRuleDisabled
		}
		player, err := requireTurn(b.state, playerID)
		if err != nil {
			return err
		}
		if err := requireTurnStart(b.state); err != nil {
			return err
		}
		if err := requireHidden(player, position); err != nil {
			return err
		}
		return b.add(playerID, model.FlipAsActionPayload{Position: position, Card: player.Cards[position]})
	})
}

// KnockEarly reveals the player's last one or two hidden cards and makes
// them the finisher. Any seated player may knock between turns, not only
// the player whose turn it is.
func (c *Controller) KnockEarly(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	return c.execute(ctx, gameID, playerID, "knock", func(b *batch) error {
		if err := requireGame(b.state); err != nil {
			return err
		}
		if !b.state.Options.KnockEarly {
			return model.ErrRuleDisabled
		}
		player, err := requireSeated(b.state, playerID)
		if err != nil {
			return err
		}
		if err := requireTurnStart(b.state); err != nil {
			return err
		}
		if b.state.Phase != model.PhasePlaying {
			return model.ErrCannotKnock
		}
		hidden := player.Cards.HiddenPositions()
		if len(hidden) < 1 || len(hidden) > 2 {
			return model.ErrCannotKnock
		}
		revealed := make([]model.RevealedCard, len(hidden))
		for i, pos := range hidden {
			revealed[i] = model.RevealedCard{Position: pos, Card: player.Cards[pos]}
		}
		return b.add(playerID, model.KnockedEarlyPayload{Revealed: revealed})
	})
}

func requireGame(s *model.GameState) error {
	if s.SequenceNum < 0 {
		return model.ErrGameNotFound
	}
	return nil
}

// requireTurn checks that turns are being taken and it is playerID's
func requireTurn(s *model.GameState, playerID model.PlayerID) (*model.PlayerState, error) {
	player, err := requireSeated(s, playerID)
	if err != nil {
		return nil, err
	}
	if s.CurrentPlayer() != playerID {
		return nil, model.ErrNotPlayerTurn
	}
	return player, nil
}

// requireSeated checks that turns are being taken and playerID is at the table
func requireSeated(s *model.GameState, playerID model.PlayerID) (*model.PlayerState, error) {
	if err := requireGame(s); err != nil {
		return nil, err
	}
	player, ok := s.Players[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	switch s.Phase {
	case model.PhasePlaying, model.PhaseFinalTurn:
	case model.PhaseGameOver:
		return nil, model.ErrGameOver
	default:
		return nil, model.ErrWrongPhase
	}
	return player, nil
}

// requireTurnStart checks that nothing has happened yet this turn
func requireTurnStart(s *model.GameState) error {
	if s.DrawnCard != nil {
		return model.ErrAlreadyDrawn
	}
	if s.PendingFlip {
		return model.ErrFlipRequired
	}
	return nil
}

func requireHidden(player *model.PlayerState, pos int) error {
	if !model.ValidPosition(pos) {
		return model.ErrInvalidPosition
	}
	if player.Cards[pos].FaceUp {
		return model.ErrCardAlreadyFaceUp
	}
	return nil
}
