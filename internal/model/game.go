package model

import (
	"context"
	"maps"
	"slices"
)

// GameID uniquely identifies a game
type GameID string

// Phase is the current stage of a game
type Phase string

const (
	PhaseWaiting     Phase = "waiting"      // Players joining, not dealt
	PhaseInitialFlip Phase = "initial_flip" // Players revealing their opening cards
	PhasePlaying     Phase = "playing"      // Normal turns
	PhaseFinalTurn   Phase = "final_turn"   // Finisher set, everyone else gets one more turn
	PhaseRoundOver   Phase = "round_over"   // Round complete, awaiting scoring or next deal
	PhaseGameOver    Phase = "game_over"    // All rounds scored
)

// DrawSource identifies the pile a card was drawn from
type DrawSource string

const (
	SourceDeck    DrawSource = "deck"
	SourceDiscard DrawSource = "discard"
)

// GameState is the full rule state of one game. It is created empty and
// evolves only by applying events in sequence order.
type GameState struct {
	GameID   GameID   `json:"game_id"`
	RoomCode RoomCode `json:"room_code"`
	HostID   PlayerID `json:"host_id"`
	Phase    Phase    `json:"phase"`

	// Players is the arena; every other reference is a PlayerID into it
	Players          map[PlayerID]*PlayerState `json:"players"`
	PlayerOrder      []PlayerID                `json:"player_order"`
	CurrentPlayerIdx int                       `json:"current_player_idx"`

	// Deck[0] is the next card drawn; Discard's last element is the top
	Deck        []Card     `json:"deck"`
	Discard     []Card     `json:"discard"`
	DrawnCard   *Card      `json:"drawn_card"`
	DrawnFrom   DrawSource `json:"drawn_from,omitempty"`
	PendingFlip bool       `json:"pending_flip"`

	CurrentRound int      `json:"current_round"`
	TotalRounds  int      `json:"total_rounds"`
	FinisherID   PlayerID `json:"finisher_id,omitempty"`
	RoundScored  bool     `json:"round_scored"`
	WinnerID     PlayerID `json:"winner_id,omitempty"`
	Abandoned    bool     `json:"abandoned,omitempty"` // Ended by room teardown, not play

	SequenceNum int64      `json:"sequence_num"`
	Options     HouseRules `json:"options"`
}

// NewGameState returns the empty state that precedes a game's first event
func NewGameState(id GameID) *GameState {
	return &GameState{
		GameID:      id,
		Phase:       PhaseWaiting,
		Players:     make(map[PlayerID]*PlayerState),
		SequenceNum: -1,
	}
}

// CurrentPlayer returns the id of the player whose turn it is
func (g *GameState) CurrentPlayer() PlayerID {
	if len(g.PlayerOrder) == 0 {
		return ""
	}
	return g.PlayerOrder[g.CurrentPlayerIdx]
}

// PlayerIndex returns the position of id in the turn order, or -1
func (g *GameState) PlayerIndex(id PlayerID) int {
	return slices.Index(g.PlayerOrder, id)
}

// TopDiscard returns the top card of the discard pile
func (g *GameState) TopDiscard() (Card, bool) {
	if len(g.Discard) == 0 {
		return Card{}, false
	}
	return g.Discard[len(g.Discard)-1], true
}

// InPlay reports whether turns are being taken
func (g *GameState) InPlay() bool {
	return g.Phase == PhasePlaying || g.Phase == PhaseFinalTurn
}

// Clone returns a deep copy of the state
func (g *GameState) Clone() *GameState {
	c := *g
	c.Players = make(map[PlayerID]*PlayerState, len(g.Players))
	for id, p := range g.Players {
		c.Players[id] = p.Clone()
	}
	c.PlayerOrder = slices.Clone(g.PlayerOrder)
	c.Deck = slices.Clone(g.Deck)
	c.Discard = slices.Clone(g.Discard)
	if g.DrawnCard != nil {
		card := *g.DrawnCard
		c.DrawnCard = &card
	}
	c.Options = g.Options.Clone()
	return &c
}

// TotalScores returns each player's running total
func (g *GameState) TotalScores() map[PlayerID]int {
	totals := make(map[PlayerID]int, len(g.Players))
	for id, p := range g.Players {
		totals[id] = p.TotalScore
	}
	return totals
}

// PlayerIDs returns the ids of all seated players, sorted
func (g *GameState) PlayerIDs() []PlayerID {
	return slices.Sorted(maps.Keys(g.Players))
}

// StateListener receives a game's state after it changes
type StateListener func(ctx context.Context, state *GameState)
