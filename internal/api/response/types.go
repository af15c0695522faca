package response

import (
	"time"

	"github.com/mcoot/golfcards/internal/model"
)

// Card is a card as players see it. Face-down cards carry no rank or suit.
type Card struct {
	Rank   string `json:"rank,omitempty"`
	Suit   string `json:"suit,omitempty"`
	FaceUp bool   `json:"face_up"`
}

// CardFromModel hides a face-down card's identity
func CardFromModel(c model.Card) Card {
	if !c.FaceUp {
		return Card{}
	}
	return Card{Rank: string(c.Rank), Suit: string(c.Suit), FaceUp: true}
}

// Player represents a seat in a game view
type Player struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Cards          []Card `json:"cards"`
	Score          *int   `json:"score,omitempty"`
	TotalScore     int    `json:"total_score"`
	RoundsWon      int    `json:"rounds_won"`
	IsCPU          bool   `json:"is_cpu,omitempty"`
	InitialFlipped bool   `json:"initial_flipped"`
}

// PlayerFromModel converts a model.PlayerState
func PlayerFromModel(p *model.PlayerState) Player {
	cards := make([]Card, len(p.Cards))
	for i, c := range p.Cards {
		cards[i] = CardFromModel(c)
	}
	return Player{
		ID:             string(p.ID),
		Name:           p.Name,
		Cards:          cards,
		Score:          p.Score,
		TotalScore:     p.TotalScore,
		RoundsWon:      p.RoundsWon,
		IsCPU:          p.IsCPU,
		InitialFlipped: p.InitialFlipped,
	}
}

// Game is the public view of a game. The deck's order and every face-down
// card stay hidden.
type Game struct {
	ID            string           `json:"id"`
	RoomCode      string           `json:"room_code"`
	HostID        string           `json:"host_id"`
	Phase         string           `json:"phase"`
	Players       []Player         `json:"players"`
	CurrentPlayer string           `json:"current_player,omitempty"`
	DeckCount     int              `json:"deck_count"`
	DiscardTop    *Card            `json:"discard_top,omitempty"`
	DiscardCount  int              `json:"discard_count"`
	DrawnCard     *Card            `json:"drawn_card,omitempty"`
	DrawnFrom     string           `json:"drawn_from,omitempty"`
	PendingFlip   bool             `json:"pending_flip"`
	CurrentRound  int              `json:"current_round"`
	TotalRounds   int              `json:"total_rounds"`
	FinisherID    string           `json:"finisher_id,omitempty"`
	WinnerID      string           `json:"winner_id,omitempty"`
	Abandoned     bool             `json:"abandoned,omitempty"`
	SequenceNum   int64            `json:"sequence_num"`
	Options       model.HouseRules `json:"options"`
}

// GameFromModel builds the public view of a game state
func GameFromModel(g *model.GameState) Game {
	players := make([]Player, 0, len(g.Players))
	for _, id := range seatOrder(g) {
		players = append(players, PlayerFromModel(g.Players[id]))
	}

	view := Game{
		ID:           string(g.GameID),
		RoomCode:     string(g.RoomCode),
		HostID:       string(g.HostID),
		Phase:        string(g.Phase),
		Players:      players,
		DeckCount:    len(g.Deck),
		DiscardCount: len(g.Discard),
		DrawnFrom:    string(g.DrawnFrom),
		PendingFlip:  g.PendingFlip,
		CurrentRound: g.CurrentRound,
		TotalRounds:  g.TotalRounds,
		FinisherID:   string(g.FinisherID),
		WinnerID:     string(g.WinnerID),
		Abandoned:    g.Abandoned,
		SequenceNum:  g.SequenceNum,
		Options:      g.Options,
	}
	if g.InPlay() {
		view.CurrentPlayer = string(g.CurrentPlayer())
	}
	if top, ok := g.TopDiscard(); ok {
		c := CardFromModel(top)
		view.DiscardTop = &c
	}
	if g.DrawnCard != nil {
		c := CardFromModel(*g.DrawnCard)
		view.DrawnCard = &c
	}
	return view
}

// seatOrder lists players in turn order, falling back to id order before
// the order is fixed
func seatOrder(g *model.GameState) []model.PlayerID {
	if len(g.PlayerOrder) == len(g.Players) {
		return g.PlayerOrder
	}
	return g.PlayerIDs()
}

// Room represents room metadata
type Room struct {
	Code         string    `json:"code"`
	GameID       string    `json:"game_id"`
	HostID       string    `json:"host_id"`
	ServerNodeID string    `json:"server_node_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoomFromModel converts a model.Room
func RoomFromModel(r *model.Room) Room {
	return Room{
		Code:         string(r.RoomCode),
		GameID:       string(r.GameID),
		HostID:       string(r.HostID),
		ServerNodeID: string(r.ServerNodeID),
		CreatedAt:    r.CreatedAt,
	}
}

// RoomCreated is returned when a room opens
type RoomCreated struct {
	Room Room `json:"room"`
	Game Game `json:"game"`
}

// Events is an exported slice of a game's log, in wire form
type Events struct {
	GameID string        `json:"game_id"`
	Events []model.Event `json:"events"`
}

// Health reports service status
type Health struct {
	Status string `json:"status"`
	NodeID string `json:"node_id"`
}
