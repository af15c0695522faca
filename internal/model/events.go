package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Lifecycle events
	EventGameCreated   EventType = "game_created"
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerLeft    EventType = "player_left"
	EventGameStarted   EventType = "game_started"
	EventRoundStarted  EventType = "round_started"
	EventRoundEnded    EventType = "round_ended"
	EventGameEnded     EventType = "game_ended"
	EventGameAbandoned EventType = "game_abandoned"

	// Gameplay events
	EventInitialFlip    EventType = "initial_flip"
	EventCardDrawn      EventType = "card_drawn"
	EventCardSwapped    EventType = "card_swapped"
	EventCardDiscarded  EventType = "card_discarded"
	EventCardFlipped    EventType = "card_flipped"
	EventFlipSkipped    EventType = "flip_skipped"
	EventFlipAsAction   EventType = "flip_as_action"
	EventKnockedEarly   EventType = "knocked_early"
	EventDeckReshuffled EventType = "deck_reshuffled"
)

// Event is an immutable record of one accepted game action
type Event struct {
	ID          string
	GameID      GameID
	SequenceNum int64
	Type        EventType
	PlayerID    PlayerID // Empty for system events
	Timestamp   time.Time
	Payload     Payload
}

// NewEvent builds an event whose Type matches its payload
func NewEvent(gameID GameID, seq int64, playerID PlayerID, at time.Time, payload Payload) Event {
	return Event{
		GameID:      gameID,
		SequenceNum: seq,
		Type:        payload.EventType(),
		PlayerID:    playerID,
		Timestamp:   at.UTC(),
		Payload:     payload,
	}
}

// Payload is the closed set of event bodies. Only types in this package
// implement it.
type Payload interface {
	EventType() EventType
	isPayload()
}

// Deal is the fully dealt table for a round. Replay trusts it instead of
// re-running a shuffle.
type Deal struct {
	Hands          map[PlayerID]Hand `json:"hands"`
	Deck           []Card            `json:"deck"`
	Discard        []Card            `json:"discard"`
	FirstPlayerIdx int               `json:"first_player_idx"`
}

// GameCreatedPayload opens a game's stream
type GameCreatedPayload struct {
	RoomCode RoomCode   `json:"room_code"`
	HostID   PlayerID   `json:"host_id"`
	Options  HouseRules `json:"options"`
}

// PlayerJoinedPayload seats a player
type PlayerJoinedPayload struct {
	Name  string `json:"name"`
	IsCPU bool   `json:"is_cpu"`
}

// PlayerLeftPayload removes a player before the deal
type PlayerLeftPayload struct{}

// GameStartedPayload fixes the turn order and deals round one
type GameStartedPayload struct {
	PlayerOrder []PlayerID `json:"player_order"`
	TotalRounds int        `json:"total_rounds"`
	Deal        Deal       `json:"deal"`
}

// RoundStartedPayload deals a subsequent round
type RoundStartedPayload struct {
	Round int  `json:"round"`
	Deal  Deal `json:"deal"`
}

// InitialFlipPayload reveals a player's opening cards
type InitialFlipPayload struct {
	Positions []int  `json:"positions"`
	Cards     []Card `json:"cards"`
}

// CardDrawnPayload takes the top card of a pile
type CardDrawnPayload struct {
	Source DrawSource `json:"source"`
	Card   Card       `json:"card"`
}

// CardSwappedPayload puts the drawn card into a hand slot
type CardSwappedPayload struct {
	Position int  `json:"position"`
	NewCard  Card `json:"new_card"`
	OldCard  Card `json:"old_card"`
}

// CardDiscardedPayload discards the drawn card
type CardDiscardedPayload struct {
	Card Card `json:"card"`
}

// CardFlippedPayload reveals a hidden card after a discard
type CardFlippedPayload struct {
	Position int  `json:"position"`
	Card     Card `json:"card"`
}

// FlipSkippedPayload declines an optional flip
type FlipSkippedPayload struct{}

// FlipAsActionPayload reveals a hidden card as the whole turn
type FlipAsActionPayload struct {
	Position int  `json:"position"`
	Card     Card `json:"card"`
}

// RevealedCard is a hand slot revealed by a knock
type RevealedCard struct {
	Position int  `json:"position"`
	Card     Card `json:"card"`
}

// KnockedEarlyPayload reveals the knocker's remaining hidden cards
type KnockedEarlyPayload struct {
	Revealed []RevealedCard `json:"revealed"`
}

// DeckReshuffledPayload rebuilds the deck from the discard pile, keeping the
// top discard
type DeckReshuffledPayload struct {
	Deck []Card `json:"deck"`
}

// RoundEndedPayload records a round's scores
type RoundEndedPayload struct {
	Round    int              `json:"round"`
	Scores   map[PlayerID]int `json:"scores"`
	WinnerID PlayerID         `json:"winner_id"` // Empty on a tie
}

// GameEndedPayload is terminal
type GameEndedPayload struct {
	FinalScores map[PlayerID]int `json:"final_scores"`
	WinnerID    PlayerID         `json:"winner_id"` // Empty on a tie
}

// Abandon reasons
const (
	AbandonRoomClosed = "room_closed" // The host closed the room
	AbandonRoomEmpty  = "room_empty"  // Every player left before the deal
)

// GameAbandonedPayload ends a game without a result when its room is torn down
type GameAbandonedPayload struct {
	Reason string `json:"reason"`
}

func (GameCreatedPayload) EventType() EventType    { return EventGameCreated }
func (PlayerJoinedPayload) EventType() EventType   { return EventPlayerJoined }
func (PlayerLeftPayload) EventType() EventType     { return EventPlayerLeft }
func (GameStartedPayload) EventType() EventType    { return EventGameStarted }
func (RoundStartedPayload) EventType() EventType   { return EventRoundStarted }
func (InitialFlipPayload) EventType() EventType    { return EventInitialFlip }
func (CardDrawnPayload) EventType() EventType      { return EventCardDrawn }
func (CardSwappedPayload) EventType() EventType    { return EventCardSwapped }
func (CardDiscardedPayload) EventType() EventType  { return EventCardDiscarded }
func (CardFlippedPayload) EventType() EventType    { return EventCardFlipped }
func (FlipSkippedPayload) EventType() EventType    { return EventFlipSkipped }
func (FlipAsActionPayload) EventType() EventType   { return EventFlipAsAction }
func (KnockedEarlyPayload) EventType() EventType   { return EventKnockedEarly }
func (DeckReshuffledPayload) EventType() EventType { return EventDeckReshuffled }
func (RoundEndedPayload) EventType() EventType     { return EventRoundEnded }
func (GameEndedPayload) EventType() EventType      { return EventGameEnded }
func (GameAbandonedPayload) EventType() EventType  { return EventGameAbandoned }

func (GameCreatedPayload) isPayload()    {}
func (PlayerJoinedPayload) isPayload()   {}
func (PlayerLeftPayload) isPayload()     {}
func (GameStartedPayload) isPayload()    {}
func (RoundStartedPayload) isPayload()   {}
func (InitialFlipPayload) isPayload()    {}
func (CardDrawnPayload) isPayload()      {}
func (CardSwappedPayload) isPayload()    {}
func (CardDiscardedPayload) isPayload()  {}
func (CardFlippedPayload) isPayload()    {}
func (FlipSkippedPayload) isPayload()    {}
func (FlipAsActionPayload) isPayload()   {}
func (KnockedEarlyPayload) isPayload()   {}
func (DeckReshuffledPayload) isPayload() {}
func (RoundEndedPayload) isPayload()     {}
func (GameEndedPayload) isPayload()      {}
func (GameAbandonedPayload) isPayload()  {}

// TerminalEventTypes are the event types after which a game accepts nothing
var TerminalEventTypes = []EventType{EventGameEnded, EventGameAbandoned}

// IsTerminal reports whether no further events may follow
func (e Event) IsTerminal() bool {
	return e.Type == EventGameEnded || e.Type == EventGameAbandoned
}
