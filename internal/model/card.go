package model

import "fmt"

// Rank is a card rank
type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
	RankJoker Rank = "JOKER"
)

// StandardRanks lists the ranks of a standard 52-card deck in order
var StandardRanks = []Rank{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

// Suit is a card suit
type Suit string

const (
	SuitClubs    Suit = "clubs"
	SuitDiamonds Suit = "diamonds"
	SuitHearts   Suit = "hearts"
	SuitSpades   Suit = "spades"
	SuitJoker    Suit = "joker"
)

// StandardSuits lists the four non-joker suits
var StandardSuits = []Suit{SuitClubs, SuitDiamonds, SuitHearts, SuitSpades}

// Card is a single playing card
type Card struct {
	Rank   Rank `json:"rank"`
	Suit   Suit `json:"suit"`
	FaceUp bool `json:"face_up"`
}

// Same reports whether two cards have the same rank and suit, ignoring orientation
func (c Card) Same(other Card) bool {
	return c.Rank == other.Rank && c.Suit == other.Suit
}

// Up returns a face-up copy of the card
func (c Card) Up() Card {
	c.FaceUp = true
	return c
}

// Down returns a face-down copy of the card
func (c Card) Down() Card {
	c.FaceUp = false
	return c
}

func (c Card) String() string {
	if c.Rank == RankJoker {
		return "JOKER"
	}
	return fmt.Sprintf("%s-%s", c.Rank, c.Suit)
}

// HandSize is the number of cards every player holds
const HandSize = 6

// Hand is a player's fixed 2x3 layout:
//
//	0 1 2
//	3 4 5
type Hand [HandSize]Card

// Columns are the position pairs that cancel when their ranks match
var Columns = [3][2]int{{0, 3}, {1, 4}, {2, 5}}

// ValidPosition reports whether pos indexes a hand slot
func ValidPosition(pos int) bool {
	return pos >= 0 && pos < HandSize
}

// HiddenPositions returns the positions of face-down cards in order
func (h Hand) HiddenPositions() []int {
	var hidden []int
	for i, c := range h {
		if !c.FaceUp {
			hidden = append(hidden, i)
		}
	}
	return hidden
}

// AllFaceUp reports whether every card in the hand is face up
func (h Hand) AllFaceUp() bool {
	for _, c := range h {
		if !c.FaceUp {
			return false
		}
	}
	return true
}

// Revealed returns a copy of the hand with every card face up
func (h Hand) Revealed() Hand {
	for i := range h {
		h[i].FaceUp = true
	}
	return h
}
