package game

import (
	"github.com/mcoot/golfcards/internal/dependencies/random"
	"github.com/mcoot/golfcards/internal/model"
)

// jokersPerDeck is how many jokers each deck adds when UseJokers is on
const jokersPerDeck = 2

// NewDeck returns the unshuffled cards for a rule set, face down
func NewDeck(rules model.HouseRules) []model.Card {
	var cards []model.Card
	for range max(rules.Decks, 1) {
		for _, suit := range model.StandardSuits {
			for _, rank := range model.StandardRanks {
				cards = append(cards, model.Card{Rank: rank, Suit: suit})
			}
		}
		if rules.UseJokers {
			for range jokersPerDeck {
				cards = append(cards, model.Card{Rank: model.RankJoker, Suit: model.SuitJoker})
			}
		}
	}
	return cards
}

// Shuffle permutes cards in place
func Shuffle(rnd random.Random, cards []model.Card) {
	rnd.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// DealRound shuffles a fresh deck and deals a round. Hands are dealt one
// card per player at a time, then one card is turned onto the discard pile.
func DealRound(rnd random.Random, rules model.HouseRules, order []model.PlayerID, firstPlayerIdx int) model.Deal {
	deck := NewDeck(rules)
	Shuffle(rnd, deck)

	hands := make(map[model.PlayerID]model.Hand, len(order))
	next := 0
	for pos := range model.HandSize {
		for _, id := range order {
			hand := hands[id]
			hand[pos] = deck[next].Down()
			hands[id] = hand
			next++
		}
	}
	discard := []model.Card{deck[next].Up()}
	next++

	return model.Deal{
		Hands:          hands,
		Deck:           deck[next:],
		Discard:        discard,
		FirstPlayerIdx: firstPlayerIdx,
	}
}

// firstPlayer rotates the opening turn one seat per round
func firstPlayer(round, players int) int {
	return (round - 1) % players
}
