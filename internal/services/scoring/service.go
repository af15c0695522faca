package scoring

import (
	"maps"
	"slices"

	"github.com/mcoot/golfcards/internal/model"
)

const (
	fourOfAKindBonus = -20
	knockPenalty     = 10
	knockBonus       = -5
	underdogBonus    = -3
	tiedShame        = 5
)

// ValueTable maps a rank to its point value
type ValueTable map[model.Rank]int

// standardValues is the base table before house rules
var standardValues = ValueTable{
	model.RankAce:   1,
	model.RankTwo:   -2,
	model.RankThree: 3,
	model.RankFour:  4,
	model.RankFive:  5,
	model.RankSix:   6,
	model.RankSeven: 7,
	model.RankEight: 8,
	model.RankNine:  9,
	model.RankTen:   10,
	model.RankJack:  10,
	model.RankQueen: 10,
	model.RankKing:  0,
	model.RankJoker: -2,
}

// valueRules maps each value rule to the table entries it overrides
var valueRules = map[model.ValueRule]ValueTable{
	model.ValueSuperKings: {model.RankKing: -2},
	model.ValueTenPenny:   {model.RankTen: 1},
	model.ValueLuckySwing: {model.RankJoker: -5},
}

// roundModifier computes per-player adjustments from the base hand scores
type roundModifier func(base map[model.PlayerID]int, finisher model.PlayerID) map[model.PlayerID]int

// roundModifiers maps each round-level scoring rule to its adjustment.
// Hand-level rules (pair handling, four of a kind) live in HandScore.
var roundModifiers = map[model.ScoringRule]roundModifier{
	model.ScoreKnockPenalty: func(base map[model.PlayerID]int, finisher model.PlayerID) map[model.PlayerID]int {
		if finisher == "" {
			return nil
		}
		for id, s := range base {
			if id != finisher && s <= base[finisher] {
				return map[model.PlayerID]int{finisher: knockPenalty}
			}
		}
		return nil
	},
	model.ScoreKnockBonus: func(base map[model.PlayerID]int, finisher model.PlayerID) map[model.PlayerID]int {
		if finisher == "" {
			return nil
		}
		return map[model.PlayerID]int{finisher: knockBonus}
	},
	model.ScoreUnderdogBonus: func(base map[model.PlayerID]int, _ model.PlayerID) map[model.PlayerID]int {
		out := make(map[model.PlayerID]int)
		for _, id := range lowest(base) {
			out[id] = underdogBonus
		}
		return out
	},
	model.ScoreTiedShame: func(base map[model.PlayerID]int, _ model.PlayerID) map[model.PlayerID]int {
		counts := make(map[int]int)
		for _, s := range base {
			counts[s]++
		}
		out := make(map[model.PlayerID]int)
		for id, s := range base {
			if counts[s] > 1 {
				out[id] = tiedShame
			}
		}
		return out
	},
}

// Table builds the value table for a rule set
func Table(rules model.HouseRules) ValueTable {
	table := maps.Clone(standardValues)
	for _, rule := range rules.ValueRules {
		maps.Copy(table, valueRules[rule])
	}
	return table
}

// HandScore scores a hand regardless of which cards are face up.
// Matching ranks in a column cancel to zero.
func HandScore(hand model.Hand, rules model.HouseRules) int {
	table := Table(rules)
	keepNegative := rules.HasScoringRule(model.ScoreNegativePairsKeepValue)

	score := 0
	pairs := make(map[model.Rank]int)
	for _, col := range model.Columns {
		top, bottom := hand[col[0]], hand[col[1]]
		if top.Rank == bottom.Rank {
			pairs[top.Rank]++
			if keepNegative && table[top.Rank] < 0 {
				score += 2 * table[top.Rank]
			}
			continue
		}
		score += table[top.Rank] + table[bottom.Rank]
	}

	if rules.HasScoringRule(model.ScoreFourOfAKind) {
		for _, n := range pairs {
			if n >= 2 {
				score += fourOfAKindBonus
			}
		}
	}
	return score
}

// RoundResult holds the scores for one round
type RoundResult struct {
	Scores   map[model.PlayerID]int
	WinnerID model.PlayerID   // Empty on a tie
	Lowest   []model.PlayerID // Every player sharing the lowest score
}

// ScoreRound scores every hand and applies the enabled round modifiers.
// Modifiers are evaluated against the unmodified hand scores so their
// order never matters.
func ScoreRound(players map[model.PlayerID]*model.PlayerState, finisher model.PlayerID, rules model.HouseRules) RoundResult {
	base := make(map[model.PlayerID]int, len(players))
	for id, p := range players {
		base[id] = HandScore(p.Cards, rules)
	}

	scores := maps.Clone(base)
	for _, rule := range rules.ScoringRules {
		modify, ok := roundModifiers[rule]
		if !ok {
			continue
		}
		for id, delta := range modify(base, finisher) {
			scores[id] += delta
		}
	}

	low := lowest(scores)
	result := RoundResult{Scores: scores, Lowest: low}
	if len(low) == 1 {
		result.WinnerID = low[0]
	}
	return result
}

// Winner returns the sole lowest total, or empty on a tie
func Winner(totals map[model.PlayerID]int) model.PlayerID {
	low := lowest(totals)
	if len(low) != 1 {
		return ""
	}
	return low[0]
}

// lowest returns the sorted ids sharing the minimum score
func lowest(scores map[model.PlayerID]int) []model.PlayerID {
	var ids []model.PlayerID
	best := 0
	for _, id := range slices.Sorted(maps.Keys(scores)) {
		s := scores[id]
		switch {
		case len(ids) == 0 || s < best:
			ids = []model.PlayerID{id}
			best = s
		case s == best:
			ids = append(ids, id)
		}
	}
	return ids
}
