package model

import (
	"fmt"
	"slices"
)

// FlipMode controls what happens after a player discards a card drawn from the deck
type FlipMode string

const (
	FlipNever    FlipMode = "never"    // Turn ends on discard
	FlipAlways   FlipMode = "always"   // Player must flip a hidden card
	FlipOptional FlipMode = "optional" // Player may flip a hidden card or skip
)

// ValueRule adjusts the rank -> value table
type ValueRule string

const (
	ValueSuperKings ValueRule = "super_kings" // Kings are worth -2
	ValueTenPenny   ValueRule = "ten_penny"   // Tens are worth 1
	ValueLuckySwing ValueRule = "lucky_swing" // Jokers are worth -5
)

// ScoringRule modifies round scores after the per-hand sum
type ScoringRule string

const (
	ScoreNegativePairsKeepValue ScoringRule = "negative_pairs_keep_value"
	ScoreFourOfAKind            ScoringRule = "four_of_a_kind"
	ScoreKnockPenalty           ScoringRule = "knock_penalty"
	ScoreKnockBonus             ScoringRule = "knock_bonus"
	ScoreUnderdogBonus          ScoringRule = "underdog_bonus"
	ScoreTiedShame              ScoringRule = "tied_shame"
)

// KnownValueRules lists every supported value rule
var KnownValueRules = []ValueRule{ValueSuperKings, ValueTenPenny, ValueLuckySwing}

// KnownScoringRules lists every supported scoring rule
var KnownScoringRules = []ScoringRule{
	ScoreNegativePairsKeepValue,
	ScoreFourOfAKind,
	ScoreKnockPenalty,
	ScoreKnockBonus,
	ScoreUnderdogBonus,
	ScoreTiedShame,
}

// HouseRules is the per-game rule configuration. It travels in the
// game_created event so replay never depends on server defaults.
type HouseRules struct {
	TotalRounds   int           `json:"total_rounds"`
	InitialFlips  int           `json:"initial_flips"`
	FlipOnDiscard FlipMode      `json:"flip_on_discard"`
	FlipAsAction  bool          `json:"flip_as_action"`
	KnockEarly    bool          `json:"knock_early"`
	UseJokers     bool          `json:"use_jokers"`
	Decks         int           `json:"decks"`
	ValueRules    []ValueRule   `json:"value_rules,omitempty"`
	ScoringRules  []ScoringRule `json:"scoring_rules,omitempty"`
}

// DefaultHouseRules returns the standard nine-round game
func DefaultHouseRules() HouseRules {
	return HouseRules{
		TotalRounds:   9,
		InitialFlips:  2,
		FlipOnDiscard: FlipNever,
		Decks:         1,
	}
}

// Validate checks the rule configuration for unsupported values
func (r HouseRules) Validate() error {
	if r.TotalRounds < 1 {
		return fmt.Errorf("%w: total_rounds must be at least 1", ErrInvalidRules)
	}
	if r.InitialFlips < 0 || r.InitialFlips > 2 {
		return fmt.Errorf("%w: initial_flips must be between 0 and 2", ErrInvalidRules)
	}
	if r.Decks < 1 || r.Decks > 3 {
		return fmt.Errorf("%w: decks must be between 1 and 3", ErrInvalidRules)
	}
	switch r.FlipOnDiscard {
	case FlipNever, FlipAlways, FlipOptional:
	default:
		return fmt.Errorf("%w: unknown flip_on_discard %q", ErrInvalidRules, r.FlipOnDiscard)
	}
	for i, v := range r.ValueRules {
		if !slices.Contains(KnownValueRules, v) {
			return fmt.Errorf("%w: unknown value rule %q", ErrInvalidRules, v)
		}
		if slices.Contains(r.ValueRules[:i], v) {
			return fmt.Errorf("%w: value rule %q listed twice", ErrInvalidRules, v)
		}
	}
	// Scoring rules stack, so a repeat would double its bonus
	for i, s := range r.ScoringRules {
		if !slices.Contains(KnownScoringRules, s) {
			return fmt.Errorf("%w: unknown scoring rule %q", ErrInvalidRules, s)
		}
		if slices.Contains(r.ScoringRules[:i], s) {
			return fmt.Errorf("%w: scoring rule %q listed twice", ErrInvalidRules, s)
		}
	}
	return nil
}

// HasValueRule reports whether a value rule is enabled
func (r HouseRules) HasValueRule(v ValueRule) bool {
	return slices.Contains(r.ValueRules, v)
}

// HasScoringRule reports whether a scoring rule is enabled
func (r HouseRules) HasScoringRule(s ScoringRule) bool {
	return slices.Contains(r.ScoringRules, s)
}

// Clone returns a copy that shares no slices with r
func (r HouseRules) Clone() HouseRules {
	r.ValueRules = slices.Clone(r.ValueRules)
	r.ScoringRules = slices.Clone(r.ScoringRules)
	return r
}
