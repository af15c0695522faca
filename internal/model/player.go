package model

// PlayerID uniquely identifies a player
type PlayerID string

// PlayerState is one seat in a game
type PlayerState struct {
	ID             PlayerID `json:"id"`
	Name           string   `json:"name"`
	Cards          Hand     `json:"cards"`
	Score          *int     `json:"score"` // Set when the round is scored
	TotalScore     int      `json:"total_score"`
	RoundsWon      int      `json:"rounds_won"`
	IsCPU          bool     `json:"is_cpu"`
	InitialFlipped bool     `json:"initial_flipped"`
}

// Clone returns a deep copy of the player
func (p *PlayerState) Clone() *PlayerState {
	c := *p
	if p.Score != nil {
		score := *p.Score
		c.Score = &score
	}
	return &c
}
