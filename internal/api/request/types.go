package request

import "github.com/mcoot/golfcards/internal/model"

// CreateRoomRequest is the request body for opening a room. Options
// defaults to model.DefaultHouseRules when omitted.
type CreateRoomRequest struct {
	Name    string            `json:"name"`
	Options *model.HouseRules `json:"options,omitempty"`
}

// JoinRoomRequest is the request body for taking a seat
type JoinRoomRequest struct {
	Name  string `json:"name"`
	IsCPU bool   `json:"is_cpu,omitempty"`
}

// InitialFlipRequest is the request body for the opening reveal
type InitialFlipRequest struct {
	Positions []int `json:"positions"`
}

// DrawRequest is the request body for drawing a card
type DrawRequest struct {
	Source string `json:"source"`
}

// PositionRequest is the request body for commands aimed at one hand slot
// (swap, flip, flip-action)
type PositionRequest struct {
	Position *int `json:"position"`
}
