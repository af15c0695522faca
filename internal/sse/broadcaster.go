package sse

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/golfcards/internal/api/response"
	"github.com/mcoot/golfcards/internal/model"
)

const (
	// EventState carries the public view of a game after every change
	EventState = "state"
	// EventGameOver follows the final state of a finished game
	EventGameOver = "game-over"
)

// Broadcaster pushes game state to the SSE clients watching each game
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// StateChanged sends the game's public view to its watchers. It has the
// model.StateListener signature so it can be registered directly.
func (b *Broadcaster) StateChanged(ctx context.Context, state *model.GameState) {
	hub := b.hubManager.GetHub(state.GameID)
	if hub == nil {
		return
	}

	data, err := StateMessage(state)
	if err != nil {
		b.logger.Error("sse failed to encode game state",
			slog.String("game_id", string(state.GameID)),
			slog.String("error", err.Error()))
		return
	}
	hub.Broadcast(data)

	if state.Phase == model.PhaseGameOver {
		hub.Send(EventGameOver, string(state.WinnerID))
	}
}

// StateMessage renders the state event for a game
func StateMessage(state *model.GameState) ([]byte, error) {
	data, err := json.Marshal(response.GameFromModel(state))
	if err != nil {
		return nil, err
	}
	return formatSSEMessage(EventState, string(data)), nil
}
