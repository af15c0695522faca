package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/golfcards/internal/api/apierr"
	"github.com/mcoot/golfcards/internal/api/middleware"
	"github.com/mcoot/golfcards/internal/api/request"
	"github.com/mcoot/golfcards/internal/api/response"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/game"
	"github.com/mcoot/golfcards/internal/sse"
)

// GameHandler handles game endpoints. Every command answers with the
// public view of the state it produced.
type GameHandler struct {
	gameController *game.Controller
	hubManager     *sse.HubManager
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameController *game.Controller, hubManager *sse.HubManager) *GameHandler {
	return &GameHandler{
		gameController: gameController,
		hubManager:     hubManager,
	}
}

// command is a game command addressed by game and player
type command func(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error)

// run executes cmd for the caller and writes the resulting view
func (h *GameHandler) run(w http.ResponseWriter, r *http.Request, cmd command) {
	state, err := cmd(r.Context(), gameID(r), middleware.MustGetPlayerID(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameFromModel(state))
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.gameController.GetState(r.Context(), gameID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameFromModel(state))
}

// Events handles GET /api/v1/games/{id}/events?from=&to=
func (h *GameHandler) Events(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt(r, "from", 0)
	if err != nil {
		WriteError(w, err)
		return
	}
	to, err := queryInt(r, "to", -1)
	if err != nil {
		WriteError(w, err)
		return
	}

	id := gameID(r)
	events, err := h.gameController.GetEvents(r.Context(), id, from, to)
	if err != nil {
		WriteError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	response.JSON(w, http.StatusOK, response.Events{GameID: string(id), Events: events})
}

// Start handles POST /api/v1/games/{id}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.gameController.StartGame)
}

// NextRound handles POST /api/v1/games/{id}/next-round
func (h *GameHandler) NextRound(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.gameController.StartNextRound)
}

// InitialFlip handles POST /api/v1/games/{id}/flip-initial
func (h *GameHandler) InitialFlip(w http.ResponseWriter, r *http.Request) {
	var req request.InitialFlipRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	h.run(w, r, func(ctx context.Context, g model.GameID, p model.PlayerID) (*model.GameState, error) {
		return h.gameController.InitialFlip(ctx, g, p, req.Positions)
	})
}

// Draw handles POST /api/v1/games/{id}/draw
func (h *GameHandler) Draw(w http.ResponseWriter, r *http.Request) {
	var req request.DrawRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	h.run(w, r, func(ctx context.Context, g model.GameID, p model.PlayerID) (*model.GameState, error) {
		return h.gameController.Draw(ctx, g, p, model.DrawSource(req.Source))
	})
}

// Swap handles POST /api/v1/games/{id}/swap
func (h *GameHandler) Swap(w http.ResponseWriter, r *http.Request) {
	h.atPosition(w, r, h.gameController.Swap)
}

// Discard handles POST /api/v1/games/{id}/discard
func (h *GameHandler) Discard(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.gameController.Discard)
}

// Flip handles POST /api/v1/games/{id}/flip
func (h *GameHandler) Flip(w http.ResponseWriter, r *http.Request) {
	h.atPosition(w, r, h.gameController.Flip)
}

// SkipFlip handles POST /api/v1/games/{id}/skip-flip
func (h *GameHandler) SkipFlip(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.gameController.SkipFlip)
}

// FlipAction handles POST /api/v1/games/{id}/flip-action
func (h *GameHandler) FlipAction(w http.ResponseWriter, r *http.Request) {
	h.atPosition(w, r, h.gameController.FlipAsAction)
}

// Knock handles POST /api/v1/games/{id}/knock
func (h *GameHandler) Knock(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.gameController.KnockEarly)
}

func (h *GameHandler) atPosition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, g model.GameID, p model.PlayerID, position int) (*model.GameState, error),
) {
	var req request.PositionRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Position == nil {
		WriteError(w, apierr.NewInvalidRequestError("position is required"))
		return
	}
	h.run(w, r, func(ctx context.Context, g model.GameID, p model.PlayerID) (*model.GameState, error) {
		return fn(ctx, g, p, *req.Position)
	})
}

// Stream handles GET /api/v1/games/{id}/stream. Spectators may watch
// without a player id.
func (h *GameHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := gameID(r)
	state, err := h.gameController.GetState(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	initial, err := sse.StateMessage(state)
	if err != nil {
		WriteError(w, err)
		return
	}

	// Streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	playerID := model.PlayerID(r.Header.Get(middleware.PlayerHeader))
	sse.ServeSSE(w, r, h.hubManager.GetOrCreateHub(id), playerID, initial)
}

func gameID(r *http.Request) model.GameID {
	return model.GameID(mux.Vars(r)["id"])
}

func queryInt(r *http.Request, key string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apierr.NewInvalidRequestError(key + " must be an integer")
	}
	return v, nil
}
