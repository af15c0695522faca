package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/golfcards/internal/api/apierr"
	"github.com/mcoot/golfcards/internal/api/middleware"
	"github.com/mcoot/golfcards/internal/api/request"
	"github.com/mcoot/golfcards/internal/api/response"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/lobby"
)

// LobbyHandler handles room endpoints
type LobbyHandler struct {
	lobbyController lobby.ControllerInterface
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(lobbyController lobby.ControllerInterface) *LobbyHandler {
	return &LobbyHandler{lobbyController: lobbyController}
}

// Create handles POST /api/v1/rooms
func (h *LobbyHandler) Create(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	var req request.CreateRoomRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		WriteError(w, apierr.NewInvalidRequestError("name is required"))
		return
	}
	options := model.DefaultHouseRules()
	if req.Options != nil {
		options = *req.Options
	}

	room, state, err := h.lobbyController.CreateRoom(r.Context(), playerID, name, options)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.RoomCreated{
		Room: response.RoomFromModel(room),
		Game: response.GameFromModel(state),
	})
}

// Get handles GET /api/v1/rooms/{code}
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := roomCode(r)

	room, err := h.lobbyController.GetRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Join handles POST /api/v1/rooms/{code}/join
func (h *LobbyHandler) Join(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	var req request.JoinRoomRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		WriteError(w, apierr.NewInvalidRequestError("name is required"))
		return
	}

	state, err := h.lobbyController.JoinRoom(r.Context(), roomCode(r), playerID, name, req.IsCPU)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(state))
}

// Leave handles POST /api/v1/rooms/{code}/leave
func (h *LobbyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	state, err := h.lobbyController.LeaveRoom(r.Context(), roomCode(r), playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(state))
}

// Close handles DELETE /api/v1/rooms/{code}
func (h *LobbyHandler) Close(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	if err := h.lobbyController.CloseRoom(r.Context(), roomCode(r), playerID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// roomCode reads {code}, upper-cased so codes can be typed either way
func roomCode(r *http.Request) model.RoomCode {
	return model.RoomCode(strings.ToUpper(mux.Vars(r)["code"]))
}
