package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/golfcards/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidRules        = "INVALID_RULES"
	CodeInvalidPosition     = "INVALID_POSITION"
	CodeInvalidSource       = "INVALID_SOURCE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotHost             = "NOT_HOST"
	CodeNotYourTurn         = "NOT_YOUR_TURN"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeRoomCodeExists      = "ROOM_CODE_EXISTS"
	CodeGameNotFound        = "GAME_NOT_FOUND"
	CodeAlreadyJoined       = "ALREADY_JOINED"
	CodeGameFull            = "GAME_FULL"
	CodeGameInProgress      = "GAME_IN_PROGRESS"
	CodeGameOver            = "GAME_OVER"
	CodeWrongPhase          = "WRONG_PHASE"
	CodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	CodeAlreadyDrawn        = "ALREADY_DRAWN"
	CodeNoDrawnCard         = "NO_DRAWN_CARD"
	CodeFlipRequired        = "FLIP_REQUIRED"
	CodeNoFlipPending       = "NO_FLIP_PENDING"
	CodeFlipNotOptional     = "FLIP_NOT_OPTIONAL"
	CodeCannotDiscard       = "CANNOT_DISCARD"
	CodeCardFaceUp          = "CARD_FACE_UP"
	CodeEmptyPile           = "EMPTY_PILE"
	CodeRuleDisabled        = "RULE_DISABLED"
	CodeCannotKnock         = "CANNOT_KNOCK"
	CodeAlreadyFlipped      = "ALREADY_FLIPPED"
	CodeWrongFlipCount      = "WRONG_FLIP_COUNT"
	CodeRoundNotOver        = "ROUND_NOT_OVER"
	CodeConflict            = "CONCURRENCY_CONFLICT"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// StatusOf returns the HTTP status err maps to
func StatusOf(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Not found
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}

	// Not allowed for this player
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrNotPlayerTurn):
		return &httpError{http.StatusForbidden, APIError{CodeNotYourTurn, "Not your turn"}}

	// Bad input
	case errors.Is(err, model.ErrInvalidRules):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRules, err.Error()}}
	case errors.Is(err, model.ErrInvalidPosition):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPosition, "Invalid hand position"}}
	case errors.Is(err, model.ErrInvalidSource):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidSource, "Draw from deck or discard"}}
	case errors.Is(err, model.ErrWrongFlipCount):
		return &httpError{http.StatusBadRequest, APIError{CodeWrongFlipCount, "Wrong number of cards to flip"}}

	// Conflicts with the current game state
	case errors.Is(err, model.ErrRoomCodeExists):
		return &httpError{http.StatusConflict, APIError{CodeRoomCodeExists, "No free room code, try again"}}
	case errors.Is(err, model.ErrAlreadyJoined):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyJoined, "Already seated in this game"}}
	case errors.Is(err, model.ErrGameFull):
		return &httpError{http.StatusConflict, APIError{CodeGameFull, "Game is full"}}
	case errors.Is(err, model.ErrGameInProgress):
		return &httpError{http.StatusConflict, APIError{CodeGameInProgress, "Game is in progress"}}
	case errors.Is(err, model.ErrGameOver):
		return &httpError{http.StatusConflict, APIError{CodeGameOver, "Game is over"}}
	case errors.Is(err, model.ErrWrongPhase):
		return &httpError{http.StatusConflict, APIError{CodeWrongPhase, "Action not allowed in this phase"}}
	case errors.Is(err, model.ErrInsufficientPlayers):
		return &httpError{http.StatusConflict, APIError{CodeInsufficientPlayers, "Not enough players to start"}}
	case errors.Is(err, model.ErrAlreadyDrawn):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyDrawn, "Already holding a drawn card"}}
	case errors.Is(err, model.ErrNoDrawnCard):
		return &httpError{http.StatusConflict, APIError{CodeNoDrawnCard, "Draw a card first"}}
	case errors.Is(err, model.ErrFlipRequired):
		return &httpError{http.StatusConflict, APIError{CodeFlipRequired, "Flip a card first"}}
	case errors.Is(err, model.ErrNoFlipPending):
		return &httpError{http.StatusConflict, APIError{CodeNoFlipPending, "No flip is pending"}}
	case errors.Is(err, model.ErrFlipNotOptional):
		return &httpError{http.StatusConflict, APIError{CodeFlipNotOptional, "The flip cannot be skipped"}}
	case errors.Is(err, model.ErrCannotDiscard):
		return &httpError{http.StatusConflict, APIError{CodeCannotDiscard, "A card taken from the discard pile must be swapped"}}
	case errors.Is(err, model.ErrCardAlreadyFaceUp):
		return &httpError{http.StatusConflict, APIError{CodeCardFaceUp, "Card is already face up"}}
	case errors.Is(err, model.ErrEmptyPile):
		return &httpError{http.StatusConflict, APIError{CodeEmptyPile, "Pile is empty"}}
	case errors.Is(err, model.ErrRuleDisabled):
		return &httpError{http.StatusConflict, APIError{CodeRuleDisabled, "House rule is not enabled"}}
	case errors.Is(err, model.ErrCannotKnock):
		return &httpError{http.StatusConflict, APIError{CodeCannotKnock, "Cannot knock with this hand"}}
	case errors.Is(err, model.ErrAlreadyFlipped):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyFlipped, "Initial flip already done"}}
	case errors.Is(err, model.ErrRoundNotOver):
		return &httpError{http.StatusConflict, APIError{CodeRoundNotOver, "Round is not over"}}
	case errors.Is(err, model.ErrConcurrencyConflict):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Game changed concurrently, try again"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "X-Player-ID header required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
