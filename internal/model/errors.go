package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomCodeExists = errors.New("room code already in use")
	ErrNotHost        = errors.New("player is not the host")

	// Game errors
	ErrGameNotFound        = errors.New("game not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrAlreadyJoined       = errors.New("player has already joined")
	ErrGameFull            = errors.New("game is full")
	ErrGameInProgress      = errors.New("game is in progress")
	ErrGameOver            = errors.New("game is over")
	ErrWrongPhase          = errors.New("action not allowed in this phase")
	ErrInsufficientPlayers = errors.New("insufficient players to start game")
	ErrNotPlayerTurn       = errors.New("not this player's turn")
	ErrAlreadyDrawn        = errors.New("player already holds a drawn card")
	ErrNoDrawnCard         = errors.New("player has not drawn a card")
	ErrFlipRequired        = errors.New("player must flip a card")
	ErrNoFlipPending       = errors.New("no flip is pending")
	ErrFlipNotOptional     = errors.New("flip cannot be skipped")
	ErrCannotDiscard       = errors.New("a card taken from the discard pile must be swapped")
	ErrInvalidPosition     = errors.New("invalid hand position")
	ErrCardAlreadyFaceUp   = errors.New("card is already face up")
	ErrEmptyPile           = errors.New("pile is empty")
	ErrInvalidSource       = errors.New("invalid draw source")
	ErrRuleDisabled        = errors.New("house rule is not enabled")
	ErrCannotKnock         = errors.New("cannot knock with this hand")
	ErrAlreadyFlipped      = errors.New("initial flip already done")
	ErrWrongFlipCount      = errors.New("wrong number of initial flip positions")
	ErrRoundNotOver        = errors.New("round is not over")
	ErrInvalidRules        = errors.New("invalid house rules")

	// Event errors
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidBatch     = errors.New("invalid event batch")

	// Cache errors
	ErrStateNotCached = errors.New("state not cached")

	// Storage and replay failures, wrapped by the typed errors below
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrSequenceGap         = errors.New("sequence gap")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrRecovery            = errors.New("recovery failed")
)

// ConcurrencyConflictError is returned when another writer already appended
// an event at the same (game_id, sequence_num) slot. The caller reloads the
// latest sequence and retries validation.
type ConcurrencyConflictError struct {
	GameID      GameID
	SequenceNum int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict: game %s already has sequence %d", e.GameID, e.SequenceNum)
}

func (e *ConcurrencyConflictError) Unwrap() error { return ErrConcurrencyConflict }

// SequenceGapError is returned when replay sees a non-contiguous sequence.
// It signals a data-integrity fault for that game.
type SequenceGapError struct {
	GameID   GameID
	Expected int64
	Got      int64
}

func (e *SequenceGapError) Error() string {
	return fmt.Sprintf("sequence gap in game %s: expected %d, got %d", e.GameID, e.Expected, e.Got)
}

func (e *SequenceGapError) Unwrap() error { return ErrSequenceGap }

// InvalidTransitionError is returned when an event cannot apply to the
// current phase
type InvalidTransitionError struct {
	Phase     Phase
	EventType EventType
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s in phase %s: %s", e.EventType, e.Phase, e.Reason)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// RecoveryError records a single game that could not be recovered on startup
type RecoveryError struct {
	GameID GameID
	Err    error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("recover game %s: %v", e.GameID, e.Err)
}

// Unwrap exposes both the recovery sentinel and the underlying cause
func (e *RecoveryError) Unwrap() []error { return []error{ErrRecovery, e.Err} }
