// Package engine is the game rule state machine. Every function here is
// pure: state goes in, a new state comes out, nothing is read or written
// elsewhere. Replaying the same events always yields the same state.
package engine

import (
	"fmt"
	"iter"

	"github.com/mcoot/golfcards/internal/model"
)

// transition mutates a private clone of the state for one event
type transition func(s *model.GameState, e model.Event) error

var transitions = map[model.EventType]transition{
	model.EventGameCreated:    applyGameCreated,
	model.EventPlayerJoined:   applyPlayerJoined,
	model.EventPlayerLeft:     applyPlayerLeft,
	model.EventGameStarted:    applyGameStarted,
	model.EventRoundStarted:   applyRoundStarted,
	model.EventRoundEnded:     applyRoundEnded,
	model.EventGameEnded:      applyGameEnded,
	model.EventGameAbandoned:  applyGameAbandoned,
	model.EventInitialFlip:    applyInitialFlip,
	model.EventCardDrawn:      applyCardDrawn,
	model.EventCardSwapped:    applyCardSwapped,
	model.EventCardDiscarded:  applyCardDiscarded,
	model.EventCardFlipped:    applyCardFlipped,
	model.EventFlipSkipped:    applyFlipSkipped,
	model.EventFlipAsAction:   applyFlipAsAction,
	model.EventKnockedEarly:   applyKnockedEarly,
	model.EventDeckReshuffled: applyDeckReshuffled,
}

// Apply returns the state that results from applying evt to state. The
// input is never modified; on error it is still the latest valid state.
func Apply(state *model.GameState, evt model.Event) (*model.GameState, error) {
	if state == nil {
		return nil, fmt.Errorf("apply %s: nil state", evt.Type)
	}
	if evt.SequenceNum != state.SequenceNum+1 {
		return nil, &model.SequenceGapError{
			GameID:   state.GameID,
			Expected: state.SequenceNum + 1,
			Got:      evt.SequenceNum,
		}
	}
	if evt.GameID != state.GameID {
		return nil, invalid(state, evt, "event belongs to game %s", evt.GameID)
	}
	if evt.Payload == nil || evt.Payload.EventType() != evt.Type {
		return nil, invalid(state, evt, "payload does not match event type")
	}
	if (evt.Type == model.EventGameCreated) != (state.SequenceNum == -1) {
		return nil, invalid(state, evt, "game_created must be the first and only opening event")
	}
	if state.Phase == model.PhaseGameOver {
		return nil, invalid(state, evt, "game is over")
	}

	apply, ok := transitions[evt.Type]
	if !ok {
		return nil, invalid(state, evt, "no transition registered")
	}

	next := state.Clone()
	if err := apply(next, evt); err != nil {
		return nil, err
	}
	next.SequenceNum = evt.SequenceNum
	return next, nil
}

// Fold applies events in order starting from state. On failure it returns
// the last state that applied cleanly together with the error.
func Fold(state *model.GameState, events []model.Event) (*model.GameState, error) {
	for _, evt := range events {
		next, err := Apply(state, evt)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}

// FoldSeq is Fold over a lazily produced event stream
func FoldSeq(state *model.GameState, events iter.Seq2[model.Event, error]) (*model.GameState, error) {
	for evt, err := range events {
		if err != nil {
			return state, err
		}
		next, err := Apply(state, evt)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}

// Replay rebuilds a game from its complete event list
func Replay(gameID model.GameID, events []model.Event) (*model.GameState, error) {
	return Fold(model.NewGameState(gameID), events)
}

func invalid(s *model.GameState, e model.Event, format string, args ...any) error {
	return &model.InvalidTransitionError{
		Phase:     s.Phase,
		EventType: e.Type,
		Reason:    fmt.Sprintf(format, args...),
	}
}

// payloadOf extracts the concrete payload value
func payloadOf[T model.Payload](s *model.GameState, e model.Event) (T, error) {
	p, ok := e.Payload.(T)
	if !ok {
		return p, invalid(s, e, "unexpected payload %T", e.Payload)
	}
	return p, nil
}
