package storage

import (
	"context"
	"iter"

	"github.com/mcoot/golfcards/internal/model"
)

// StreamPageSize is how many events Stream reads per page
const StreamPageSize = 256

// EventLog is the durable, append-only source of truth for every game.
// At most one event exists per (game_id, sequence_num).
type EventLog interface {
	// Append stores a single event and returns its id. A second event at the
	// same slot fails with *model.ConcurrencyConflictError.
	Append(ctx context.Context, evt model.Event) (string, error)

	// AppendBatch stores contiguous events for one game atomically
	AppendBatch(ctx context.Context, events []model.Event) ([]string, error)

	// GetEvents returns events in [fromSeq, toSeq] ascending. toSeq < 0 reads to the end.
	GetEvents(ctx context.Context, gameID model.GameID, fromSeq, toSeq int64) ([]model.Event, error)

	// LatestSequence returns the highest stored sequence, or -1 for an unknown game
	LatestSequence(ctx context.Context, gameID model.GameID) (int64, error)

	// Stream lazily yields events from fromSeq onward, one page at a time
	Stream(ctx context.Context, gameID model.GameID, fromSeq int64) iter.Seq2[model.Event, error]

	// ActiveGames lists games whose last event is not terminal
	ActiveGames(ctx context.Context) ([]model.GameID, error)
}

// StateCache holds the latest folded state per game and room metadata.
// It is never authoritative and may be lost at any time.
type StateCache interface {
	// SaveState writes state only when its sequence is higher than the
	// cached copy's; equal or lower writes are discarded. It reports whether
	// the write was accepted.
	SaveState(ctx context.Context, state *model.GameState) (bool, error)
	GetState(ctx context.Context, gameID model.GameID) (*model.GameState, error)
	DeleteState(ctx context.Context, gameID model.GameID) error

	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	DeleteRoom(ctx context.Context, code model.RoomCode) error
}

// Bus fans out state change notifications between nodes
type Bus interface {
	Publish(ctx context.Context, msg model.StateChanged) error
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is a live feed of notifications. The channel closes after
// Close or when the subscribing context ends.
type Subscription interface {
	C() <-chan model.StateChanged
	Close() error
}

// ValidateBatch checks that events belong to one game and have contiguous
// sequence numbers
func ValidateBatch(events []model.Event) error {
	if len(events) == 0 {
		return model.ErrInvalidBatch
	}
	first := events[0]
	for i, e := range events {
		if e.GameID != first.GameID || e.SequenceNum != first.SequenceNum+int64(i) {
			return model.ErrInvalidBatch
		}
	}
	return nil
}

// PageFunc reads up to limit events with sequence numbers greater than after
type PageFunc func(ctx context.Context, after int64, limit int) ([]model.Event, error)

// Paginate turns a page reader into a finite event stream using keyset
// pagination on sequence_num. The first error is yielded and ends the stream.
func Paginate(ctx context.Context, fromSeq int64, page PageFunc) iter.Seq2[model.Event, error] {
	return func(yield func(model.Event, error) bool) {
		after := fromSeq - 1
		for {
			if err := ctx.Err(); err != nil {
				yield(model.Event{}, err)
				return
			}
			events, err := page(ctx, after, StreamPageSize)
			if err != nil {
				yield(model.Event{}, err)
				return
			}
			for _, e := range events {
				if !yield(e, nil) {
					return
				}
				after = e.SequenceNum
			}
			if len(events) < StreamPageSize {
				return
			}
		}
	}
}
