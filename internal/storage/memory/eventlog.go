package memory

import (
	"context"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/mcoot/golfcards/internal/dependencies/ids"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/storage"
)

// EventLog is an in-memory implementation of the event log
type EventLog struct {
	mu  sync.RWMutex
	ids ids.Generator

	games map[model.GameID]map[int64]model.Event
}

// NewEventLog creates a new in-memory event log
func NewEventLog(gen ids.Generator) *EventLog {
	return &EventLog{
		ids:   gen,
		games: make(map[model.GameID]map[int64]model.Event),
	}
}

// Ensure EventLog implements the interface
var _ storage.EventLog = (*EventLog)(nil)

func (l *EventLog) Append(ctx context.Context, evt model.Event) (string, error) {
	out, err := l.AppendBatch(ctx, []model.Event{evt})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// AppendBatch checks every slot and inserts under one lock, so a conflict
// leaves the log unchanged
func (l *EventLog) AppendBatch(ctx context.Context, events []model.Event) ([]string, error) {
	if err := storage.ValidateBatch(events); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	gameID := events[0].GameID
	stored := l.games[gameID]
	for _, e := range events {
		if _, ok := stored[e.SequenceNum]; ok {
			return nil, &model.ConcurrencyConflictError{GameID: gameID, SequenceNum: e.SequenceNum}
		}
	}
	if stored == nil {
		stored = make(map[int64]model.Event)
		l.games[gameID] = stored
	}

	out := make([]string, len(events))
	for i, e := range events {
		if e.ID == "" {
			e.ID = l.ids.NewID()
		}
		stored[e.SequenceNum] = e
		out[i] = e.ID
	}
	return out, nil
}

func (l *EventLog) GetEvents(ctx context.Context, gameID model.GameID, fromSeq, toSeq int64) ([]model.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var events []model.Event
	for _, seq := range l.sequences(gameID) {
		if seq < fromSeq || (toSeq >= 0 && seq > toSeq) {
			continue
		}
		events = append(events, l.games[gameID][seq])
	}
	return events, nil
}

func (l *EventLog) LatestSequence(ctx context.Context, gameID model.GameID) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seqs := l.sequences(gameID)
	if len(seqs) == 0 {
		return -1, nil
	}
	return seqs[len(seqs)-1], nil
}

func (l *EventLog) Stream(ctx context.Context, gameID model.GameID, fromSeq int64) iter.Seq2[model.Event, error] {
	return storage.Paginate(ctx, fromSeq, func(ctx context.Context, after int64, limit int) ([]model.Event, error) {
		l.mu.RLock()
		defer l.mu.RUnlock()

		var page []model.Event
		for _, seq := range l.sequences(gameID) {
			if seq <= after {
				continue
			}
			if len(page) == limit {
				break
			}
			page = append(page, l.games[gameID][seq])
		}
		return page, nil
	})
}

func (l *EventLog) ActiveGames(ctx context.Context) ([]model.GameID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var active []model.GameID
	for _, gameID := range slices.Sorted(maps.Keys(l.games)) {
		seqs := l.sequences(gameID)
		last := l.games[gameID][seqs[len(seqs)-1]]
		if !last.IsTerminal() {
			active = append(active, gameID)
		}
	}
	return active, nil
}

// sequences returns a game's stored sequence numbers in order. Callers hold the lock.
func (l *EventLog) sequences(gameID model.GameID) []int64 {
	return slices.Sorted(maps.Keys(l.games[gameID]))
}
