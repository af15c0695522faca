// Package watch keeps a node's local listeners in step with games that
// other nodes are writing.
package watch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/engine"
	"github.com/mcoot/golfcards/internal/storage"
)

// Watcher consumes bus notifications from other nodes, reconciles the
// cached state against the log, and hands the result to local listeners
type Watcher struct {
	bus    storage.Bus
	cache  storage.StateCache
	log    storage.EventLog
	nodeID model.NodeID
	logger *slog.Logger

	// staleTolerance is how many sequence numbers the cache may trail a
	// notification before the game is rebuilt from the log
	staleTolerance int64
	listeners      []model.StateListener
}

// NewWatcher creates a Watcher for nodeID
func NewWatcher(
	bus storage.Bus,
	cache storage.StateCache,
	log storage.EventLog,
	nodeID model.NodeID,
	staleTolerance int64,
	logger *slog.Logger,
) *Watcher {
	return &Watcher{
		bus:            bus,
		cache:          cache,
		log:            log,
		nodeID:         nodeID,
		staleTolerance: max(staleTolerance, 0),
		logger:         logger.With(slog.String("component", "watch")),
	}
}

// OnStateChange registers a listener for reconciled remote changes
func (w *Watcher) OnStateChange(fn model.StateListener) {
	w.listeners = append(w.listeners, fn)
}

// Run subscribes to the bus and handles notifications until ctx ends
func (w *Watcher) Run(ctx context.Context) error {
	sub, err := w.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	w.logger.Info("watching for remote state changes", slog.String("node_id", string(w.nodeID)))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			w.Handle(ctx, msg)
		}
	}
}

// Handle processes one notification
func (w *Watcher) Handle(ctx context.Context, msg model.StateChanged) {
	if msg.NodeID == w.nodeID {
		return
	}
	state, ok := w.reconcile(ctx, msg)
	if !ok {
		return
	}
	for _, fn := range w.listeners {
		fn(ctx, state)
	}
}

func (w *Watcher) reconcile(ctx context.Context, msg model.StateChanged) (*model.GameState, bool) {
	cached, err := w.cache.GetState(ctx, msg.GameID)
	switch {
	case err == nil && cached.SequenceNum+w.staleTolerance >= msg.SequenceNum:
		return cached, true
	case err != nil && !errors.Is(err, model.ErrStateNotCached):
		w.logger.Warn("state cache read failed",
			slog.String("game_id", string(msg.GameID)),
			slog.String("error", err.Error()),
		)
	}

	state, err := w.catchUp(ctx, msg.GameID, cached)
	if err != nil {
		w.logger.Error("failed to rebuild game",
			slog.String("game_id", string(msg.GameID)),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if state.SequenceNum < 0 {
		w.logger.Warn("notification for unknown game",
			slog.String("game_id", string(msg.GameID)),
			slog.String("node_id", string(msg.NodeID)),
		)
		return nil, false
	}

	if _, err := w.cache.SaveState(ctx, state); err != nil {
		w.logger.Warn("failed to cache rebuilt state",
			slog.String("game_id", string(msg.GameID)),
			slog.String("error", err.Error()),
		)
	}
	w.logger.Debug("rebuilt stale game",
		slog.String("game_id", string(msg.GameID)),
		slog.Int64("sequence_num", state.SequenceNum),
	)
	return state, true
}

// catchUp folds the log onto the cached snapshot, or replays the whole game
// when the snapshot is missing or does not fit the log
func (w *Watcher) catchUp(ctx context.Context, gameID model.GameID, cached *model.GameState) (*model.GameState, error) {
	if cached != nil && cached.GameID == gameID {
		latest, err := w.log.LatestSequence(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if cached.SequenceNum <= latest {
			state, err := engine.FoldSeq(cached, w.log.Stream(ctx, gameID, cached.SequenceNum+1))
			if err == nil {
				return state, nil
			}
			w.logger.Warn("snapshot does not fit the log, replaying",
				slog.String("game_id", string(gameID)),
				slog.Int64("sequence_num", cached.SequenceNum),
				slog.String("error", err.Error()),
			)
		} else if err := w.cache.DeleteState(ctx, gameID); err != nil {
			// Left in place it would shadow the rebuilt state
			w.logger.Warn("failed to drop snapshot ahead of log",
				slog.String("game_id", string(gameID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return engine.FoldSeq(model.NewGameState(gameID), w.log.Stream(ctx, gameID, 0))
}
