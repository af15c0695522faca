// Package recovery rebuilds live game state from the event log when a node
// starts, so the cache and room registry survive a restart.
package recovery

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/golfcards/internal/dependencies/clock"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/engine"
	"github.com/mcoot/golfcards/internal/storage"
)

// DefaultConcurrency is how many games are rebuilt at once when unset
const DefaultConcurrency = 8

// Mode says how a game's state was rebuilt
type Mode string

const (
	ModeFull        Mode = "full"        // Folded from the first event
	ModeIncremental Mode = "incremental" // Caught up from a cached snapshot
	ModeSkipped     Mode = "skipped"     // Game already over; nothing cached
)

// Report summarises one recovery pass
type Report struct {
	Recovered   []model.GameID
	Incremental int
	Skipped     []model.GameID
	Failed      []model.RecoveryError
	Duration    time.Duration
}

// Coordinator rebuilds cached state for every game that has not ended
type Coordinator struct {
	log         storage.EventLog
	cache       storage.StateCache
	clock       clock.Clock
	logger      *slog.Logger
	nodeID      model.NodeID
	concurrency int
}

// NewCoordinator creates a Coordinator. concurrency < 1 uses DefaultConcurrency.
func NewCoordinator(
	log storage.EventLog,
	cache storage.StateCache,
	clock clock.Clock,
	nodeID model.NodeID,
	concurrency int,
	logger *slog.Logger,
) *Coordinator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Coordinator{
		log:         log,
		cache:       cache,
		clock:       clock,
		logger:      logger.With(slog.String("component", "recovery")),
		nodeID:      nodeID,
		concurrency: concurrency,
	}
}

// Run recovers every active game. A game that fails is reported and
// skipped; only failing to list games fails the pass.
func (c *Coordinator) Run(ctx context.Context) (Report, error) {
	start := c.clock.Now()

	games, err := c.log.ActiveGames(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list active games: %w", err)
	}

	var (
		mu     sync.Mutex
		report Report
		g      errgroup.Group
	)
	g.SetLimit(c.concurrency)
	for _, gameID := range games {
		g.Go(func() error {
			_, mode, err := c.RecoverGame(ctx, gameID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failure := model.RecoveryError{GameID: gameID, Err: err}
				c.logger.Error("game recovery failed",
					slog.String("game_id", string(gameID)),
					slog.String("error", err.Error()),
				)
				report.Failed = append(report.Failed, failure)
			case mode == ModeSkipped:
				report.Skipped = append(report.Skipped, gameID)
			default:
				if mode == ModeIncremental {
					report.Incremental++
				}
				report.Recovered = append(report.Recovered, gameID)
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(report.Recovered)
	slices.Sort(report.Skipped)
	slices.SortFunc(report.Failed, func(a, b model.RecoveryError) int {
		return cmp.Compare(a.GameID, b.GameID)
	})
	report.Duration = c.clock.Now().Sub(start)

	c.logger.Info("recovery complete",
		slog.Int("recovered", len(report.Recovered)),
		slog.Int("incremental", report.Incremental),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("failed", len(report.Failed)),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// RecoverGame rebuilds one game, caches it and re-registers its room with
// this node. Running it again over the same log yields the same state.
func (c *Coordinator) RecoverGame(ctx context.Context, gameID model.GameID) (*model.GameState, Mode, error) {
	latest, err := c.log.LatestSequence(ctx, gameID)
	if err != nil {
		return nil, "", err
	}
	if latest < 0 {
		return nil, "", model.ErrGameNotFound
	}

	base, mode := c.snapshot(ctx, gameID, latest)
	state, err := engine.FoldSeq(base, c.log.Stream(ctx, gameID, base.SequenceNum+1))
	if err != nil && mode == ModeIncremental {
		c.logger.Warn("snapshot does not fit the log, replaying",
			slog.String("game_id", string(gameID)),
			slog.Int64("sequence_num", base.SequenceNum),
			slog.String("error", err.Error()),
		)
		mode = ModeFull
		state, err = engine.FoldSeq(model.NewGameState(gameID), c.log.Stream(ctx, gameID, 0))
	}
	if err != nil {
		return nil, mode, err
	}

	if state.Phase == model.PhaseGameOver {
		return state, ModeSkipped, nil
	}

	if _, err := c.cache.SaveState(ctx, state); err != nil {
		return nil, mode, fmt.Errorf("cache state: %w", err)
	}
	if err := c.registerRoom(ctx, state); err != nil {
		return nil, mode, err
	}

	c.logger.Debug("game recovered",
		slog.String("game_id", string(gameID)),
		slog.String("mode", string(mode)),
		slog.Int64("sequence_num", state.SequenceNum),
	)
	return state, mode, nil
}

// snapshot returns the cached state to resume from, or an empty state when
// the cache has nothing usable
func (c *Coordinator) snapshot(ctx context.Context, gameID model.GameID, latest int64) (*model.GameState, Mode) {
	snap, err := c.cache.GetState(ctx, gameID)
	switch {
	case err == nil && snap.GameID == gameID && snap.SequenceNum <= latest:
		return snap, ModeIncremental
	case err == nil:
		c.logger.Warn("discarding cached snapshot",
			slog.String("game_id", string(gameID)),
			slog.Int64("sequence_num", snap.SequenceNum),
			slog.Int64("latest", latest),
		)
		// A snapshot ahead of the log would block every later write
		if err := c.cache.DeleteState(ctx, gameID); err != nil {
			c.logger.Warn("failed to drop snapshot",
				slog.String("game_id", string(gameID)),
				slog.String("error", err.Error()),
			)
		}
	case !errors.Is(err, model.ErrStateNotCached):
		c.logger.Warn("state cache read failed",
			slog.String("game_id", string(gameID)),
			slog.String("error", err.Error()),
		)
	}
	return model.NewGameState(gameID), ModeFull
}

// registerRoom points the game's room at this node. A room code already
// reused by a different game is left alone.
func (c *Coordinator) registerRoom(ctx context.Context, state *model.GameState) error {
	if state.RoomCode == "" {
		return nil
	}
	room := &model.Room{
		RoomCode:  state.RoomCode,
		GameID:    state.GameID,
		CreatedAt: c.clock.Now(),
	}
	existing, err := c.cache.GetRoom(ctx, state.RoomCode)
	switch {
	case err == nil && existing.GameID != state.GameID:
		c.logger.Warn("room code taken by another game",
			slog.String("room_code", string(state.RoomCode)),
			slog.String("game_id", string(state.GameID)),
		)
		return nil
	case err == nil:
		room.CreatedAt = existing.CreatedAt
	case !errors.Is(err, model.ErrRoomNotFound):
		return fmt.Errorf("read room: %w", err)
	}
	room.HostID = state.HostID
	room.ServerNodeID = c.nodeID

	if err := c.cache.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("register room: %w", err)
	}
	return nil
}
