package game

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/golfcards/internal/dependencies/clock"
	"github.com/mcoot/golfcards/internal/dependencies/ids"
	"github.com/mcoot/golfcards/internal/dependencies/random"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/engine"
	"github.com/mcoot/golfcards/internal/services/scoring"
	"github.com/mcoot/golfcards/internal/services/worker"
	"github.com/mcoot/golfcards/internal/storage"
)

const (
	// MinPlayers is the fewest seated players a game can start with
	MinPlayers = 2
	// MaxPlayers is the most players a table seats
	MaxPlayers = 6
	// DefaultAppendRetries bounds reload-and-retry after a lost append race
	DefaultAppendRetries = 3
)

// Config holds the controller's tunables
type Config struct {
	NodeID        model.NodeID
	AppendRetries int
}

// Controller validates player commands against the current state, turns
// them into events and commits them to the event log. It is the only
// writer of game events.
type Controller struct {
	log    storage.EventLog
	cache  storage.StateCache
	bus    storage.Bus
	moves  *worker.Queue[MoveRecord]
	clock  clock.Clock
	random random.Random
	ids    ids.Generator
	logger *slog.Logger

	nodeID        model.NodeID
	appendRetries int
	listeners     []model.StateListener
}

// NewController creates a new game Controller. moves may be nil to
// disable move analytics.
func NewController(
	cfg Config,
	log storage.EventLog,
	cache storage.StateCache,
	bus storage.Bus,
	moves *worker.Queue[MoveRecord],
	clock clock.Clock,
	random random.Random,
	ids ids.Generator,
	logger *slog.Logger,
) *Controller {
	retries := cfg.AppendRetries
	if retries < 1 {
		retries = DefaultAppendRetries
	}
	return &Controller{
		log:           log,
		cache:         cache,
		bus:           bus,
		moves:         moves,
		clock:         clock,
		random:        random,
		ids:           ids,
		logger:        logger.With(slog.String("component", "game")),
		nodeID:        cfg.NodeID,
		appendRetries: retries,
	}
}

// OnStateChange registers a listener called after every committed command
func (c *Controller) OnStateChange(fn model.StateListener) {
	c.listeners = append(c.listeners, fn)
}

// batch accumulates the events of one command, applying each to a working
// state as it is added so later decisions see its effect
type batch struct {
	state  *model.GameState
	events []model.Event
	at     time.Time
}

func (b *batch) add(player model.PlayerID, payload model.Payload) error {
	evt := model.NewEvent(b.state.GameID, b.state.SequenceNum+1, player, b.at, payload)
	next, err := engine.Apply(b.state, evt)
	if err != nil {
		return err
	}
	b.state = next
	b.events = append(b.events, evt)
	return nil
}

// finishRound appends scoring once the round is over, and the game result
// after the last round
func (b *batch) finishRound() error {
	s := b.state
	if s.Phase != model.PhaseRoundOver || s.RoundScored {
		return nil
	}
	result := engine.ScoreRound(s)
	if err := b.add("", model.RoundEndedPayload{
		Round:    s.CurrentRound,
		Scores:   result.Scores,
		WinnerID: result.WinnerID,
	}); err != nil {
		return err
	}
	if b.state.CurrentRound < b.state.TotalRounds {
		return nil
	}
	totals := b.state.TotalScores()
	return b.add("", model.GameEndedPayload{
		FinalScores: totals,
		WinnerID:    scoring.Winner(totals),
	})
}

// decision adds a command's events to the batch, or rejects the command
type decision func(b *batch) error

// execute runs the command pipeline: load, decide, append, cache, notify.
// A lost append race reloads from the log and decides again.
func (c *Controller) execute(ctx context.Context, gameID model.GameID, player model.PlayerID, command string, decide decision) (*model.GameState, error) {
	for attempt := 1; ; attempt++ {
		state, err := c.load(ctx, gameID)
		if err != nil {
			return nil, err
		}

		b := &batch{state: state, at: c.clock.Now()}
		if err := decide(b); err != nil {
			return nil, err
		}
		if err := b.finishRound(); err != nil {
			return nil, err
		}
		if len(b.events) == 0 {
			return state, nil
		}

		_, err = c.log.AppendBatch(ctx, b.events)
		if errors.Is(err, model.ErrConcurrencyConflict) && attempt < c.appendRetries {
			c.logger.Warn("append conflict, retrying",
				slog.String("game_id", string(gameID)),
				slog.String("command", command),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			c.logger.Error("failed to append events",
				slog.String("game_id", string(gameID)),
				slog.String("command", command),
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		c.committed(ctx, b.state)
		c.recordMove(command, player, b, attempt)
		return b.state, nil
	}
}

// load returns the current state: the cached snapshot caught up with
// anything newer in the log, or a full replay when nothing usable is cached.
// A snapshot the log does not reach is dropped; appending after it would
// leave a gap in the log.
func (c *Controller) load(ctx context.Context, gameID model.GameID) (*model.GameState, error) {
	latest, err := c.log.LatestSequence(ctx, gameID)
	if err != nil {
		return nil, err
	}

	base := model.NewGameState(gameID)
	cached, err := c.cache.GetState(ctx, gameID)
	switch {
	case err == nil && cached.GameID == gameID && cached.SequenceNum <= latest:
		base = cached
	case err == nil:
		c.logger.Warn("cached state ahead of log, dropping",
			slog.String("game_id", string(gameID)),
			slog.Int64("sequence_num", cached.SequenceNum),
			slog.Int64("latest", latest),
		)
		if err := c.cache.DeleteState(ctx, gameID); err != nil {
			c.logger.Warn("failed to drop cached state",
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

	state, err := engine.FoldSeq(base, c.log.Stream(ctx, gameID, base.SequenceNum+1))
	if err != nil && base.SequenceNum >= 0 {
		// The snapshot does not line up with the log; rebuild from scratch
		c.logger.Warn("cached state unusable, replaying",
			slog.String("game_id", string(gameID)),
			slog.Int64("sequence_num", base.SequenceNum),
			slog.String("error", err.Error()),
		)
		state, err = engine.FoldSeq(model.NewGameState(gameID), c.log.Stream(ctx, gameID, 0))
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// committed refreshes the cache and tells everyone else. Failures here
// never fail the command: the log already holds the truth.
func (c *Controller) committed(ctx context.Context, state *model.GameState) {
	if ok, err := c.cache.SaveState(ctx, state); err != nil {
		c.logger.Warn("failed to cache state",
			slog.String("game_id", string(state.GameID)),
			slog.String("error", err.Error()),
		)
	} else if !ok {
		c.logger.Debug("cache holds newer state",
			slog.String("game_id", string(state.GameID)),
			slog.Int64("sequence_num", state.SequenceNum),
		)
	}

	msg := model.StateChanged{
		GameID:      state.GameID,
		RoomCode:    state.RoomCode,
		SequenceNum: state.SequenceNum,
		NodeID:      c.nodeID,
	}
	if err := c.bus.Publish(ctx, msg); err != nil {
		c.logger.Warn("failed to publish state change",
			slog.String("game_id", string(state.GameID)),
			slog.String("error", err.Error()),
		)
	}

	for _, fn := range c.listeners {
		fn(ctx, state)
	}
}

func (c *Controller) recordMove(command string, player model.PlayerID, b *batch, attempts int) {
	if c.moves == nil {
		return
	}
	types := make([]model.EventType, len(b.events))
	for i, e := range b.events {
		types[i] = e.Type
	}
	record := MoveRecord{
		GameID:      b.state.GameID,
		PlayerID:    player,
		Command:     command,
		EventTypes:  types,
		SequenceNum: b.state.SequenceNum,
		Phase:       b.state.Phase,
		At:          b.at,
		Attempts:    attempts,
	}
	if err := c.moves.TrySubmit(record); err != nil {
		c.logger.Warn("move analytics dropped",
			slog.String("game_id", string(record.GameID)),
			slog.String("error", err.Error()),
		)
	}
}

// GetState returns the current state of a game
func (c *Controller) GetState(ctx context.Context, gameID model.GameID) (*model.GameState, error) {
	state, err := c.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.SequenceNum < 0 {
		return nil, model.ErrGameNotFound
	}
	return state, nil
}

// GetEvents returns a game's events in [fromSeq, toSeq]; toSeq < 0 reads to the end
func (c *Controller) GetEvents(ctx context.Context, gameID model.GameID, fromSeq, toSeq int64) ([]model.Event, error) {
	latest, err := c.log.LatestSequence(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if latest < 0 {
		return nil, model.ErrGameNotFound
	}
	return c.log.GetEvents(ctx, gameID, fromSeq, toSeq)
}
