package game

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/mcoot/golfcards/internal/model"
)

// MoveRecord describes one accepted command
type MoveRecord struct {
	GameID      model.GameID
	PlayerID    model.PlayerID
	Command     string
	EventTypes  []model.EventType
	SequenceNum int64
	Phase       model.Phase
	At          time.Time
	Attempts    int
}

// Analytics tallies accepted moves. Its Handle method runs on the move
// queue's workers, off the command path.
type Analytics struct {
	mu       sync.Mutex
	commands map[string]int
	retried  int
	logger   *slog.Logger
}

// NewAnalytics creates an empty tally
func NewAnalytics(logger *slog.Logger) *Analytics {
	return &Analytics{
		commands: make(map[string]int),
		logger:   logger.With(slog.String("component", "analytics")),
	}
}

// Handle records one move
func (a *Analytics) Handle(ctx context.Context, rec MoveRecord) {
	a.mu.Lock()
	a.commands[rec.Command]++
	if rec.Attempts > 1 {
		a.retried++
	}
	a.mu.Unlock()

	a.logger.Info("move recorded",
		slog.String("game_id", string(rec.GameID)),
		slog.String("player_id", string(rec.PlayerID)),
		slog.String("command", rec.Command),
		slog.Int64("sequence_num", rec.SequenceNum),
		slog.String("phase", string(rec.Phase)),
		slog.Int("events", len(rec.EventTypes)),
		slog.Int("attempts", rec.Attempts),
	)
}

// Stats is a snapshot of the tally
type Stats struct {
	Commands map[string]int `json:"commands"`
	Retried  int            `json:"retried"`
}

// Stats returns a copy of the current tally
func (a *Analytics) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{Commands: maps.Clone(a.commands), Retried: a.retried}
}
