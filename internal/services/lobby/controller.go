package lobby

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/golfcards/internal/dependencies/clock"
	"github.com/mcoot/golfcards/internal/dependencies/random"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/game"
	"github.com/mcoot/golfcards/internal/storage"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 4
	// RoomCodeAlphabet is the characters used in room codes (avoid confusing chars)
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// maxCodeAttempts bounds the search for an unused room code
	maxCodeAttempts = 10
)

// Controller maps room codes onto games. Rooms live only in the state
// cache; the game behind a room lives in the event log.
type Controller struct {
	cache  storage.StateCache
	games  *game.Controller
	clock  clock.Clock
	random random.Random
	nodeID model.NodeID
	logger *slog.Logger
}

// NewController creates a new lobby Controller
func NewController(
	cache storage.StateCache,
	games *game.Controller,
	clock clock.Clock,
	random random.Random,
	nodeID model.NodeID,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		cache:  cache,
		games:  games,
		clock:  clock,
		random: random,
		nodeID: nodeID,
		logger: logger.With(slog.String("component", "lobby")),
	}
}

// CreateRoom opens a game under a fresh room code with host seated
func (c *Controller) CreateRoom(ctx context.Context, host model.PlayerID, name string, options model.HouseRules) (*model.Room, *model.GameState, error) {
	code, err := c.newCode(ctx)
	if err != nil {
		return nil, nil, err
	}

	state, err := c.games.CreateGame(ctx, code, host, name, options)
	if err != nil {
		return nil, nil, err
	}

	room := &model.Room{
		RoomCode:     code,
		GameID:       state.GameID,
		HostID:       host,
		ServerNodeID: c.nodeID,
		CreatedAt:    c.clock.Now(),
	}
	if err := c.cache.SaveRoom(ctx, room); err != nil {
		return nil, nil, err
	}

	c.logger.Info("room created",
		slog.String("room_code", string(code)),
		slog.String("game_id", string(state.GameID)),
		slog.String("player_id", string(host)),
	)
	return room, state, nil
}

func (c *Controller) newCode(ctx context.Context) (model.RoomCode, error) {
	for range maxCodeAttempts {
		code := model.RoomCode(c.random.String(RoomCodeLength, RoomCodeAlphabet))
		_, err := c.cache.GetRoom(ctx, code)
		if errors.Is(err, model.ErrRoomNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", model.ErrRoomCodeExists
}

// GetRoom retrieves a room by code
func (c *Controller) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return c.cache.GetRoom(ctx, code)
}

// JoinRoom seats a player in the room's game
func (c *Controller) JoinRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID, name string, isCPU bool) (*model.GameState, error) {
	room, err := c.cache.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.games.JoinGame(ctx, room.GameID, playerID, name, isCPU)
}

// LeaveRoom removes a player from the room's game. The room follows the
// game's host, and closes once nobody is left.
func (c *Controller) LeaveRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (*model.GameState, error) {
	room, err := c.cache.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	state, err := c.games.LeaveGame(ctx, room.GameID, playerID)
	if err != nil {
		return nil, err
	}

	if len(state.Players) == 0 {
		abandoned, err := c.drop(ctx, room, playerID, model.AbandonRoomEmpty)
		if err != nil {
			return nil, err
		}
		return abandoned, nil
	}
	if state.HostID != room.HostID {
		room.HostID = state.HostID
		if err := c.cache.SaveRoom(ctx, room); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// CloseRoom abandons the room's game and removes the room and its cached
// state. Only the host may close a room.
func (c *Controller) CloseRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error {
	room, err := c.cache.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	state, err := c.games.GetState(ctx, room.GameID)
	if err != nil {
		return err
	}
	if state.HostID != playerID {
		return model.ErrNotHost
	}
	_, err = c.drop(ctx, room, playerID, model.AbandonRoomClosed)
	return err
}

// drop ends the game in the log before removing the room, so recovery never
// brings a closed room back.
func (c *Controller) drop(ctx context.Context, room *model.Room, playerID model.PlayerID, reason string) (*model.GameState, error) {
	state, err := c.games.AbandonGame(ctx, room.GameID, playerID, reason)
	if err != nil {
		return nil, err
	}
	if err := c.cache.DeleteRoom(ctx, room.RoomCode); err != nil {
		return nil, err
	}
	if err := c.cache.DeleteState(ctx, room.GameID); err != nil {
		return nil, err
	}
	c.logger.Info("room closed",
		slog.String("room_code", string(room.RoomCode)),
		slog.String("game_id", string(room.GameID)),
		slog.String("reason", reason),
	)
	return state, nil
}

// ControllerInterface is the lobby surface used by the HTTP handlers
type ControllerInterface interface {
	CreateRoom(ctx context.Context, host model.PlayerID, name string, options model.HouseRules) (*model.Room, *model.GameState, error)
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	JoinRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID, name string, isCPU bool) (*model.GameState, error)
	LeaveRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (*model.GameState, error)
	CloseRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error
}

var _ ControllerInterface = (*Controller)(nil)
