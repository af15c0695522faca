package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/storage"
)

// saveStateScript writes the state only if it is newer than the cached
// copy, and refreshes the TTL on success.
//
//	KEYS[1] state hash   ARGV[1] seq   ARGV[2] state json   ARGV[3] ttl ms
var saveStateScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'seq')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'seq', ARGV[1], 'state', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// Cache is a Redis-backed state cache
type Cache struct {
	client *redis.Client
	cfg    Config
}

// NewClient connects to Redis and verifies the connection
func NewClient(cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewCache creates a cache over an existing client
func NewCache(client *redis.Client, cfg Config) *Cache {
	return &Cache{
		client: client,
		cfg:    cfg,
	}
}

// Ensure Cache implements the interface
var _ storage.StateCache = (*Cache)(nil)

// State operations

func (c *Cache) SaveState(ctx context.Context, state *model.GameState) (bool, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return false, err
	}

	written, err := saveStateScript.Run(ctx, c.client,
		[]string{stateKey(state.GameID)},
		state.SequenceNum, data, c.cfg.StateTTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("save state %s: %w", state.GameID, err)
	}
	return written == 1, nil
}

func (c *Cache) GetState(ctx context.Context, gameID model.GameID) (*model.GameState, error) {
	data, err := c.client.HGet(ctx, stateKey(gameID), fieldState).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrStateNotCached
		}
		return nil, err
	}

	var state model.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Cache) DeleteState(ctx context.Context, gameID model.GameID) error {
	return c.client.Del(ctx, stateKey(gameID)).Err()
}

// Room operations

func (c *Cache) SaveRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, roomKey(room.RoomCode), data, c.cfg.RoomTTL).Err()
}

func (c *Cache) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	data, err := c.client.Get(ctx, roomKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Cache) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	return c.client.Del(ctx, roomKey(code)).Err()
}
