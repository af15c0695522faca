package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/golfcards/internal/dependencies/clock"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/storage"
)

// Cache is an in-memory state cache. Entries expire against the injected
// clock the same way Redis keys expire.
type Cache struct {
	mu    sync.RWMutex
	clock clock.Clock

	stateTTL time.Duration
	roomTTL  time.Duration

	states map[model.GameID]cacheEntry[*model.GameState]
	rooms  map[model.RoomCode]cacheEntry[*model.Room]
}

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time // Zero means no expiry
}

func (e cacheEntry[T]) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// NewCache creates a new in-memory cache. A zero TTL keeps entries forever.
func NewCache(clk clock.Clock, stateTTL, roomTTL time.Duration) *Cache {
	return &Cache{
		clock:    clk,
		stateTTL: stateTTL,
		roomTTL:  roomTTL,
		states:   make(map[model.GameID]cacheEntry[*model.GameState]),
		rooms:    make(map[model.RoomCode]cacheEntry[*model.Room]),
	}
}

// Ensure Cache implements the interface
var _ storage.StateCache = (*Cache)(nil)

func (c *Cache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.clock.Now().Add(ttl)
}

// State operations

func (c *Cache) SaveState(ctx context.Context, state *model.GameState) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.states[state.GameID]; ok && cur.live(c.clock.Now()) && cur.value.SequenceNum >= state.SequenceNum {
		return false, nil
	}
	c.states[state.GameID] = cacheEntry[*model.GameState]{
		value:     state.Clone(),
		expiresAt: c.expiry(c.stateTTL),
	}
	return true, nil
}

func (c *Cache) GetState(ctx context.Context, gameID model.GameID) (*model.GameState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.states[gameID]
	if !ok || !entry.live(c.clock.Now()) {
		return nil, model.ErrStateNotCached
	}
	return entry.value.Clone(), nil
}

func (c *Cache) DeleteState(ctx context.Context, gameID model.GameID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, gameID)
	return nil
}

// Room operations

func (c *Cache) SaveRoom(ctx context.Context, room *model.Room) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := *room
	c.rooms[room.RoomCode] = cacheEntry[*model.Room]{value: &r, expiresAt: c.expiry(c.roomTTL)}
	return nil
}

func (c *Cache) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.rooms[code]
	if !ok || !entry.live(c.clock.Now()) {
		return nil, model.ErrRoomNotFound
	}
	r := *entry.value
	return &r, nil
}

func (c *Cache) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, code)
	return nil
}
