// Package sse streams game state to browsers as server-sent events
package sse

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/golfcards/internal/model"
)

// broadcastBuffer is how many messages a hub holds before dropping
const broadcastBuffer = 256

// Hub fans one game's messages out to its watchers. Only Run touches the
// client set's membership; the lock lets ClientCount read it.
type Hub struct {
	gameID  model.GameID
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger

	join      chan *Client
	leave     chan *Client
	messages  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a Hub for a game. Call Run to start it.
func NewHub(gameID model.GameID, logger *slog.Logger) *Hub {
	return &Hub{
		gameID:   gameID,
		clients:  make(map[*Client]struct{}),
		logger:   logger.With(slog.String("game_id", string(gameID))),
		join:     make(chan *Client),
		leave:    make(chan *Client),
		messages: make(chan []byte, broadcastBuffer),
		done:     make(chan struct{}),
	}
}

// Run serves joins, leaves and messages until Close
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.join:
			h.add(c)
		case c := <-h.leave:
			h.remove(c)
		case msg := <-h.messages:
			h.fanOut(msg)
		case <-h.done:
			h.disconnectAll()
			return
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("sse client registered",
		slog.String("player_id", string(c.playerID)),
		slog.Int("total_clients", n))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Info("sse client unregistered",
			slog.String("player_id", string(c.playerID)),
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int("total_clients", n))
	}
}

// fanOut never blocks on a slow client; its copy of msg is dropped instead
func (h *Hub) fanOut(msg []byte) {
	h.mu.RLock()
	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			dropped++
		}
	}
	total := len(h.clients)
	h.mu.RUnlock()
	if dropped > 0 {
		h.logger.Warn("sse broadcast partial failure",
			slog.Int("sent", total-dropped),
			slog.Int("dropped", dropped))
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
	}
	clear(h.clients)
	h.mu.Unlock()
	h.logger.Debug("sse hub stopped", slog.Int("disconnected_clients", n))
}

// Register adds a client to the hub. It reports false once the hub is closed.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.join <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.leave <- c:
	case <-h.done:
	}
}

// Broadcast queues an already formatted message for every client
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.messages <- msg:
	default:
		h.logger.Warn("sse broadcast dropped, hub buffer full")
	}
}

// Send formats and broadcasts a named event
func (h *Hub) Send(event, data string) {
	h.Broadcast(formatSSEMessage(event, data))
}

// Close stops the hub and disconnects its clients
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// formatSSEMessage renders one event; every line of data gets its own
// "data: " field
func formatSSEMessage(event, data string) []byte {
	var b strings.Builder
	b.WriteString("event: " + event + "\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// HubManager owns one hub per watched game
type HubManager struct {
	mu     sync.Mutex
	hubs   map[model.GameID]*Hub
	logger *slog.Logger
}

// NewHubManager creates an empty HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.GameID]*Hub),
		logger: logger.With(slog.String("component", "sse")),
	}
}

// GetOrCreateHub returns the game's running hub, starting one if needed
func (m *HubManager) GetOrCreateHub(gameID model.GameID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	hub, ok := m.hubs[gameID]
	if !ok {
		hub = NewHub(gameID, m.logger)
		m.hubs[gameID] = hub
		go hub.Run()
	}
	return hub
}

// GetHub returns the game's hub, or nil when nobody is watching
func (m *HubManager) GetHub(gameID model.GameID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hubs[gameID]
}

// Prune closes hubs whose watchers have all gone and reports how many
func (m *HubManager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, hub := range m.hubs {
		if hub.ClientCount() > 0 {
			continue
		}
		hub.Close()
		delete(m.hubs, id)
		removed++
	}
	if removed > 0 {
		m.logger.Info("sse empty hubs cleaned up", slog.Int("removed", removed))
	}
	return removed
}

// Sweep prunes empty hubs every interval until ctx ends
func (m *HubManager) Sweep(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Prune()
		}
	}
}

// Close shuts down every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
}
