package sse

import (
	"net/http"
	"time"

	"github.com/mcoot/golfcards/internal/model"
)

const (
	// Time between keepalive pings
	pingPeriod = 15 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 64

	// How long browsers wait before reconnecting, in milliseconds
	retryMillis = "3000"
)

// Client represents a connected SSE client
type Client struct {
	playerID    model.PlayerID
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a new SSE client
func NewClient(playerID model.PlayerID) *Client {
	return &Client{
		playerID:    playerID,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE streams a hub's messages to one client until the request ends.
// initial, if set, is written straight after the connected event.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, playerID model.PlayerID, initial []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := NewClient(playerID)
	if !hub.Register(client) {
		http.Error(w, "Stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	_, _ = w.Write([]byte("retry: " + retryMillis + "\n\n"))
	_, _ = w.Write(formatSSEMessage("connected", `{"status":"connected"}`))
	if initial != nil {
		_, _ = w.Write(initial)
	}
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
