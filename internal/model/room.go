package model

import "time"

// RoomCode is a human-readable identifier for joining a game
type RoomCode string

// NodeID identifies a server process
type NodeID string

// Room is cache-only metadata linking a room code to its game and the node
// currently serving it. It is never authoritative.
type Room struct {
	RoomCode     RoomCode  `json:"room_code"`
	GameID       GameID    `json:"game_id"`
	HostID       PlayerID  `json:"host_id"`
	ServerNodeID NodeID    `json:"server_node_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// StateChanged is the cross-node invalidation hint published after a cache
// write. Subscribers must re-read the cache rather than trust it as state.
type StateChanged struct {
	GameID      GameID   `json:"game_id"`
	RoomCode    RoomCode `json:"room_code,omitempty"`
	SequenceNum int64    `json:"sequence_num"`
	NodeID      NodeID   `json:"node_id"`
}
