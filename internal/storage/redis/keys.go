package redis

import (
	"fmt"

	"github.com/mcoot/golfcards/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "golf"

// Hash fields of a cached state
const (
	fieldSeq   = "seq"
	fieldState = "state"
)

// stateKey returns the Redis key for a game's cached state hash
func stateKey(id model.GameID) string {
	return fmt.Sprintf("%s:state:%s", keyPrefix, id)
}

// roomKey returns the Redis key for a Room
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// gameChannel returns the Pub/Sub channel for a game's notifications
func gameChannel(id model.GameID) string {
	return fmt.Sprintf("%s:bus:game:%s", keyPrefix, id)
}

// gameChannelPattern matches every game channel
func gameChannelPattern() string {
	return fmt.Sprintf("%s:bus:game:*", keyPrefix)
}
