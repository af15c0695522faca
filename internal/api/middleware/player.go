package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/golfcards/internal/api/apierr"
	"github.com/mcoot/golfcards/internal/model"
)

// PlayerHeader carries the caller's player id. Authentication happens in
// front of this service; the header is trusted as given.
const PlayerHeader = "X-Player-ID"

// maxPlayerIDLength bounds the header so ids stay usable as log and cache keys
const maxPlayerIDLength = 64

type contextKey string

const playerContextKey contextKey = "player"

// Player requires a well-formed X-Player-ID header and stores it in the
// request context
func Player() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(PlayerHeader))
			if id == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			if len(id) > maxPlayerIDLength {
				apierr.WriteError(w, apierr.NewInvalidRequestError("X-Player-ID is too long"))
				return
			}
			ctx := context.WithValue(r.Context(), playerContextKey, model.PlayerID(id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPlayerID returns the caller from the request context, or "" when the
// Player middleware did not run
func GetPlayerID(ctx context.Context) model.PlayerID {
	id, _ := ctx.Value(playerContextKey).(model.PlayerID)
	return id
}

// MustGetPlayerID returns the caller or panics
func MustGetPlayerID(ctx context.Context) model.PlayerID {
	id := GetPlayerID(ctx)
	if id == "" {
		panic("no player in context - player middleware not applied?")
	}
	return id
}
