package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mcoot/golfcards/internal/api/apierr"
)

// Recovery turns a panicking handler into a JSON 500 and logs the stack
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						slog.Any("error", err),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("player_id", r.Header.Get(PlayerHeader)),
					)
					apierr.WriteError(w, apierr.NewInternalError())
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
