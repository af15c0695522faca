package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/golfcards/internal/api/handler"
	"github.com/mcoot/golfcards/internal/api/middleware"
	"github.com/mcoot/golfcards/internal/api/response"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/game"
	"github.com/mcoot/golfcards/internal/services/lobby"
	"github.com/mcoot/golfcards/internal/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	NodeID          model.NodeID
	LobbyController lobby.ControllerInterface
	GameController  *game.Controller
	HubManager      *sse.HubManager
	Analytics       *game.Analytics
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	lobbyHandler := handler.NewLobbyHandler(cfg.LobbyController)
	gameHandler := handler.NewGameHandler(cfg.GameController, cfg.HubManager)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	// Read-only routes (no player id required)
	api.HandleFunc("/health", healthHandler(cfg.NodeID)).Methods(http.MethodGet)
	api.HandleFunc("/stats", statsHandler(cfg.Analytics)).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}", lobbyHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}/events", gameHandler.Events).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}/stream", gameHandler.Stream).Methods(http.MethodGet)

	// Room routes
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(middleware.Player())
	rooms.HandleFunc("", lobbyHandler.Create).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}", lobbyHandler.Close).Methods(http.MethodDelete)
	rooms.HandleFunc("/{code}/join", lobbyHandler.Join).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/leave", lobbyHandler.Leave).Methods(http.MethodPost)

	// Game commands
	games := api.PathPrefix("/games/{id}").Subrouter()
	games.Use(middleware.Player())
	games.HandleFunc("/start", gameHandler.Start).Methods(http.MethodPost)
	games.HandleFunc("/next-round", gameHandler.NextRound).Methods(http.MethodPost)
	games.HandleFunc("/flip-initial", gameHandler.InitialFlip).Methods(http.MethodPost)
	games.HandleFunc("/draw", gameHandler.Draw).Methods(http.MethodPost)
	games.HandleFunc("/swap", gameHandler.Swap).Methods(http.MethodPost)
	games.HandleFunc("/discard", gameHandler.Discard).Methods(http.MethodPost)
	games.HandleFunc("/flip", gameHandler.Flip).Methods(http.MethodPost)
	games.HandleFunc("/skip-flip", gameHandler.SkipFlip).Methods(http.MethodPost)
	games.HandleFunc("/flip-action", gameHandler.FlipAction).Methods(http.MethodPost)
	games.HandleFunc("/knock", gameHandler.Knock).Methods(http.MethodPost)

	return r
}

func healthHandler(nodeID model.NodeID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, response.Health{Status: "ok", NodeID: string(nodeID)})
	}
}

func statsHandler(analytics *game.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if analytics == nil {
			response.JSON(w, http.StatusOK, game.Stats{Commands: map[string]int{}})
			return
		}
		response.JSON(w, http.StatusOK, analytics.Stats())
	}
}
