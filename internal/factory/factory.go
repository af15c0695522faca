package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mcoot/golfcards/internal/config"
	"github.com/mcoot/golfcards/internal/dependencies/clock"
	"github.com/mcoot/golfcards/internal/dependencies/ids"
	"github.com/mcoot/golfcards/internal/dependencies/random"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/game"
	"github.com/mcoot/golfcards/internal/services/lobby"
	"github.com/mcoot/golfcards/internal/services/recovery"
	"github.com/mcoot/golfcards/internal/services/watch"
	"github.com/mcoot/golfcards/internal/services/worker"
	"github.com/mcoot/golfcards/internal/sse"
	"github.com/mcoot/golfcards/internal/storage"
	"github.com/mcoot/golfcards/internal/storage/memory"
	redisstorage "github.com/mcoot/golfcards/internal/storage/redis"
	"github.com/mcoot/golfcards/internal/storage/sqlite"
)

// App contains all wired application components
type App struct {
	Config config.Config
	Logger *slog.Logger

	// Storage
	EventLog storage.EventLog
	Cache    storage.StateCache
	Bus      storage.Bus

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	IDs    ids.Generator

	// Services
	Analytics       *game.Analytics
	Moves           *worker.Queue[game.MoveRecord]
	GameController  *game.Controller
	LobbyController *lobby.Controller
	Recovery        *recovery.Coordinator
	Watcher         *watch.Watcher
	HubManager      *sse.HubManager
	Broadcaster     *sse.Broadcaster

	closers []io.Closer
}

// dependencies are the pieces New builds from config and tests supply directly
type dependencies struct {
	log    storage.EventLog
	cache  storage.StateCache
	bus    storage.Bus
	clock  clock.Clock
	random random.Random
	ids    ids.Generator
}

// New creates a new application with all dependencies wired
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	deps := dependencies{
		clock:  clock.New(),
		random: random.New(),
		ids:    ids.New(),
	}
	var closers []io.Closer
	fail := func(err error) (*App, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	switch cfg.EventLog {
	case config.BackendMemory, "":
		deps.log = memory.NewEventLog(deps.ids)
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, deps.ids)
		if err != nil {
			return fail(fmt.Errorf("open event log: %w", err))
		}
		closers = append(closers, store)
		deps.log = store
	default:
		return fail(fmt.Errorf("invalid event log backend %q", cfg.EventLog))
	}

	switch cfg.Cache {
	case config.BackendMemory, "":
		deps.cache = memory.NewCache(deps.clock, cfg.StateTTL, cfg.RoomTTL)
		deps.bus = memory.NewBus(logger)
	case config.BackendRedis:
		client, err := newRedisClient(cfg)
		if err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		closers = append(closers, client)
		deps.cache = redisstorage.NewCache(client, redisConfig(cfg))
		deps.bus = redisstorage.NewBus(client, logger)
	default:
		return fail(fmt.Errorf("invalid cache backend %q", cfg.Cache))
	}

	app := newWithDependencies(cfg, deps, logger)
	app.closers = closers
	return app, nil
}

func redisConfig(cfg config.Config) redisstorage.Config {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = cfg.RedisURL
	if cfg.RedisPoolSize > 0 {
		redisCfg.PoolSize = cfg.RedisPoolSize
	}
	if cfg.StateTTL > 0 {
		redisCfg.StateTTL = cfg.StateTTL
	}
	if cfg.RoomTTL > 0 {
		redisCfg.RoomTTL = cfg.RoomTTL
	}
	return redisCfg
}

func newRedisClient(cfg config.Config) (*goredis.Client, error) {
	return redisstorage.NewClient(redisConfig(cfg))
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(cfg config.Config, deps dependencies, logger *slog.Logger) *App {
	nodeID := model.NodeID(cfg.NodeID)

	analytics := game.NewAnalytics(logger)
	moves := worker.NewQueue(cfg.AnalyticsQueueSize, cfg.AnalyticsWorkers, analytics.Handle, logger)

	gameController := game.NewController(
		game.Config{NodeID: nodeID, AppendRetries: cfg.AppendRetries},
		deps.log, deps.cache, deps.bus, moves,
		deps.clock, deps.random, deps.ids, logger,
	)
	lobbyController := lobby.NewController(deps.cache, gameController, deps.clock, deps.random, nodeID, logger)
	coordinator := recovery.NewCoordinator(deps.log, deps.cache, deps.clock, nodeID, cfg.RecoveryConcurrency, logger)
	watcher := watch.NewWatcher(deps.bus, deps.cache, deps.log, nodeID, cfg.StaleTolerance, logger)

	hubManager := sse.NewHubManager(logger)
	broadcaster := sse.NewBroadcaster(hubManager, logger)
	gameController.OnStateChange(broadcaster.StateChanged)
	watcher.OnStateChange(broadcaster.StateChanged)

	return &App{
		Config:          cfg,
		Logger:          logger,
		EventLog:        deps.log,
		Cache:           deps.cache,
		Bus:             deps.bus,
		Clock:           deps.clock,
		Random:          deps.random,
		IDs:             deps.ids,
		Analytics:       analytics,
		Moves:           moves,
		GameController:  gameController,
		LobbyController: lobbyController,
		Recovery:        coordinator,
		Watcher:         watcher,
		HubManager:      hubManager,
		Broadcaster:     broadcaster,
	}
}

// Start runs a recovery pass and then starts the watcher in the
// background. The watcher stops when ctx ends.
func (a *App) Start(ctx context.Context) (recovery.Report, error) {
	report, err := a.Recovery.Run(ctx)
	if err != nil {
		return report, err
	}
	go func() {
		if err := a.Watcher.Run(ctx); err != nil {
			a.Logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()
	if every := a.Config.SSESweepInterval; every > 0 {
		go a.HubManager.Sweep(ctx, every)
	}
	return report, nil
}

// Close drains background work and releases storage connections
func (a *App) Close() error {
	a.Moves.Close()
	a.HubManager.Close()

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
