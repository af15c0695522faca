package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/golfcards/internal/api"
	"github.com/mcoot/golfcards/internal/config"
	"github.com/mcoot/golfcards/internal/factory"
	"github.com/mcoot/golfcards/internal/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	level, _ := cfg.Level()

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With(slog.String("node_id", cfg.NodeID))
	slog.SetDefault(logger)

	app, err := factory.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close error", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Rebuild cached state before taking traffic
	report, err := app.Start(ctx)
	if err != nil {
		logger.Error("startup recovery failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(report.Failed) > 0 {
		logger.Warn("some games could not be recovered", slog.Int("failed", len(report.Failed)))
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		NodeID:          model.NodeID(cfg.NodeID),
		LobbyController: app.LobbyController,
		GameController:  app.GameController,
		HubManager:      app.HubManager,
		Analytics:       app.Analytics,
	})
	server := api.NewServer(router, api.ServerConfigFor(cfg.HTTPPort), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			return
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		// Open streams hold requests until their hub closes
		app.HubManager.Close()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			return
		}
	}

	logger.Info("server stopped")
}
