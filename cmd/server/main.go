// Package main implements the entry point for the taskforge API server,
// which exposes task CRUD over HTTP and a WebSocket chat channel backed by
// a Gemini assistant that manages tasks through function calls.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/taskforge/taskforge-api/internal/assistant"
	"github.com/taskforge/taskforge-api/internal/config"
	"github.com/taskforge/taskforge-api/internal/platform/gemini"
	"github.com/taskforge/taskforge-api/internal/platform/logger"
	"github.com/taskforge/taskforge-api/internal/platform/postgres"
	"github.com/taskforge/taskforge-api/internal/service"
	"github.com/taskforge/taskforge-api/internal/ws"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// run wires the application together and blocks until shutdown.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	appLogger := logger.Setup(cfg.Server.LogLevel)
	appLogger.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("model", cfg.LLM.ModelName))

	ctx := context.Background()

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := runMigrations(db, appLogger); err != nil {
		return err
	}

	hub := ws.NewHub(appLogger)
	hub.Run()
	defer hub.Shutdown()

	taskStore := postgres.NewTaskStore(db)
	taskService := service.NewTaskService(db, taskStore, hub, appLogger)

	toolbox := assistant.NewToolbox(taskService, appLogger)
	asst, err := gemini.NewAssistant(ctx, appLogger, cfg.LLM, toolbox)
	if err != nil {
		return err
	}

	router := setupRouter(taskService, hub, asst, appLogger)
	return startHTTPServer(ctx, cfg.Server, router, appLogger)
}
