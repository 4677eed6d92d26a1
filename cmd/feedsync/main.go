package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/lysyi3m/feedsync/app/cfg"
	"github.com/lysyi3m/feedsync/app/database"
	"github.com/lysyi3m/feedsync/app/feed"
	"github.com/lysyi3m/feedsync/app/tasks"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if config == nil {
		return
	}

	cfg.SetupLogger(config)
	slog.Info("Starting feedsync run", "version", config.Version)

	db, err := database.NewDB(config.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Debug("Database ready", "path", config.DBPath, "schema_version", version, "dirty", dirty)

	sources := database.NewSourceRepository(db)
	articles := database.NewArticleRepository(db)

	registry := feed.NewRegistry(config.SourcesDir)
	if err := registry.Run(); err != nil {
		slog.Error("Failed to load source registry", "error", err)
		os.Exit(1)
	}
	imported, err := registry.Import(context.Background(), sources)
	if err != nil {
		slog.Error("Failed to import sources", "error", err)
		os.Exit(1)
	}
	slog.Info("Sources imported", "count", imported, "dir", config.SourcesDir)

	pipeline, err := tasks.NewPipeline(config, sources, articles)
	if err != nil {
		slog.Error("Failed to set up pipeline", "error", err)
		os.Exit(1)
	}

	orchestrator := tasks.NewOrchestrator(sources, pipeline, config.MaxConcurrency)
	if _, err := orchestrator.Run(context.Background()); err != nil {
		slog.Error("Run aborted", "error", err)
		db.Close()
		os.Exit(1)
	}
}
