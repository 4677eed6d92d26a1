package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/feedsync/app/api"
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
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Info("Starting feedsync server", "version", config.Version)

	db, err := database.NewDB(config.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if _, _, err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	sources := database.NewSourceRepository(db)
	articles := database.NewArticleRepository(db)

	registry := feed.NewRegistry(config.SourcesDir)
	if err := registry.Run(); err != nil {
		slog.Error("Failed to load source registry", "error", err)
		os.Exit(1)
	}
	if imported, err := registry.Import(context.Background(), sources); err != nil {
		slog.Error("Failed to import sources", "error", err)
		os.Exit(1)
	} else {
		slog.Info("Sources imported", "count", imported, "dir", config.SourcesDir)
	}

	pipeline, err := tasks.NewPipeline(config, sources, articles)
	if err != nil {
		slog.Error("Failed to set up pipeline", "error", err)
		os.Exit(1)
	}

	orchestrator := tasks.NewOrchestrator(sources, pipeline, config.MaxConcurrency)
	scheduler := tasks.NewScheduler(orchestrator, config.SchedulerInterval)
	scheduler.Start()

	handler := api.NewHandler(registry, sources, articles, scheduler)
	router := api.NewServer(handler, config.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", config.Port, "interval", config.SchedulerInterval)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()
	slog.Info("Server shutdown complete")
}
