package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dandantas/tamarin/internal/config"
	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/handler"
	"github.com/dandantas/tamarin/internal/model"
	"github.com/dandantas/tamarin/internal/scheduler"
	"github.com/dandantas/tamarin/internal/service"
	"github.com/dandantas/tamarin/internal/store"
	"github.com/dandantas/tamarin/pkg/middleware"
)

const version = "1.0.0"

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	// Initialize logger
	config.InitLogger(cfg, os.Stdout)

	slog.Info("Starting Tamarin Analysis Tracker", "version", version)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Select the persistence backend
	var (
		datasetColl store.Collection[model.Dataset]
		jobColl     store.Collection[model.Job]
		vizColl     store.Collection[model.Visualization]
	)

	switch cfg.StorageBackend {
	case "mongo":
		db, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Disconnect(context.Background()); err != nil {
				slog.Error("Failed to disconnect from MongoDB", "error", err)
			}
		}()

		datasetColl = store.NewMongoCollection[model.Dataset](db, store.CollectionDatasets, cfg.MongoTimeout)
		jobColl = store.NewMongoCollection[model.Job](db, store.CollectionJobs, cfg.MongoTimeout)
		vizColl = store.NewMongoCollection[model.Visualization](db, store.CollectionVisualizations, cfg.MongoTimeout)
	default:
		datasetColl = store.NewJSONFileCollection[model.Dataset](cfg.DatasetsFile())
		jobColl = store.NewJSONFileCollection[model.Job](cfg.JobsFile())
		vizColl = store.NewJSONFileCollection[model.Visualization](cfg.VisualizationsFile())
	}

	// Initialize registries
	datasets, err := store.NewDatasetStore(datasetColl)
	if err != nil {
		slog.Error("Failed to load dataset registry", "error", err)
		os.Exit(1)
	}
	jobs, err := store.NewJobStore(jobColl)
	if err != nil {
		slog.Error("Failed to load job registry", "error", err)
		os.Exit(1)
	}
	vizzes, err := store.NewVisualizationStore(vizColl)
	if err != nil {
		slog.Error("Failed to load visualization registry", "error", err)
		os.Exit(1)
	}

	slog.Info("Registries loaded",
		"backend", cfg.StorageBackend,
		"datasets", datasets.Count(),
		"jobs", jobs.Count(),
		"visualizations", vizzes.Count(),
	)

	// Initialize the remote API client and the tracker
	client := datamonkey.NewClient(cfg.DatamonkeyBaseURL, cfg.DatamonkeyBasePath, cfg.DefaultAPITimeout)
	tracker := service.NewTracker(datasets, jobs, vizzes, client)

	// Initialize the background refresher
	refresher, err := scheduler.NewRefresher(cfg, tracker)
	if err != nil {
		slog.Error("Failed to create job refresher", "error", err)
		os.Exit(1)
	}
	refresher.Start(ctx)

	// Initialize handlers
	datasetHandler := handler.NewDatasetHandler(datasets, cfg.UploadsDir())
	jobHandler := handler.NewJobHandler(jobs, tracker)
	visualizationHandler := handler.NewVisualizationHandler(vizzes, tracker)
	methodHandler := handler.NewMethodHandler()
	healthHandler := handler.NewHealthHandler(tracker, datasets, jobs, vizzes, version)

	// Create CORS config
	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAge,
	}

	// Create router
	router := handler.NewRouter(
		datasetHandler,
		jobHandler,
		visualizationHandler,
		methodHandler,
		healthHandler,
		corsConfig,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Received shutdown signal, initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the refresher first (wait for in-flight refreshes)
	refresher.Stop(shutdownCtx)

	// Shutdown HTTP server
	slog.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Tamarin Analysis Tracker stopped")
}
