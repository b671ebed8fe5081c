package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dandantas/tamarin/internal/config"
	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/mcptools"
	"github.com/dandantas/tamarin/internal/model"
	"github.com/dandantas/tamarin/internal/scheduler"
	"github.com/dandantas/tamarin/internal/service"
	"github.com/dandantas/tamarin/internal/store"
)

const version = "1.0.0"

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	// Stdout carries the MCP protocol, so logs go to stderr
	config.InitLogger(cfg, os.Stderr)

	slog.Info("Starting Tamarin MCP server", "version", version)

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

	// Initialize the remote API client and the tracker
	client := datamonkey.NewClient(cfg.DatamonkeyBaseURL, cfg.DatamonkeyBasePath, cfg.DefaultAPITimeout)
	tracker := service.NewTracker(datasets, jobs, vizzes, client)

	// The refresher keeps pending jobs moving while an agent session is open
	refresher, err := scheduler.NewRefresher(cfg, tracker)
	if err != nil {
		slog.Error("Failed to create job refresher", "error", err)
		os.Exit(1)
	}
	refresher.Start(ctx)
	defer refresher.Stop(context.Background())

	// Build the MCP server and register the tool surface
	mcpServer := server.NewMCPServer(
		"tamarin-mcp",
		version,
		server.WithToolCapabilities(true),
	)

	mcptools.RegisterAnalysisTools(mcpServer, tracker)
	mcptools.RegisterRegistryTools(mcpServer, tracker, datasets, jobs, vizzes)

	slog.Info("Serving MCP over stdio", "backend", cfg.StorageBackend)
	if err := server.ServeStdio(mcpServer); err != nil {
		slog.Error("MCP server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Tamarin MCP server stopped")
}
