package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quaystone/threadline/internal/answer"
	"github.com/quaystone/threadline/internal/api"
	"github.com/quaystone/threadline/internal/config"
	"github.com/quaystone/threadline/internal/events"
	"github.com/quaystone/threadline/internal/ingest"
	"github.com/quaystone/threadline/internal/provider"
	"github.com/quaystone/threadline/internal/store"
	"github.com/quaystone/threadline/internal/thread"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("threadline starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Provider
	prov, err := provider.New(cfg.Provider, cfg.ProviderSettings(), slog.Default())
	if err != nil {
		slog.Error("failed to build provider", "error", err)
		os.Exit(1)
	}
	if !prov.Available(ctx) {
		slog.Warn("provider not reachable at startup", "provider", prov.Name())
	}
	slog.Info("provider ready", "provider", prov.Name(), "dimension", prov.Dimension())

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL, prov, slog.Default())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected")

	// NATS (optional — the pipeline works without event notifications)
	var eventsClient *events.Client
	if cfg.NatsURL != "" {
		eventsClient, err = events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without event notifications")
	}

	// Pipeline
	detector := thread.NewDetector(cfg.DetectorConfig(), slog.Default())
	var publisher ingest.Publisher
	if eventsClient != nil {
		publisher = eventsClient
	}
	orchestrator := ingest.New(db, detector, publisher, slog.Default())

	answerer := answer.New(db, prov, cfg.SearchAlpha, slog.Default())

	// Uploaded exports trigger an incremental run.
	if eventsClient != nil {
		err := eventsClient.Subscribe(events.SubjectExportUploaded, func(subject string, data []byte) {
			var ev events.ExportUploaded
			if err := json.Unmarshal(data, &ev); err != nil {
				slog.Warn("bad upload event payload", "error", err)
				return
			}
			slog.Info("export uploaded, starting incremental ingestion", "path", ev.Path)

			opts := cfg.IngestOptions()
			opts.Incremental = true

			runCtx, cancelRun := context.WithTimeout(ctx, 2*time.Hour)
			defer cancelRun()
			if _, err := orchestrator.Run(runCtx, ev.Path, opts); err != nil {
				slog.Error("event-triggered ingestion failed", "error", err)
			}
		})
		if err != nil {
			slog.Error("failed to subscribe to upload events", "error", err)
			os.Exit(1)
		}
	}

	// HTTP API
	var apiEvents api.Publisher
	if eventsClient != nil {
		apiEvents = eventsClient
	}
	srv := api.NewServer(cfg.Port, cfg.APIToken, api.Deps{
		Retriever:   db,
		Asker:       answerer,
		Runner:      orchestrator,
		Events:      apiEvents,
		KnowledgeID: cfg.KnowledgeID,
		SearchAlpha: cfg.SearchAlpha,
		ExportPath:  cfg.ExportPath,
		IngestOpts:  cfg.IngestOptions(),
	}, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("threadline ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("threadline stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
