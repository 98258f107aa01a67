// threadline-ingest runs the ingestion pipeline from the command line:
// parse an export, detect threads, and write documents to the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/quaystone/threadline/internal/config"
	"github.com/quaystone/threadline/internal/events"
	"github.com/quaystone/threadline/internal/ingest"
	"github.com/quaystone/threadline/internal/provider"
	"github.com/quaystone/threadline/internal/store"
	"github.com/quaystone/threadline/internal/telegram"
	"github.com/quaystone/threadline/internal/thread"
)

func main() {
	_ = godotenv.Load()

	file := flag.String("file", "", "path to the chat export (default: EXPORT_PATH)")
	incremental := flag.Bool("incremental", false, "only ingest threads newer than the store's latest timestamp")
	force := flag.Bool("force", false, "reindex even if thread ids already exist in the store")
	withContext := flag.Bool("context", false, "inject a context header into document content")
	analyze := flag.Bool("analyze", false, "print gap analysis and a suggested time window, then exit")
	dryRun := flag.Bool("dry-run", false, "detect threads and print statistics without writing to the store")
	verify := flag.Bool("verify", true, "verify store contents after ingestion")
	clearStore := flag.Bool("clear", false, "delete all stored documents and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `threadline-ingest - load a chat export into the thread store

usage: threadline-ingest [options]

options:
  -file PATH     chat export JSON (default: EXPORT_PATH env, result.json)
  -incremental   only ingest threads with messages newer than the store
  -force         reindex threads that already exist in the store
  -context       prepend a structured context header to document content
  -analyze       print inter-message gap analysis and exit
  -dry-run       detect threads and print statistics, no writes
  -verify        verify store contents after ingestion (default true)
  -clear         delete all stored documents and exit

environment: DATABASE_URL and EMBEDDING_PROVIDER settings are required
for any run that writes. A .env file is loaded when present.
`)
	}
	flag.Parse()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	path := *file
	if path == "" {
		path = cfg.ExportPath
	}

	if *analyze || *dryRun {
		if err := runOffline(path, cfg, *analyze); err != nil {
			slog.Error("offline run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if *clearStore {
		if err := runClear(cfg); err != nil {
			slog.Error("clear failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runIngestion(path, cfg, *incremental, *force, *withContext, *verify); err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

// runOffline covers the store-free modes: gap analysis and dry-run
// thread detection.
func runOffline(path string, cfg config.Config, analyze bool) error {
	loaded, err := telegram.LoadFile(path, slog.Default())
	if err != nil {
		return err
	}

	if analyze {
		ga := thread.AnalyzeGaps(loaded.Messages)
		fmt.Printf("Messages:             %d (skipped %d)\n", len(loaded.Messages), loaded.Skipped)
		fmt.Printf("Median gap:           %.0f s\n", ga.MedianGapSeconds)
		fmt.Printf("75th percentile gap:  %.0f s\n", ga.P75GapSeconds)
		fmt.Printf("Suggested window:     %.1f min\n", ga.SuggestedWindowMinutes)
		fmt.Printf("Reply usage:          %.1f%%\n", ga.ReplyPercentage)
		fmt.Printf("Participants:         %d\n", ga.Participants)
		return nil
	}

	detector := thread.NewDetector(cfg.DetectorConfig(), slog.Default())
	threads := detector.Detect(loaded.Messages)
	printStats(thread.ComputeStats(len(loaded.Messages), threads))
	return nil
}

// runClear wipes the document store, leaving the schema in place.
func runClear(cfg config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	prov, err := provider.New(cfg.Provider, cfg.ProviderSettings(), slog.Default())
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	db, err := store.New(ctx, cfg.DatabaseURL, prov, slog.Default())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	deleted, err := db.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d documents\n", deleted)
	return nil
}

func runIngestion(path string, cfg config.Config, incremental, force, withContext, verify bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	prov, err := provider.New(cfg.Provider, cfg.ProviderSettings(), slog.Default())
	if err != nil {
		return err
	}
	if !prov.Available(ctx) {
		return fmt.Errorf("provider %s is not reachable", prov.Name())
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	db, err := store.New(ctx, cfg.DatabaseURL, prov, slog.Default())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	var publisher ingest.Publisher
	if cfg.NatsURL != "" {
		ec, err := events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Warn("NATS unavailable, continuing without events", "error", err)
		} else {
			defer ec.Close()
			publisher = ec
		}
	}

	detector := thread.NewDetector(cfg.DetectorConfig(), slog.Default())
	orchestrator := ingest.New(db, detector, publisher, slog.Default())

	opts := cfg.IngestOptions()
	opts.Incremental = incremental
	opts.ForceReindex = force
	opts.InjectContext = withContext

	stats, err := orchestrator.Run(ctx, path, opts)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Ingestion Summary ===\n")
	fmt.Printf("Run ID:      %s\n", stats.RunID)
	fmt.Printf("Messages:    %d loaded, %d skipped\n", stats.MessagesLoaded, stats.MessagesSkipped)
	fmt.Printf("Threads:     %d\n", stats.TotalThreads)
	fmt.Printf("Processed:   %d\n", stats.Processed)
	fmt.Printf("Successful:  %d\n", stats.Successful)
	fmt.Printf("Failed:      %d\n", stats.Failed)
	fmt.Printf("Skipped:     %d\n", stats.Skipped)
	fmt.Printf("Duration:    %s\n", stats.EndTime.Sub(stats.StartTime).Round(time.Millisecond))

	if verify {
		v, err := db.Verify(ctx)
		if err != nil {
			slog.Warn("verification failed", "error", err)
			return nil
		}
		fmt.Printf("\n=== Store Verification ===\n")
		fmt.Printf("Documents:   %d\n", v.TotalDocuments)
		fmt.Printf("Messages:    mean %.1f, min %d, max %d\n", v.MeanMessages, v.MinMessages, v.MaxMessages)
		fmt.Printf("Words:       mean %.1f, min %d, max %d\n", v.MeanWords, v.MinWords, v.MaxWords)
	}
	return nil
}

func printStats(s thread.Stats) {
	fmt.Printf("Total messages:          %d\n", s.TotalMessages)
	fmt.Printf("Total threads:           %d\n", s.TotalThreads)
	fmt.Printf("Single-message threads:  %d\n", s.SingleMessageThreads)
	fmt.Printf("Multi-message threads:   %d\n", s.MultiMessageThreads)
	fmt.Printf("Largest thread:          %d messages\n", s.LargestThread)
	fmt.Printf("Average thread size:     %.1f messages\n", s.AverageThreadSize)
	if s.TotalThreads > 0 {
		fmt.Printf("Compression ratio:       %.1f:1\n", s.CompressionRatio)
	}
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
