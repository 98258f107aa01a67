// Package ingest turns a chat export into store-resident documents:
// load → detect threads → incremental filter → build documents → dedupe
// → batched writes with one bounded retry pass.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quaystone/threadline/internal/document"
	"github.com/quaystone/threadline/internal/telegram"
	"github.com/quaystone/threadline/internal/thread"
)

// Store is the slice of the document store the orchestrator needs.
type Store interface {
	BatchInsert(ctx context.Context, docs []document.Document) []error
	ExistingThreadIDs(ctx context.Context) (map[string]struct{}, error)
	LatestTimestamp(ctx context.Context) (time.Time, bool, error)
}

// Publisher emits pipeline events. May be nil; the pipeline works
// without one.
type Publisher interface {
	Publish(subject string, data any) error
}

// SubjectIngestCompleted carries the final RunStats of an ingestion run.
const SubjectIngestCompleted = "threadline.ingest.completed"

// Options configures one ingestion run.
type Options struct {
	Incremental    bool
	ForceReindex   bool
	InjectContext  bool
	BatchSize      int
	RetryThreshold int
	BatchDelay     time.Duration
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.RetryThreshold <= 0 {
		o.RetryThreshold = 50
	}
	if o.BatchDelay <= 0 {
		o.BatchDelay = 100 * time.Millisecond
	}
}

// RunStats is the statistics summary every run completes with. Partial
// failure is reported here rather than raised.
type RunStats struct {
	RunID           string    `json:"run_id"`
	MessagesLoaded  int       `json:"messages_loaded"`
	MessagesSkipped int       `json:"messages_skipped"`
	TotalThreads    int       `json:"total_threads"`
	Processed       int       `json:"processed"`
	Successful      int       `json:"successful"`
	Failed          int       `json:"failed"`
	Skipped         int       `json:"skipped"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
}

// Orchestrator coordinates the single-threaded, synchronous pipeline.
type Orchestrator struct {
	store    Store
	detector *thread.Detector
	events   Publisher
	logger   *slog.Logger
}

func New(store Store, detector *thread.Detector, events Publisher, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		detector: detector,
		events:   events,
		logger:   logger,
	}
}

// Run executes a full ingestion pass over the export at path. It returns
// an error only when the input cannot be read or the store cannot be
// reached; everything else lands in the returned stats.
func (o *Orchestrator) Run(ctx context.Context, path string, opts Options) (*RunStats, error) {
	opts.applyDefaults()

	stats := &RunStats{
		RunID:     uuid.New().String(),
		StartTime: time.Now().UTC(),
	}

	loaded, err := telegram.LoadFile(path, o.logger)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	stats.MessagesLoaded = len(loaded.Messages)
	stats.MessagesSkipped = loaded.Skipped

	threads := o.detector.Detect(loaded.Messages)

	if opts.Incremental {
		cutoff, ok, err := o.store.LatestTimestamp(ctx)
		if err != nil {
			return nil, fmt.Errorf("latest timestamp: %w", err)
		}
		if ok {
			before := len(threads)
			threads = FilterSince(threads, cutoff)
			o.logger.Info("incremental filter applied",
				"cutoff", cutoff, "kept", len(threads), "total", before)
		} else {
			o.logger.Info("store empty, performing full ingestion")
		}
	}

	stats.TotalThreads = len(threads)

	docs := make([]document.Document, 0, len(threads))
	for _, t := range threads {
		doc, err := document.FromThread(t, opts.InjectContext)
		if err != nil {
			// Should not occur given detector invariants; skip and count.
			o.logger.Warn("failed to convert thread", "thread_id", t.ID, "error", err)
			stats.Skipped++
			continue
		}
		docs = append(docs, doc)
	}

	if !opts.ForceReindex {
		existing, err := o.store.ExistingThreadIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("existing thread ids: %w", err)
		}
		docs = dedupe(docs, existing, stats)
	}

	if len(docs) == 0 {
		o.logger.Info("no new documents to ingest", "run_id", stats.RunID)
		stats.EndTime = time.Now().UTC()
		o.publishCompleted(stats)
		return stats, nil
	}

	o.ingestBatched(ctx, docs, opts, stats)

	stats.EndTime = time.Now().UTC()
	o.logger.Info("ingestion complete",
		"run_id", stats.RunID,
		"threads", stats.TotalThreads,
		"successful", stats.Successful,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	o.publishCompleted(stats)
	return stats, nil
}

// FilterSince keeps threads containing at least one message newer than
// cutoff. A zero cutoff keeps everything.
func FilterSince(threads []thread.Thread, cutoff time.Time) []thread.Thread {
	if cutoff.IsZero() {
		return threads
	}
	var kept []thread.Thread
	for _, t := range threads {
		for _, m := range t.Messages {
			if m.Timestamp.After(cutoff) {
				kept = append(kept, t)
				break
			}
		}
	}
	return kept
}

func dedupe(docs []document.Document, existing map[string]struct{}, stats *RunStats) []document.Document {
	if len(existing) == 0 {
		return docs
	}
	kept := docs[:0]
	for _, d := range docs {
		if _, ok := existing[d.ThreadID]; ok {
			stats.Skipped++
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// ingestBatched writes documents in fixed-size batches with a short
// fixed delay between batches. A batch-level failure does not abort
// subsequent batches; failed documents get one retry pass when their
// total stays under the retry threshold.
func (o *Orchestrator) ingestBatched(ctx context.Context, docs []document.Document, opts Options, stats *RunStats) {
	var failed []document.Document

	for start := 0; start < len(docs); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		for i, err := range o.store.BatchInsert(ctx, batch) {
			stats.Processed++
			if err != nil {
				o.logger.Warn("document insert failed", "thread_id", batch[i].ThreadID, "error", err)
				stats.Failed++
				failed = append(failed, batch[i])
			} else {
				stats.Successful++
			}
		}

		if end < len(docs) {
			select {
			case <-ctx.Done():
				o.logger.Warn("ingestion interrupted", "written", stats.Successful)
				return
			case <-time.After(opts.BatchDelay):
			}
		}
	}

	if len(failed) == 0 || len(failed) >= opts.RetryThreshold {
		if len(failed) >= opts.RetryThreshold {
			o.logger.Error("too many failures for retry pass", "failed", len(failed), "threshold", opts.RetryThreshold)
		}
		return
	}

	o.logger.Info("retrying failed documents", "count", len(failed))
	stats.Failed = 0
	for i, err := range o.store.BatchInsert(ctx, failed) {
		if err != nil {
			o.logger.Error("document failed after retry", "thread_id", failed[i].ThreadID, "error", err)
			stats.Failed++
		} else {
			stats.Successful++
		}
	}
}

func (o *Orchestrator) publishCompleted(stats *RunStats) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(SubjectIngestCompleted, stats); err != nil {
		o.logger.Warn("failed to publish ingest event", "error", err)
	}
}
