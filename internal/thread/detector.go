package thread

import (
	"log/slog"
	"time"

	"github.com/quaystone/threadline/internal/telegram"
)

// quickReplyWindow is the fixed gap under which a message from a new
// participant is still treated as a likely response. Deliberately
// independent of the configurable time window.
const quickReplyWindow = 2 * time.Minute

// Config holds the detector's grouping parameters. An explicit value
// object; there is no process-wide settings state.
type Config struct {
	TimeWindow  time.Duration // max gap between consecutive messages in a thread
	MaxMessages int           // hard per-thread size bound
	MinMessages int           // advisory minimum, kept for configuration parity
}

// DefaultConfig mirrors the standard grouping parameters: a 5 minute
// window and at most 50 messages per thread.
func DefaultConfig() Config {
	return Config{
		TimeWindow:  5 * time.Minute,
		MaxMessages: 50,
		MinMessages: 1,
	}
}

// Detector groups messages into threads in a single forward pass. Once a
// boundary is drawn it is final; there is no backtracking. The heuristic
// favors recall of topical continuity over precision.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	if cfg.TimeWindow <= 0 {
		cfg.TimeWindow = DefaultConfig().TimeWindow
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultConfig().MaxMessages
	}
	return &Detector{cfg: cfg, logger: logger}
}

// replyIndex maps a message id to the id of the message that replies to
// it. Built once per detection pass for O(1) reply-chain lookups.
type replyIndex map[int64]int64

func buildReplyIndex(messages []telegram.Message) replyIndex {
	idx := make(replyIndex)
	for _, m := range messages {
		if m.ReplyTo != 0 {
			idx[m.ReplyTo] = m.ID
		}
	}
	return idx
}

// Detect consumes messages in chronological order and produces sealed
// threads. Input must already be sorted by timestamp ascending.
func (d *Detector) Detect(messages []telegram.Message) []Thread {
	if len(messages) == 0 {
		return nil
	}

	replies := buildReplyIndex(messages)

	var threads []Thread
	var current []telegram.Message
	currentIDs := make(map[int64]bool)
	participants := make(map[string]bool)

	for _, msg := range messages {
		if d.shouldContinue(current, currentIDs, participants, msg, replies) {
			current = append(current, msg)
			currentIDs[msg.ID] = true
			participants[msg.Sender] = true
			continue
		}

		if len(current) > 0 {
			threads = append(threads, seal(current))
		}
		current = current[:0]
		currentIDs = map[int64]bool{msg.ID: true}
		participants = map[string]bool{msg.Sender: true}
		current = append(current, msg)
	}

	if len(current) > 0 {
		threads = append(threads, seal(current))
	}

	d.logger.Info("threads detected", "messages", len(messages), "threads", len(threads))
	return threads
}

// shouldContinue decides whether candidate extends the current thread.
// The checks run in strict priority order; the first decisive one wins.
func (d *Detector) shouldContinue(current []telegram.Message, currentIDs map[int64]bool, participants map[string]bool, candidate telegram.Message, replies replyIndex) bool {
	// Hard size bound forces a boundary regardless of other signals.
	if len(current) >= d.cfg.MaxMessages {
		return false
	}

	// Every message starts some thread.
	if len(current) == 0 {
		return true
	}

	last := current[len(current)-1]
	gap := candidate.Timestamp.Sub(last.Timestamp)

	// Inclusive boundary: gap == TimeWindow still continues.
	if gap > d.cfg.TimeWindow {
		return false
	}

	// Reply binding dominates once the gap test has passed.
	if candidate.ReplyTo != 0 && currentIDs[candidate.ReplyTo] {
		return true
	}

	// A later message in the thread replies to the candidate.
	if replier, ok := replies[candidate.ID]; ok && currentIDs[replier] {
		return true
	}

	// Service messages within the window relate to ongoing activity.
	if candidate.Type == telegram.TypeService {
		return true
	}

	// Same speaker continuing.
	if participants[candidate.Sender] {
		return true
	}

	// Different participant, but close enough to be a quick reply.
	if gap <= quickReplyWindow {
		return true
	}

	return false
}
