package document

import (
	"errors"
	"time"

	"github.com/quaystone/threadline/internal/telegram"
	"github.com/quaystone/threadline/internal/thread"
)

// ErrEmptyThread is returned when a document is requested for a thread
// with no messages. The detector's invariant prevents this, but the
// builder defends against violation.
var ErrEmptyThread = errors.New("cannot build document from empty thread")

// Document is the persisted unit: one per thread, created once at
// ingestion time, immutable, keyed by ThreadID for idempotent
// re-ingestion.
type Document struct {
	Content            string                `json:"content"`
	ThreadID           string                `json:"thread_id"`
	MessageCount       int                   `json:"message_count"`
	Participants       []string              `json:"participants"`
	Timestamp          time.Time             `json:"timestamp"`
	HasServiceMessages bool                  `json:"has_service_messages"`
	Summary            Summary               `json:"summary"`
	RawMessages        []telegram.RawMessage `json:"raw_messages"`
}

// FromThread assembles the persisted document for a thread. The stored
// word count always comes from the plain transcript via Summarize, so it
// is identical with and without context injection.
func FromThread(t thread.Thread, injectContext bool) (Document, error) {
	if t.MessageCount == 0 || len(t.Messages) == 0 {
		return Document{}, ErrEmptyThread
	}

	summary := Summarize(t)
	raw := make([]telegram.RawMessage, 0, len(t.Messages))
	for _, m := range t.Messages {
		raw = append(raw, m.Raw)
	}

	return Document{
		Content:            BuildContent(t, injectContext),
		ThreadID:           t.ID,
		MessageCount:       t.MessageCount,
		Participants:       t.Participants,
		Timestamp:          t.StartTime,
		HasServiceMessages: summary.HasServiceMessages(),
		Summary:            summary,
		RawMessages:        raw,
	}, nil
}
