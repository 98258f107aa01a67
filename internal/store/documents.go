package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quaystone/threadline/internal/document"
)

const insertDocumentSQL = `
	INSERT INTO thread_documents (
		id, thread_id, content, message_count, participants, started_at,
		duration_seconds, message_types, has_service_messages,
		has_questions, has_links, has_mentions, has_hashtags, has_media,
		has_exclamations, word_count, char_count, reply_count, density,
		interaction_pattern, sentiment, topic, entities, raw_messages, embedding
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25
	)
	ON CONFLICT (thread_id) DO NOTHING`

// Insert embeds and persists one document. Re-inserting an existing
// thread id is a no-op at the store's discretion.
func (s *Store) Insert(ctx context.Context, doc document.Document) error {
	vec, err := s.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", doc.ThreadID, err)
	}

	args, err := insertArgs(doc, vec)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, insertDocumentSQL, args...); err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ThreadID, err)
	}
	return nil
}

// BatchInsert embeds and persists a batch, returning one error slot per
// document. Partial success is expected: a failed item does not abort
// the rest of the batch.
func (s *Store) BatchInsert(ctx context.Context, docs []document.Document) []error {
	errs := make([]error, len(docs))
	if len(docs) == 0 {
		return errs
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		// Batch embedding failed wholesale; fall back to per-document
		// embedding inside the insert path so one bad item cannot sink
		// the batch.
		s.logger.Warn("batch embedding failed, falling back to per-item", "error", err)
		for i, d := range docs {
			errs[i] = s.Insert(ctx, d)
		}
		return errs
	}

	batch := &pgx.Batch{}
	prepared := make([]int, 0, len(docs)) // indexes with queued inserts
	for i, d := range docs {
		args, err := insertArgs(d, vecs[i])
		if err != nil {
			errs[i] = err
			continue
		}
		batch.Queue(insertDocumentSQL, args...)
		prepared = append(prepared, i)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, i := range prepared {
		if _, err := results.Exec(); err != nil {
			errs[i] = fmt.Errorf("insert document %s: %w", docs[i].ThreadID, err)
		}
	}
	return errs
}

func insertArgs(doc document.Document, vec []float64) ([]any, error) {
	raw, err := json.Marshal(doc.RawMessages)
	if err != nil {
		return nil, fmt.Errorf("marshal raw messages for %s: %w", doc.ThreadID, err)
	}
	sum := doc.Summary
	return []any{
		uuid.New(), doc.ThreadID, doc.Content, doc.MessageCount,
		doc.Participants, doc.Timestamp, sum.DurationSeconds,
		sum.MessageTypes, doc.HasServiceMessages, sum.HasQuestions,
		sum.HasLinks, sum.HasMentions, sum.HasHashtags, sum.HasMedia,
		sum.HasExclamations, sum.WordCount, sum.CharCount, sum.ReplyCount,
		sum.Density, sum.InteractionPattern, sum.Sentiment, sum.Topic,
		sum.Entities, raw, pgVector(vec),
	}, nil
}

// Clear deletes every stored document. The schema stays in place so the
// next ingestion run starts clean without re-creating indexes.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM thread_documents`)
	if err != nil {
		return 0, fmt.Errorf("clear documents: %w", err)
	}
	s.logger.Info("store cleared", "deleted", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// ExistingThreadIDs returns all stored thread ids, paginating internally
// with a keyset cursor so large stores do not need one giant result set.
func (s *Store) ExistingThreadIDs(ctx context.Context) (map[string]struct{}, error) {
	const pageSize = 1000

	ids := make(map[string]struct{})
	cursor := ""
	for {
		rows, err := s.pool.Query(ctx, `
			SELECT thread_id FROM thread_documents
			WHERE thread_id > $1
			ORDER BY thread_id
			LIMIT $2`, cursor, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list thread ids: %w", err)
		}

		count := 0
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan thread id: %w", err)
			}
			ids[id] = struct{}{}
			cursor = id
			count++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate thread ids: %w", err)
		}
		if count < pageSize {
			return ids, nil
		}
	}
}

// LatestTimestamp returns the most recent thread start time in the store,
// or ok=false when the store is empty.
func (s *Store) LatestTimestamp(ctx context.Context) (time.Time, bool, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx, `SELECT max(started_at) FROM thread_documents`).Scan(&ts)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest timestamp: %w", err)
	}
	if ts == nil {
		return time.Time{}, false, nil
	}
	return *ts, true, nil
}

// Verification aggregates post-ingestion sanity numbers.
type Verification struct {
	TotalDocuments  int64   `json:"total_documents"`
	MeanMessages    float64 `json:"mean_messages"`
	MinMessages     int     `json:"min_messages"`
	MaxMessages     int     `json:"max_messages"`
	MeanWords       float64 `json:"mean_words"`
	MinWords        int     `json:"min_words"`
	MaxWords        int     `json:"max_words"`
}

// Verify reports document counts and message/word statistics for the
// whole store.
func (s *Store) Verify(ctx context.Context) (Verification, error) {
	var v Verification
	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
		       coalesce(avg(message_count), 0), coalesce(min(message_count), 0), coalesce(max(message_count), 0),
		       coalesce(avg(word_count), 0), coalesce(min(word_count), 0), coalesce(max(word_count), 0)
		FROM thread_documents`).Scan(
		&v.TotalDocuments,
		&v.MeanMessages, &v.MinMessages, &v.MaxMessages,
		&v.MeanWords, &v.MinWords, &v.MaxWords,
	)
	if err != nil {
		return Verification{}, fmt.Errorf("verify: %w", err)
	}
	return v, nil
}
