package store

import (
	"context"
	"fmt"
	"time"
)

// SearchResult pairs a stored document's retrievable fields with its
// blended relevance score.
type SearchResult struct {
	ThreadID     string    `json:"thread_id"`
	Content      string    `json:"content"`
	Participants []string  `json:"participants"`
	MessageCount int       `json:"message_count"`
	Timestamp    time.Time `json:"timestamp"`
	Score        float64   `json:"score"`
}

// HybridSearch blends full-text rank with cosine similarity. alpha
// weights the vector side: 0 is keyword-only, 1 is vector-only. Values
// outside [0,1] are clamped.
func (s *Store) HybridSearch(ctx context.Context, query string, limit int, alpha float64) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Lexical rank is normalized into [0,1] before blending so both
	// signals live on the same scale.
	rows, err := s.pool.Query(ctx, `
		WITH scored AS (
			SELECT thread_id, content, participants, message_count, started_at,
			       (1 - (embedding <=> $1::vector)) AS vscore,
			       ts_rank(content_tsv, plainto_tsquery('simple', $2)) AS lrank
			FROM thread_documents
			WHERE embedding IS NOT NULL
		)
		SELECT thread_id, content, participants, message_count, started_at,
		       $3::float8 * vscore +
		       (1 - $3::float8) * (lrank / greatest(max(lrank) OVER (), 1e-9)) AS score
		FROM scored
		ORDER BY score DESC
		LIMIT $4`,
		pgVector(vec), query, alpha, limit)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ThreadID, &r.Content, &r.Participants, &r.MessageCount, &r.Timestamp, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}

	s.logger.Debug("hybrid search", "query_len", len(query), "results", len(results), "alpha", alpha)
	return results, nil
}
