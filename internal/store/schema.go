package store

import (
	"context"
	"fmt"
)

// EnsureSchema creates the documents table and its indexes if missing.
// The vector column width is fixed at schema-creation time to the
// embedder's dimension; switching embedding models requires recreating
// the collection out-of-band.
func (s *Store) EnsureSchema(ctx context.Context) error {
	dim := s.embedder.Dimension()

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS thread_documents (
			id UUID PRIMARY KEY,
			thread_id TEXT UNIQUE NOT NULL,
			content TEXT NOT NULL,
			message_count INT NOT NULL,
			participants TEXT[] NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			duration_seconds DOUBLE PRECISION NOT NULL,
			message_types TEXT[] NOT NULL,
			has_service_messages BOOLEAN NOT NULL,
			has_questions BOOLEAN NOT NULL,
			has_links BOOLEAN NOT NULL,
			has_mentions BOOLEAN NOT NULL,
			has_hashtags BOOLEAN NOT NULL,
			has_media BOOLEAN NOT NULL,
			has_exclamations BOOLEAN NOT NULL,
			word_count INT NOT NULL,
			char_count INT NOT NULL,
			reply_count INT NOT NULL,
			density DOUBLE PRECISION NOT NULL,
			interaction_pattern TEXT NOT NULL,
			sentiment TEXT NOT NULL DEFAULT 'neutral',
			topic TEXT NOT NULL DEFAULT '',
			entities TEXT[] NOT NULL DEFAULT '{}',
			raw_messages JSONB NOT NULL,
			embedding vector(%d),
			content_tsv tsvector GENERATED ALWAYS AS (to_tsvector('simple', content)) STORED,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dim),
		`CREATE INDEX IF NOT EXISTS thread_documents_tsv_idx ON thread_documents USING GIN (content_tsv)`,
		`CREATE INDEX IF NOT EXISTS thread_documents_started_at_idx ON thread_documents (started_at)`,
		`CREATE INDEX IF NOT EXISTS thread_documents_embedding_idx ON thread_documents USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	s.logger.Info("schema ready", "dimension", dim)
	return nil
}
