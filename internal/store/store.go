// Package store persists thread documents in Postgres with pgvector and
// full-text indexes, and serves hybrid lexical + vector search. The
// store embeds content itself via the configured provider, so callers
// hand it plain documents.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quaystone/threadline/internal/provider"
)

type Store struct {
	pool     *pgxpool.Pool
	embedder provider.Provider
	logger   *slog.Logger
}

func New(ctx context.Context, databaseURL string, embedder provider.Provider, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// pgVector formats a float64 slice as a pgvector-compatible string literal,
// e.g. "[0.1,0.2,0.3]", suitable for a parameterized query targeting a
// vector column.
func pgVector(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
