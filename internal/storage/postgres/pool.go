// Package postgres implements the combined relational-plus-vector store:
// bot/source/chunk/query-log/widget-token repositories backed by Postgres,
// with chunk embeddings stored and searched via pgvector.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/relayforge/knowbase/pkg/logger"
)

type Store struct {
	pool      *pgxpool.Pool
	vectorDim int
}

func NewStore(ctx context.Context, dsn string, maxConns int, vectorDim int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("postgres pool initialized", zap.Int32("max_conns", cfg.MaxConns))

	return &Store{pool: pool, vectorDim: vectorDim}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// InitSchema creates every table this store needs if absent. Migrations in
// a real deployment would run separately; this is a single-statement
// bootstrap for local/dev use.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;
	CREATE EXTENSION IF NOT EXISTS pgcrypto;

	CREATE TABLE IF NOT EXISTS bots (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		system_prompt TEXT NOT NULL DEFAULT '',
		top_k INTEGER NOT NULL DEFAULT 5,
		min_score DOUBLE PRECISION NOT NULL DEFAULT 0.25,
		rate_limit_per_min INTEGER NOT NULL DEFAULT 60,
		llm_model TEXT NOT NULL DEFAULT '',
		llm_temperature REAL NOT NULL DEFAULT 0.2,
		llm_max_tokens INTEGER NOT NULL DEFAULT 1024,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_bots_owner ON bots(owner_user_id);

	CREATE TABLE IF NOT EXISTS sources (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		bot_id UUID NOT NULL REFERENCES bots(id) ON DELETE CASCADE,
		source_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'uploaded',
		original_url TEXT NOT NULL DEFAULT '',
		canonical_url TEXT NOT NULL DEFAULT '',
		storage_path TEXT NOT NULL DEFAULT '',
		mime_type TEXT NOT NULL DEFAULT '',
		file_size BIGINT NOT NULL DEFAULT 0,
		checksum TEXT NOT NULL DEFAULT '',
		etag TEXT NOT NULL DEFAULT '',
		last_modified TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_sources_bot ON sources(bot_id);
	CREATE INDEX IF NOT EXISTS idx_sources_status ON sources(status);

	CREATE TABLE IF NOT EXISTS chunks (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		source_id UUID NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
		bot_id UUID NOT NULL REFERENCES bots(id) ON DELETE CASCADE,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		heading TEXT NOT NULL DEFAULT '',
		token_count INTEGER NOT NULL DEFAULT 0,
		char_start INTEGER NOT NULL DEFAULT 0,
		char_end INTEGER NOT NULL DEFAULT 0,
		embedding vector(%d),
		publish_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_bot ON chunks(bot_id);

	CREATE TABLE IF NOT EXISTS query_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		bot_id UUID NOT NULL REFERENCES bots(id) ON DELETE CASCADE,
		session_id TEXT NOT NULL DEFAULT '',
		query_text TEXT NOT NULL,
		page_url TEXT NOT NULL DEFAULT '',
		response_summary TEXT NOT NULL DEFAULT '',
		citations JSONB NOT NULL DEFAULT '[]',
		confidence DOUBLE PRECISION,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		user_feedback BOOLEAN,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_query_logs_bot ON query_logs(bot_id);
	CREATE INDEX IF NOT EXISTS idx_query_logs_created ON query_logs(created_at);

	CREATE TABLE IF NOT EXISTS widget_tokens (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		bot_id UUID NOT NULL REFERENCES bots(id) ON DELETE CASCADE,
		name TEXT,
		token_hash TEXT NOT NULL,
		token_prefix TEXT NOT NULL,
		allowed_hosts TEXT[] NOT NULL DEFAULT '{}',
		revoked BOOLEAN NOT NULL DEFAULT false,
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_used_at TIMESTAMPTZ
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_widget_tokens_hash ON widget_tokens(lower(token_hash));
	CREATE INDEX IF NOT EXISTS idx_widget_tokens_bot ON widget_tokens(bot_id);
	`, s.vectorDim)

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	createIvfflat := `CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);`
	if _, err := s.pool.Exec(ctx, createIvfflat); err != nil {
		logger.Warn("failed to create ivfflat index, continuing without it",
			zap.Error(err))
	}

	logger.Info("postgres schema initialized")
	return nil
}
