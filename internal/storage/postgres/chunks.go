package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/relayforge/knowbase/internal/domain"
)

func (s *Store) InsertChunksBatch(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		var vec *pgvector.Vector
		if len(c.Embedding) > 0 {
			v := pgvector.NewVector(c.Embedding)
			vec = &v
		}
		batch.Queue(
			`INSERT INTO chunks (source_id, bot_id, chunk_index, text, heading, token_count, char_start, char_end, embedding, publish_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.SourceID, c.BotID, c.ChunkIndex, c.Text, c.Heading, c.TokenCount, c.CharStart, c.CharEnd, vec, c.PublishDate,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(chunks); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// SearchSimilarChunks performs ANN cosine search scoped to a bot:
// score = 1 - cosine_distance, ties broken by chunk id ascending.
func (s *Store) SearchSimilarChunks(ctx context.Context, botID string, queryEmbedding []float32, topK int, minScore float64) ([]domain.RetrievedChunk, error) {
	vec := pgvector.NewVector(queryEmbedding)

	rows, err := s.pool.Query(ctx,
		`SELECT id, source_id, bot_id, chunk_index, text, heading, token_count, char_start, char_end, publish_date, created_at,
		        1 - (embedding <=> $1) AS score
		 FROM chunks
		 WHERE bot_id = $2 AND embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $4
		 ORDER BY embedding <=> $1, id ASC
		 LIMIT $3`,
		vec, botID, topK, minScore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk
	for rows.Next() {
		var rc domain.RetrievedChunk
		if err := rows.Scan(&rc.Chunk.ID, &rc.Chunk.SourceID, &rc.Chunk.BotID, &rc.Chunk.ChunkIndex,
			&rc.Chunk.Text, &rc.Chunk.Heading, &rc.Chunk.TokenCount, &rc.Chunk.CharStart, &rc.Chunk.CharEnd,
			&rc.Chunk.PublishDate, &rc.Chunk.CreatedAt, &rc.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (s *Store) CountChunksBySource(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE source_id = $1`, sourceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
