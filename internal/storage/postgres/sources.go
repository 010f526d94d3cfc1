package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/pkg/logger"
)

func (s *Store) CreateSource(ctx context.Context, src *domain.Source) (*domain.Source, error) {
	var out domain.Source
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sources (bot_id, source_type, status, original_url, canonical_url, storage_path, mime_type, file_size, checksum, etag, last_modified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, bot_id, source_type, status, original_url, canonical_url, storage_path, mime_type, file_size, checksum, etag, last_modified, failure_reason, created_at, updated_at`,
		src.BotID, src.SourceType, src.Status, src.OriginalURL, src.CanonicalURL, src.StoragePath,
		src.MimeType, src.FileSize, src.Checksum, src.ETag, src.LastModified,
	).Scan(&out.ID, &out.BotID, &out.SourceType, &out.Status, &out.OriginalURL, &out.CanonicalURL,
		&out.StoragePath, &out.MimeType, &out.FileSize, &out.Checksum, &out.ETag, &out.LastModified,
		&out.FailureReason, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}
	logger.Debug("source created", zap.String("source_id", out.ID), zap.String("bot_id", out.BotID))
	return &out, nil
}

func (s *Store) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	var src domain.Source
	err := s.pool.QueryRow(ctx,
		`SELECT id, bot_id, source_type, status, original_url, canonical_url, storage_path, mime_type, file_size, checksum, etag, last_modified, failure_reason, created_at, updated_at
		 FROM sources WHERE id = $1`, id,
	).Scan(&src.ID, &src.BotID, &src.SourceType, &src.Status, &src.OriginalURL, &src.CanonicalURL,
		&src.StoragePath, &src.MimeType, &src.FileSize, &src.Checksum, &src.ETag, &src.LastModified,
		&src.FailureReason, &src.CreatedAt, &src.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "source not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &src, nil
}

func (s *Store) ListSourcesByBot(ctx context.Context, botID string) ([]domain.Source, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, bot_id, source_type, status, original_url, canonical_url, storage_path, mime_type, file_size, checksum, etag, last_modified, failure_reason, created_at, updated_at
		 FROM sources WHERE bot_id = $1 ORDER BY created_at DESC`, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(&src.ID, &src.BotID, &src.SourceType, &src.Status, &src.OriginalURL,
			&src.CanonicalURL, &src.StoragePath, &src.MimeType, &src.FileSize, &src.Checksum,
			&src.ETag, &src.LastModified, &src.FailureReason, &src.CreatedAt, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSourceStatus(ctx context.Context, id string, status domain.SourceStatus, failureReason string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sources SET status = $1, failure_reason = $2, updated_at = now() WHERE id = $3`,
		status, failureReason, id)
	if err != nil {
		return fmt.Errorf("failed to update source status: %w", err)
	}
	return nil
}

func (s *Store) UpdateSourceStoragePath(ctx context.Context, id, storagePath string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sources SET storage_path = $1, updated_at = now() WHERE id = $2`, storagePath, id)
	if err != nil {
		return fmt.Errorf("failed to update source storage path: %w", err)
	}
	return nil
}

// UpdateSourceCanonical records what a fetch or upload observed about the
// content itself: the URL crawling settled on after redirects, caching
// headers for future conditional re-fetches, and the checksum used to
// detect whether re-ingesting produces identical content.
func (s *Store) UpdateSourceCanonical(ctx context.Context, id, canonicalURL, etag, lastModified, checksum string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sources SET canonical_url = $1, etag = $2, last_modified = $3, checksum = $4, updated_at = now() WHERE id = $5`,
		canonicalURL, etag, lastModified, checksum, id)
	if err != nil {
		return fmt.Errorf("failed to update source canonical fields: %w", err)
	}
	return nil
}

// ResetSourceForReingest transitions a failed source back to uploaded,
// implementing the "re-ingest in place" Open Question resolution instead
// of requiring delete+recreate.
func (s *Store) ResetSourceForReingest(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sources SET status = 'uploaded', failure_reason = '', updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to reset source for re-ingestion: %w", err)
	}
	return nil
}

func (s *Store) DeleteSource(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}

// DeleteChunksBySource removes all chunks for a source, used before
// re-ingestion to avoid stale/duplicated chunks from a previous attempt.
func (s *Store) DeleteChunksBySource(ctx context.Context, sourceID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE source_id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for source: %w", err)
	}
	return nil
}
