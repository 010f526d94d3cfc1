package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
)

const widgetTokenColumns = `id, bot_id, name, token_hash, token_prefix, allowed_hosts, revoked, expires_at, created_at, last_used_at`

func scanWidgetToken(row pgx.Row, t *domain.WidgetToken) error {
	return row.Scan(&t.ID, &t.BotID, &t.Name, &t.TokenHash, &t.TokenPrefix, &t.AllowedHosts,
		&t.Revoked, &t.ExpiresAt, &t.CreatedAt, &t.LastUsedAt)
}

func (s *Store) CreateWidgetToken(ctx context.Context, t *domain.WidgetToken) (*domain.WidgetToken, error) {
	var out domain.WidgetToken
	row := s.pool.QueryRow(ctx,
		`INSERT INTO widget_tokens (bot_id, name, token_hash, token_prefix, allowed_hosts, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+widgetTokenColumns,
		t.BotID, t.Name, t.TokenHash, t.TokenPrefix, t.AllowedHosts, t.ExpiresAt,
	)
	if err := scanWidgetToken(row, &out); err != nil {
		return nil, fmt.Errorf("failed to create widget token: %w", err)
	}
	return &out, nil
}

func (s *Store) GetWidgetTokenByHash(ctx context.Context, hash string) (*domain.WidgetToken, error) {
	var t domain.WidgetToken
	row := s.pool.QueryRow(ctx,
		`SELECT `+widgetTokenColumns+` FROM widget_tokens WHERE lower(token_hash) = lower($1)`, hash,
	)
	err := scanWidgetToken(row, &t)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "widget token not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get widget token: %w", err)
	}
	return &t, nil
}

func (s *Store) ListWidgetTokensByBot(ctx context.Context, botID string) ([]domain.WidgetToken, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+widgetTokenColumns+` FROM widget_tokens WHERE bot_id = $1 ORDER BY created_at DESC`, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to list widget tokens: %w", err)
	}
	defer rows.Close()

	var out []domain.WidgetToken
	for rows.Next() {
		var t domain.WidgetToken
		if err := scanWidgetToken(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan widget token: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) TouchWidgetToken(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE widget_tokens SET last_used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch widget token: %w", err)
	}
	return nil
}

// RevokeWidgetToken deletes the token row outright: revocation is
// deletion, not a soft-delete flag, so a revoked token's subsequent
// validation attempts see a plain not-found rather than a distinct
// revoked state.
func (s *Store) RevokeWidgetToken(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM widget_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke widget token: %w", err)
	}
	return nil
}
