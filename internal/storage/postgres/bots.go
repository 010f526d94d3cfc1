package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
)

const botColumns = `id, owner_user_id, name, system_prompt, top_k, min_score, rate_limit_per_min,
	llm_model, llm_temperature, llm_max_tokens, created_at, updated_at`

func scanBot(row pgx.Row, b *domain.Bot) error {
	return row.Scan(&b.ID, &b.OwnerUserID, &b.Name, &b.SystemPrompt, &b.TopK, &b.MinScore,
		&b.RateLimitPerMin, &b.LLMModel, &b.LLMTemperature, &b.LLMMaxTokens, &b.CreatedAt, &b.UpdatedAt)
}

func (s *Store) CreateBot(ctx context.Context, b *domain.Bot) (*domain.Bot, error) {
	var out domain.Bot
	row := s.pool.QueryRow(ctx,
		`INSERT INTO bots (owner_user_id, name, system_prompt, top_k, min_score, rate_limit_per_min,
			llm_model, llm_temperature, llm_max_tokens)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+botColumns,
		b.OwnerUserID, b.Name, b.SystemPrompt, b.TopK, b.MinScore, b.RateLimitPerMin,
		b.LLMModel, b.LLMTemperature, b.LLMMaxTokens,
	)
	if err := scanBot(row, &out); err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &out, nil
}

func (s *Store) GetBot(ctx context.Context, id string) (*domain.Bot, error) {
	var b domain.Bot
	row := s.pool.QueryRow(ctx, `SELECT `+botColumns+` FROM bots WHERE id = $1`, id)
	if err := scanBot(row, &b); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "bot not found")
		}
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	return &b, nil
}

// GetBotOwned returns the bot only if ownerUserID matches its owner,
// implementing the Ownership rule at the repository boundary.
func (s *Store) GetBotOwned(ctx context.Context, id, ownerUserID string) (*domain.Bot, error) {
	b, err := s.GetBot(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.OwnerUserID != ownerUserID {
		return nil, apperr.New(apperr.KindForbidden, "bot is not owned by the acting user")
	}
	return b, nil
}

func (s *Store) ListBotsByOwner(ctx context.Context, ownerUserID string) ([]domain.Bot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+botColumns+` FROM bots WHERE owner_user_id = $1 ORDER BY created_at DESC`, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	defer rows.Close()

	var out []domain.Bot
	for rows.Next() {
		var b domain.Bot
		if err := scanBot(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan bot: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBot(ctx context.Context, b *domain.Bot) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE bots SET name = $1, system_prompt = $2, top_k = $3, min_score = $4,
		 rate_limit_per_min = $5, llm_model = $6, llm_temperature = $7, llm_max_tokens = $8,
		 updated_at = now() WHERE id = $9`,
		b.Name, b.SystemPrompt, b.TopK, b.MinScore, b.RateLimitPerMin,
		b.LLMModel, b.LLMTemperature, b.LLMMaxTokens, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update bot: %w", err)
	}
	return nil
}

func (s *Store) DeleteBot(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bot: %w", err)
	}
	return nil
}
