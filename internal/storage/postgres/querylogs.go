package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relayforge/knowbase/internal/domain"
)

func (s *Store) InsertQueryLog(ctx context.Context, q *domain.QueryLog) error {
	citationsJSON, err := json.Marshal(q.Citations)
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO query_logs (bot_id, session_id, query_text, page_url, response_summary, citations,
			confidence, prompt_tokens, completion_tokens, total_tokens, latency_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		q.BotID, q.SessionID, q.QueryText, q.PageURL, q.ResponseSummary, citationsJSON,
		q.Confidence, q.PromptTokens, q.CompletionTokens, q.TotalTokens, q.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert query log: %w", err)
	}
	return nil
}

func (s *Store) ListRecentQueryLogs(ctx context.Context, botID, sessionID string, limit int) ([]domain.QueryLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, bot_id, session_id, query_text, response_summary, confidence, created_at
		 FROM query_logs WHERE bot_id = $1 AND session_id = $2
		 ORDER BY created_at DESC LIMIT $3`, botID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list query logs: %w", err)
	}
	defer rows.Close()

	var out []domain.QueryLog
	for rows.Next() {
		var q domain.QueryLog
		if err := rows.Scan(&q.ID, &q.BotID, &q.SessionID, &q.QueryText, &q.ResponseSummary,
			&q.Confidence, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) SetQueryLogFeedback(ctx context.Context, id string, helpful bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE query_logs SET user_feedback = $1 WHERE id = $2`, helpful, id)
	if err != nil {
		return fmt.Errorf("failed to set query log feedback: %w", err)
	}
	return nil
}
