package httpapi

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/internal/promptcomposer"
	"github.com/relayforge/knowbase/internal/queryengine"
	"github.com/relayforge/knowbase/internal/ratelimiter"
)

type QueryBotStore interface {
	GetBotOwned(ctx context.Context, id, ownerUserID string) (*domain.Bot, error)
	GetBot(ctx context.Context, id string) (*domain.Bot, error)
}

type QueryHandler struct {
	bots             QueryBotStore
	engine           *queryengine.Engine
	limiter          *ratelimiter.Limiter
	defaultRateLimit int
}

func NewQueryHandler(bots QueryBotStore, engine *queryengine.Engine, limiter *ratelimiter.Limiter, defaultRateLimit int) *QueryHandler {
	if defaultRateLimit <= 0 {
		defaultRateLimit = 60
	}
	return &QueryHandler{bots: bots, engine: engine, limiter: limiter, defaultRateLimit: defaultRateLimit}
}

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type queryRequest struct {
	Query           string        `json:"query"`
	SessionID       string        `json:"session_id"`
	PageURL         string        `json:"page_url"`
	History         []historyTurn `json:"history"`
	IncludeMetadata bool          `json:"include_metadata"`
}

func (h *QueryHandler) runQuery(c *fiber.Ctx, bot *domain.Bot, caller string) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.New(apperr.KindValidationFailed, "invalid request body"))
	}
	if req.Query == "" {
		return fail(c, apperr.New(apperr.KindValidationFailed, "query is required"))
	}

	limit := bot.RateLimitPerMin
	if limit <= 0 {
		limit = h.defaultRateLimit
	}
	allowed, _, err := h.limiter.Allow(c.Context(), bot.ID, limit)
	if err != nil {
		return fail(c, err)
	}
	if !allowed {
		retryAfter := ratelimiter.RetryAfterSeconds(time.Now())
		c.Set("Retry-After", strconv.Itoa(retryAfter))
		return fail(c, ratelimiter.RateLimitedError(retryAfter))
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history := make([]promptcomposer.HistoryTurn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, promptcomposer.HistoryTurn{Role: turn.Role, Content: turn.Content})
	}
	if len(history) > 5 {
		history = history[len(history)-5:]
	}

	resp, err := h.engine.Query(c.Context(), queryengine.Request{
		Bot:             bot,
		QueryText:       req.Query,
		SessionID:       sessionID,
		PageURL:         req.PageURL,
		History:         history,
		IncludeMetadata: req.IncludeMetadata,
		Caller:          caller,
	})
	if err != nil {
		return fail(c, err)
	}

	return ok(c, fiber.Map{
		"answer":            resp.Answer,
		"citations":         resp.Citations,
		"confidence":        resp.Confidence,
		"session_id":        resp.SessionID,
		"prompt_tokens":     resp.PromptTokens,
		"completion_tokens": resp.CompletionTokens,
		"latency_ms":        resp.LatencyMS,
	})
}

// Dashboard handles POST /bots/{id}/query: authenticated owner queries,
// with metadata-enriched citations allowed.
func (h *QueryHandler) Dashboard(c *fiber.Ctx) error {
	bot, err := h.bots.GetBotOwned(c.Context(), c.Params("id"), UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return h.runQuery(c, bot, "owner")
}

// Widget handles POST /widget/query: widget-token-authorized public
// queries, scoped to the bot resolved by the token.
func (h *QueryHandler) Widget(c *fiber.Ctx) error {
	bot, err := h.bots.GetBot(c.Context(), WidgetBotID(c))
	if err != nil {
		return fail(c, err)
	}
	return h.runQuery(c, bot, "widget")
}
