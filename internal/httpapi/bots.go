package httpapi

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
)

type BotStore interface {
	CreateBot(ctx context.Context, b *domain.Bot) (*domain.Bot, error)
	GetBot(ctx context.Context, id string) (*domain.Bot, error)
	GetBotOwned(ctx context.Context, id, ownerUserID string) (*domain.Bot, error)
	ListBotsByOwner(ctx context.Context, ownerUserID string) ([]domain.Bot, error)
	UpdateBot(ctx context.Context, b *domain.Bot) error
	DeleteBot(ctx context.Context, id string) error
}

type BotHandler struct {
	store BotStore
}

func NewBotHandler(store BotStore) *BotHandler {
	return &BotHandler{store: store}
}

type createBotRequest struct {
	Name            string  `json:"name"`
	SystemPrompt    string  `json:"system_prompt"`
	TopK            int     `json:"top_k"`
	MinScore        float64 `json:"min_score"`
	RateLimitPerMin int     `json:"rate_limit_per_min"`
	LLMModel        string  `json:"llm_model"`
	LLMTemperature  float32 `json:"llm_temperature"`
	LLMMaxTokens    int     `json:"llm_max_tokens"`
}

func (h *BotHandler) Create(c *fiber.Ctx) error {
	var req createBotRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.New(apperr.KindValidationFailed, "invalid request body"))
	}
	if req.Name == "" || req.SystemPrompt == "" {
		return fail(c, apperr.New(apperr.KindValidationFailed, "name and system_prompt are required"))
	}

	bot := &domain.Bot{
		OwnerUserID:     UserID(c),
		Name:            req.Name,
		SystemPrompt:    req.SystemPrompt,
		TopK:            req.TopK,
		MinScore:        req.MinScore,
		RateLimitPerMin: req.RateLimitPerMin,
		LLMModel:        req.LLMModel,
		LLMTemperature:  req.LLMTemperature,
		LLMMaxTokens:    req.LLMMaxTokens,
	}

	result, err := h.store.CreateBot(c.Context(), bot)
	if err != nil {
		return fail(c, err)
	}
	return created(c, result)
}

func (h *BotHandler) List(c *fiber.Ctx) error {
	bots, err := h.store.ListBotsByOwner(c.Context(), UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, bots)
}

func (h *BotHandler) Get(c *fiber.Ctx) error {
	bot, err := h.store.GetBotOwned(c.Context(), c.Params("id"), UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, bot)
}

type updateBotRequest struct {
	Name            *string  `json:"name"`
	SystemPrompt    *string  `json:"system_prompt"`
	TopK            *int     `json:"top_k"`
	MinScore        *float64 `json:"min_score"`
	RateLimitPerMin *int     `json:"rate_limit_per_min"`
	LLMModel        *string  `json:"llm_model"`
	LLMTemperature  *float32 `json:"llm_temperature"`
	LLMMaxTokens    *int     `json:"llm_max_tokens"`
}

func (h *BotHandler) Update(c *fiber.Ctx) error {
	bot, err := h.store.GetBotOwned(c.Context(), c.Params("id"), UserID(c))
	if err != nil {
		return fail(c, err)
	}

	var req updateBotRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.New(apperr.KindValidationFailed, "invalid request body"))
	}

	if req.Name != nil {
		bot.Name = *req.Name
	}
	if req.SystemPrompt != nil {
		bot.SystemPrompt = *req.SystemPrompt
	}
	if req.TopK != nil {
		bot.TopK = *req.TopK
	}
	if req.MinScore != nil {
		bot.MinScore = *req.MinScore
	}
	if req.RateLimitPerMin != nil {
		bot.RateLimitPerMin = *req.RateLimitPerMin
	}
	if req.LLMModel != nil {
		bot.LLMModel = *req.LLMModel
	}
	if req.LLMTemperature != nil {
		bot.LLMTemperature = *req.LLMTemperature
	}
	if req.LLMMaxTokens != nil {
		bot.LLMMaxTokens = *req.LLMMaxTokens
	}

	if err := h.store.UpdateBot(c.Context(), bot); err != nil {
		return fail(c, err)
	}
	return ok(c, bot)
}

func (h *BotHandler) Delete(c *fiber.Ctx) error {
	if _, err := h.store.GetBotOwned(c.Context(), c.Params("id"), UserID(c)); err != nil {
		return fail(c, err)
	}
	if err := h.store.DeleteBot(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"deleted": true})
}
