package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/internal/widgettoken"
)

type WidgetTokenStore interface {
	ListWidgetTokensByBot(ctx context.Context, botID string) ([]domain.WidgetToken, error)
	RevokeWidgetToken(ctx context.Context, id string) error
}

type WidgetTokenHandler struct {
	bots   BotStore
	tokens *widgettoken.Service
	store  WidgetTokenStore
}

func NewWidgetTokenHandler(bots BotStore, tokens *widgettoken.Service, store WidgetTokenStore) *WidgetTokenHandler {
	return &WidgetTokenHandler{bots: bots, tokens: tokens, store: store}
}

type createWidgetTokenRequest struct {
	Name           string   `json:"name"`
	AllowedDomains []string `json:"allowed_domains"`
	ExpiresInDays  int      `json:"expires_in_days"`
}

func (h *WidgetTokenHandler) Create(c *fiber.Ctx) error {
	bot, err := h.bots.GetBotOwned(c.Context(), c.Params("id"), UserID(c))
	if err != nil {
		return fail(c, err)
	}

	var req createWidgetTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.New(apperr.KindValidationFailed, "invalid request body"))
	}

	var expiresAt *time.Time
	if req.ExpiresInDays > 0 {
		t := time.Now().Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour)
		expiresAt = &t
	}

	result, err := h.tokens.Create(c.Context(), bot.ID, req.Name, req.AllowedDomains, expiresAt)
	if err != nil {
		return fail(c, err)
	}

	return created(c, fiber.Map{
		"token":        result.Plaintext,
		"widget_token": result.Token,
	})
}

func (h *WidgetTokenHandler) List(c *fiber.Ctx) error {
	bot, err := h.bots.GetBotOwned(c.Context(), c.Params("id"), UserID(c))
	if err != nil {
		return fail(c, err)
	}
	tokens, err := h.store.ListWidgetTokensByBot(c.Context(), bot.ID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, tokens)
}

func (h *WidgetTokenHandler) Revoke(c *fiber.Ctx) error {
	if _, err := h.bots.GetBotOwned(c.Context(), c.Params("id"), UserID(c)); err != nil {
		return fail(c, err)
	}
	if err := h.store.RevokeWidgetToken(c.Context(), c.Params("tid")); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"revoked": true})
}
