package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/auth"
	"github.com/relayforge/knowbase/internal/widgettoken"
)

const localsUserID = "user_id"
const localsWidgetBotID = "widget_bot_id"

// RequireUser extracts and verifies a user bearer token, storing the
// resolved principal id in locals for downstream handlers.
func RequireUser(verifier *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return fail(c, apperr.New(apperr.KindUnauthorized, "missing authorization header"))
		}
		userID, err := verifier.VerifySubject(header)
		if err != nil {
			return fail(c, err)
		}
		c.Locals(localsUserID, userID)
		return c.Next()
	}
}

func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsUserID).(string)
	return id
}

// RequireWidgetToken validates the bearer token against the widget token
// store and enforces the allowed-domain check against Origin/Referer,
// storing the resolved bot id in locals.
func RequireWidgetToken(svc *widgettoken.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return fail(c, apperr.New(apperr.KindUnauthorized, "missing authorization header"))
		}
		presented := strings.TrimPrefix(header, "Bearer ")
		presented = strings.TrimSpace(presented)

		origin := c.Get("Origin")
		if origin == "" {
			origin = c.Get("Referer")
		}

		result, err := svc.Validate(c.Context(), presented, origin)
		if err != nil {
			return fail(c, err)
		}
		c.Locals(localsWidgetBotID, result.BotID)
		return c.Next()
	}
}

func WidgetBotID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsWidgetBotID).(string)
	return id
}
