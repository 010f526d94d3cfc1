package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/relayforge/knowbase/internal/auth"
	"github.com/relayforge/knowbase/internal/metrics"
	"github.com/relayforge/knowbase/internal/widgettoken"
)

// Register mounts every route under /api/v1 (and the
// unprefixed /widget/query), plus /metrics.
func Register(
	app *fiber.App,
	verifier *auth.Verifier,
	widgetTokens *widgettoken.Service,
	botHandler *BotHandler,
	sourceHandler *SourceHandler,
	tokenHandler *WidgetTokenHandler,
	queryHandler *QueryHandler,
) {
	app.Get("/metrics", metrics.Handler())

	unauth := app.Group("/api/v1")
	unauth.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	unauth.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// Widget CORS must be permissive at the transport layer; domain
	// enforcement happens inside RequireWidgetToken via allowed_domains.
	widget := app.Group("/widget", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "POST, OPTIONS",
		AllowHeaders: "Authorization, Content-Type",
	}))
	widget.Post("/query", RequireWidgetToken(widgetTokens), queryHandler.Widget)

	api := app.Group("/api/v1", RequireUser(verifier))

	api.Post("/bots", botHandler.Create)
	api.Get("/bots", botHandler.List)
	api.Get("/bots/:id", botHandler.Get)
	api.Patch("/bots/:id", botHandler.Update)
	api.Delete("/bots/:id", botHandler.Delete)

	api.Post("/bots/:id/sources/upload", sourceHandler.Upload)
	api.Post("/bots/:id/sources/url", sourceHandler.SubmitURL)
	api.Get("/bots/:id/sources", sourceHandler.List)
	api.Get("/bots/:id/sources/:sid", sourceHandler.Get)
	api.Post("/bots/:id/sources/:sid/retry", sourceHandler.Retry)
	api.Delete("/bots/:id/sources/:sid", sourceHandler.Delete)

	api.Post("/bots/:id/widget-tokens", tokenHandler.Create)
	api.Get("/bots/:id/widget-tokens", tokenHandler.List)
	api.Delete("/bots/:id/widget-tokens/:tid", tokenHandler.Revoke)

	api.Post("/bots/:id/query", queryHandler.Dashboard)
}
