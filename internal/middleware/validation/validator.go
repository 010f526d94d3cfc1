// Package validation narrows request shape before it reaches a handler by
// enforcing content types on mutating requests; it does not limit query
// text length. SQL/XSS content scanning is unnecessary here since every
// mutating endpoint binds into a typed struct and every read is
// parameterized through pgx — there is no string concatenated into SQL
// anywhere downstream.
package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/relayforge/knowbase/internal/apperr"
)

type Config struct {
	AllowedContentTypes []string
}

func Middleware(cfg Config) fiber.Handler {
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "multipart/form-data"}
	}

	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method != fiber.MethodPost && method != fiber.MethodPatch && method != fiber.MethodPut {
			return c.Next()
		}

		contentType := c.Get("Content-Type")
		if contentType == "" {
			return c.Next()
		}

		allowed := false
		for _, t := range cfg.AllowedContentTypes {
			if strings.Contains(contentType, t) {
				allowed = true
				break
			}
		}
		if !allowed {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"status":  "error",
				"message": "unsupported content type",
				"code":    string(apperr.KindUnsupportedFormat),
			})
		}

		return c.Next()
	}
}
