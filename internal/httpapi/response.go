// Package httpapi wires fiber handlers and middleware implementing the
// HTTP surface: bots, sources, widget tokens, and queries,
// behind the {status, data, message} response envelope.
package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/pkg/logger"
)

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"data":    data,
		"message": "",
	})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"data":    data,
		"message": "",
	})
}

// fail maps an apperr.AppError to its HTTP status and renders the
// envelope's error branch; any other error is treated as Internal.
func fail(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	if status >= 500 {
		logger.Error("request failed", zap.Error(err), zap.String("kind", string(kind)))
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"data":    nil,
		"message": err.Error(),
		"code":    string(kind),
	})
}
