package serverutils

import (
	"errors"

	"canvasthink-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders every error as {"error": message}. Unexpected errors
// are logged and hidden behind a generic message.
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		log.Error("HTTP", "Unhandled error", map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
			"error":  err.Error(),
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
