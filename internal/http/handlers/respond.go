package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"tillbox/internal/domain"
	applog "tillbox/internal/log"
)

func ok(c *fiber.Ctx, body fiber.Map) error {
	if body == nil {
		body = fiber.Map{}
	}
	body["success"] = true
	return c.JSON(body)
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": msg})
}

// failErr maps domain errors onto HTTP statuses. Anything unrecognized is a
// 500 and gets logged; domain errors carry their own caller-facing message.
func failErr(c *fiber.Ctx, event string, err error) error {
	var stock *domain.InsufficientStockError
	switch {
	case errors.As(err, &stock):
		return fail(c, fiber.StatusBadRequest, stock.Error())
	case errors.Is(err, domain.ErrValidation):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAuth):
		return fail(c, fiber.StatusUnauthorized, "Invalid token.")
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Not found.")
	case errors.Is(err, domain.ErrExists):
		return fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fail(c, fiber.StatusConflict, "Conflicting update, please retry.")
	default:
		applog.Error(c, event, err, nil)
		return fail(c, fiber.StatusInternalServerError, "Internal server error.")
	}
}
