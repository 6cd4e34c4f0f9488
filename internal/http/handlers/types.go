package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tillbox/internal/auth"
	"tillbox/internal/repos"
)

type TypeHandler struct {
	Types *repos.TypesRepo
}

func (h *TypeHandler) List(c *fiber.Ctx) error {
	types, err := h.Types.List(c.UserContext(), auth.TenantID(c))
	if err != nil {
		return failErr(c, "types.list", err)
	}
	return ok(c, fiber.Map{"types": types})
}

func (h *TypeHandler) Add(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Malformed request body.")
	}
	t, err := h.Types.Add(c.UserContext(), auth.TenantID(c), req.Name)
	if err != nil {
		return failErr(c, "types.add", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "type": t})
}

func (h *TypeHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("typeID")
	if id == "" {
		return fail(c, fiber.StatusBadRequest, "Type id is required.")
	}
	if err := h.Types.Delete(c.UserContext(), auth.TenantID(c), id); err != nil {
		return failErr(c, "types.delete", err)
	}
	return ok(c, fiber.Map{"message": "Type deleted."})
}
