package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tillbox/internal/auth"
	"tillbox/internal/domain"
	applog "tillbox/internal/log"
	"tillbox/internal/repos"
)

type SettingsHandler struct {
	Settings *repos.SettingsRepo
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.Settings.Get(c.UserContext(), auth.TenantID(c))
	if err != nil {
		return failErr(c, "settings.get", err)
	}
	return ok(c, fiber.Map{"settings": settings})
}

// Update merge-patches the posted fields into the settings document; fields
// not named are left untouched.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req domain.StoreSettings
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Malformed request body.")
	}
	if len(req) == 0 {
		return fail(c, fiber.StatusBadRequest, "No settings provided.")
	}
	if err := h.Settings.Merge(c.UserContext(), auth.TenantID(c), req); err != nil {
		return failErr(c, "settings.update", err)
	}
	applog.Audit(c, "settings.update", map[string]any{"fields": len(req)})
	return ok(c, fiber.Map{"message": "Settings saved."})
}
