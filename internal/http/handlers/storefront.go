package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tillbox/internal/repos"
	"tillbox/internal/services"
)

// StorefrontHandler serves the unauthenticated, read-only store views. The
// tenant id comes from the URL, not from a token.
type StorefrontHandler struct {
	Catalog  *services.CatalogService
	Settings *repos.SettingsRepo
}

func (h *StorefrontHandler) Index(c *fiber.Ctx) error {
	return render(c, "index", nil)
}

func (h *StorefrontHandler) Page(c *fiber.Ctx) error {
	tenant := c.Params("tenantID")
	if tenant == "" {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{
			"Message": "This store does not exist.",
		})
	}
	return render(c, "store", fiber.Map{"TenantID": tenant})
}

// Data returns the public catalog and settings for one store. Stock counts
// go stale quickly, so caching is disabled.
func (h *StorefrontHandler) Data(c *fiber.Ctx) error {
	tenant := c.Params("tenantID")
	if tenant == "" {
		return fail(c, fiber.StatusBadRequest, "Store id is required.")
	}

	products, err := h.Catalog.ListAll(c.UserContext(), tenant)
	if err != nil {
		return failErr(c, "storefront.data", err)
	}
	settings, err := h.Settings.Get(c.UserContext(), tenant)
	if err != nil {
		return failErr(c, "storefront.data", err)
	}

	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, max-age=0")
	c.Set("Pragma", "no-cache")
	c.Set("Expires", "0")
	return ok(c, fiber.Map{"products": products, "settings": settings})
}
