package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"tillbox/internal/auth"
	"tillbox/internal/domain"
	applog "tillbox/internal/log"
	"tillbox/internal/services"
	"tillbox/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	tenant := auth.TenantID(c)
	limit := validate.Limit(c.Query("limit"))

	products, hasMore, err := h.Catalog.List(c.UserContext(), tenant, limit, c.Query("start_after"))
	if err != nil {
		return failErr(c, "products.list", err)
	}
	body := fiber.Map{"products": products, "has_more": hasMore}
	if hasMore && len(products) > 0 {
		body["next_cursor"] = products[len(products)-1].ItemNumber
	}
	return ok(c, body)
}

// Upsert handles the multipart create-or-update form: scalar product fields,
// an existing_image_urls JSON field naming the stored images the client kept,
// and zero or more uploaded images.
func (h *ProductHandler) Upsert(c *fiber.Ctx) error {
	tenant := auth.TenantID(c)

	itemNumber, valid := validate.ItemNumber(c.FormValue("item_number"))
	if !valid {
		applog.Security(c, "validation.fail", map[string]any{"field": "item_number"})
		return fail(c, fiber.StatusBadRequest, "Invalid item number.")
	}
	itemName := strings.TrimSpace(c.FormValue("item_name"))
	if itemName == "" {
		return fail(c, fiber.StatusBadRequest, "Item name is required.")
	}

	quantity, err := strconv.ParseInt(strings.TrimSpace(c.FormValue("quantity", "0")), 10, 64)
	if err != nil || quantity < 0 {
		return fail(c, fiber.StatusBadRequest, "Quantity must be a non-negative integer.")
	}
	importPrice, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("import_price", "0")))
	if err != nil || importPrice.IsNegative() {
		return fail(c, fiber.StatusBadRequest, "Import price must be a non-negative number.")
	}
	sellingPrice, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("selling_price", "0")))
	if err != nil || sellingPrice.IsNegative() {
		return fail(c, fiber.StatusBadRequest, "Selling price must be a non-negative number.")
	}

	var keepURLs []string
	if raw := c.FormValue("existing_image_urls"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &keepURLs); err != nil {
			return fail(c, fiber.StatusBadRequest, "existing_image_urls must be a JSON array of strings.")
		}
	}

	var uploads []services.ImageUpload
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["images"] {
			f, err := fh.Open()
			if err != nil {
				return failErr(c, "products.upsert.open", err)
			}
			// Buffer each part and close it right away; the bodies are
			// uploaded later in the request and a deferred close would
			// hold every file handle open for the handler's lifetime.
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return failErr(c, "products.upsert.read", err)
			}
			uploads = append(uploads, services.ImageUpload{
				ContentType: fh.Header.Get("Content-Type"),
				Body:        bytes.NewReader(data),
			})
		}
	}

	p := domain.Product{
		ItemNumber:   itemNumber,
		ItemName:     itemName,
		Type:         strings.TrimSpace(c.FormValue("type")),
		Quantity:     quantity,
		ImportPrice:  importPrice,
		SellingPrice: sellingPrice,
	}
	saved, err := h.Catalog.Upsert(c.UserContext(), tenant, p, keepURLs, uploads)
	if err != nil {
		return failErr(c, "products.upsert", err)
	}

	applog.Audit(c, "product.upsert", map[string]any{"item_number": saved.ItemNumber})
	return ok(c, fiber.Map{"message": "Product saved successfully.", "product": saved})
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	tenant := auth.TenantID(c)
	itemNumber, valid := validate.ItemNumber(c.Params("itemNumber"))
	if !valid {
		applog.Security(c, "validation.fail", map[string]any{"field": "item_number"})
		return fail(c, fiber.StatusBadRequest, "Invalid item number.")
	}
	if err := h.Catalog.Delete(c.UserContext(), tenant, itemNumber); err != nil {
		return failErr(c, "products.delete", err)
	}
	applog.Audit(c, "product.delete", map[string]any{"item_number": itemNumber})
	return ok(c, fiber.Map{"message": "Product and associated sales deleted."})
}
