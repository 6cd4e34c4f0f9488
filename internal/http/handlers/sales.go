package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"tillbox/internal/auth"
	applog "tillbox/internal/log"
	"tillbox/internal/metrics"
	"tillbox/internal/services"
	"tillbox/internal/validate"
)

type SaleHandler struct {
	Sales *services.SaleService
}

// List returns sales newest-first, optionally filtered to one day
// (?date=YYYY-MM-DD) or one calendar month (?month=YYYY-MM), with the total
// profit of the returned set.
func (h *SaleHandler) List(c *fiber.Ctx) error {
	tenant := auth.TenantID(c)

	var from, to int64
	var err error
	switch {
	case c.Query("date") != "":
		from, to, err = validate.DayWindow(c.Query("date"), time.Local)
	case c.Query("month") != "":
		from, to, err = validate.MonthWindow(c.Query("month"), time.Local)
	}
	if err != nil {
		return failErr(c, "sales.list", err)
	}

	sales, profit, err := h.Sales.List(c.UserContext(), tenant, from, to)
	if err != nil {
		return failErr(c, "sales.list", err)
	}
	return ok(c, fiber.Map{"sales": sales, "total_profit": profit})
}

func (h *SaleHandler) Record(c *fiber.Ctx) error {
	tenant := auth.TenantID(c)

	var req struct {
		Items []services.SaleInput `json:"items" validate:"required,min=1,dive"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Malformed request body.")
	}
	if err := validate.Struct(&req); err != nil {
		return failErr(c, "sales.record", err)
	}

	sale, err := h.Sales.Record(c.UserContext(), tenant, req.Items)
	if err != nil {
		metrics.SaleOpsTotal.WithLabelValues("record", "error").Inc()
		return failErr(c, "sales.record", err)
	}
	metrics.SaleOpsTotal.WithLabelValues("record", "ok").Inc()
	applog.Audit(c, "sale.record", map[string]any{"sale_id": sale.ID, "lines": len(sale.Items)})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "sale": sale})
}

func (h *SaleHandler) Delete(c *fiber.Ctx) error {
	tenant := auth.TenantID(c)
	saleID := c.Params("saleID")
	if saleID == "" {
		return fail(c, fiber.StatusBadRequest, "Sale id is required.")
	}
	if err := h.Sales.Delete(c.UserContext(), tenant, saleID); err != nil {
		metrics.SaleOpsTotal.WithLabelValues("delete", "error").Inc()
		return failErr(c, "sales.delete", err)
	}
	metrics.SaleOpsTotal.WithLabelValues("delete", "ok").Inc()
	applog.Audit(c, "sale.delete", map[string]any{"sale_id": saleID})
	return ok(c, fiber.Map{"message": "Sale deleted and stock restored."})
}
