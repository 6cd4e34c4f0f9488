package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"tillbox/internal/auth"
	applog "tillbox/internal/log"
	"tillbox/internal/report"
	"tillbox/internal/services"
)

type ReportHandler struct {
	Catalog *services.CatalogService
	Fetch   report.ImageFetcher
}

// Generate renders the tenant's full stock report as a PDF attachment.
func (h *ReportHandler) Generate(c *fiber.Ctx) error {
	tenant := auth.TenantID(c)

	products, err := h.Catalog.ListAll(c.UserContext(), tenant)
	if err != nil {
		return failErr(c, "report.generate", err)
	}

	now := time.Now()
	pdf, err := report.Stock(c.UserContext(), products, h.Fetch, now)
	if err != nil {
		return failErr(c, "report.generate", err)
	}

	applog.Audit(c, "report.generate", map[string]any{"products": len(products)})
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition,
		`attachment; filename="stock_report_`+now.Format("20060102")+`.pdf"`)
	return c.Send(pdf)
}
