// Package report renders the stock PDF report. Layout is intentionally
// plain: a header line and one table row per product, with the product's
// first image when it can be fetched.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-pdf/fpdf"

	"tillbox/internal/domain"
)

// ImageFetcher retrieves image bytes for a public URL. Fetch failures only
// blank the image cell; they never fail the report.
type ImageFetcher func(ctx context.Context, url string) ([]byte, error)

// HTTPFetcher builds an ImageFetcher over the given client.
func HTTPFetcher(client *http.Client) ImageFetcher {
	return func(ctx context.Context, url string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	}
}

const (
	rowH  = 18.0
	headH = 8.0
)

var colWidths = []float64{24, 30, 58, 16, 34, 34}

// Stock renders the inventory report for the given products, ordered as
// passed (item number ascending from the catalog).
func Stock(ctx context.Context, products []domain.Product, fetch ImageFetcher, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Stock & Inventory Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Report generated on: "+generatedAt.Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if len(products) == 0 {
		pdf.CellFormat(0, 8, "No products in inventory.", "", 1, "L", false, 0, "")
		return output(pdf)
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(120, 120, 120)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range []string{"Image", "Item #", "Name", "Qty", "Import Price", "Selling Price"} {
		pdf.CellFormat(colWidths[i], headH, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 220)
	for _, p := range products {
		x, y := pdf.GetX(), pdf.GetY()

		pdf.CellFormat(colWidths[0], rowH, "", "1", 0, "C", true, 0, "")
		drawImage(ctx, pdf, fetch, firstImage(p), x, y)

		pdf.CellFormat(colWidths[1], rowH, p.ItemNumber, "1", 0, "C", true, 0, "")
		pdf.CellFormat(colWidths[2], rowH, p.ItemName, "1", 0, "C", true, 0, "")
		pdf.CellFormat(colWidths[3], rowH, fmt.Sprintf("%d", p.Quantity), "1", 0, "C", true, 0, "")
		pdf.CellFormat(colWidths[4], rowH, "$"+p.ImportPrice.StringFixed(2), "1", 0, "C", true, 0, "")
		pdf.CellFormat(colWidths[5], rowH, "$"+p.SellingPrice.StringFixed(2), "1", 0, "C", true, 0, "")
		pdf.Ln(-1)
	}

	return output(pdf)
}

func firstImage(p domain.Product) string {
	if len(p.ImageURLs) > 0 {
		return p.ImageURLs[0]
	}
	return p.ImageURL
}

func drawImage(ctx context.Context, pdf *fpdf.Fpdf, fetch ImageFetcher, url string, x, y float64) {
	if url == "" || fetch == nil {
		return
	}
	data, err := fetch(ctx, url)
	if err != nil {
		return
	}
	var imgType string
	switch http.DetectContentType(data) {
	case "image/png":
		imgType = "PNG"
	case "image/jpeg":
		imgType = "JPG"
	case "image/gif":
		imgType = "GIF"
	default:
		return
	}
	opts := fpdf.ImageOptions{ImageType: imgType}
	pdf.RegisterImageOptionsReader(url, opts, bytes.NewReader(data))
	// Inset the image inside its bordered cell.
	pdf.ImageOptions(url, x+2, y+2, colWidths[0]-4, rowH-4, false, opts, 0, "")
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
