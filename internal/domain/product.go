package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is one catalog entry, keyed by item number within a tenant.
type Product struct {
	ItemNumber   string          `json:"item_number"`
	ItemName     string          `json:"item_name"`
	Type         string          `json:"type,omitempty"`
	Quantity     int64           `json:"quantity"`
	ImportPrice  decimal.Decimal `json:"import_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	ImageURLs    []string        `json:"image_urls"`
	// ImageURL mirrors the first entry of ImageURLs for older consumers.
	ImageURL string `json:"image_url"`
}

// NormalizeItemNumber maps an item number to its canonical document key.
func NormalizeItemNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ProductType is a free-standing tag; no referential integrity with products.
type ProductType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StoreSettings is a free-form, merge-patched settings document.
type StoreSettings map[string]any
