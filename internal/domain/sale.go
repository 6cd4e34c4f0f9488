package domain

import "github.com/shopspring/decimal"

// LineItem is one product/quantity/price entry within a sale. ImportPrice is
// snapshotted from the product at sale time and never re-read.
type LineItem struct {
	ItemNumber   string          `json:"item_number"`
	Quantity     int64           `json:"quantity"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	ImportPrice  decimal.Decimal `json:"import_price"`
}

// Sale is immutable once recorded, except for deletion (which restores stock).
type Sale struct {
	ID          string          `json:"id"`
	Items       []LineItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Timestamp   int64           `json:"timestamp"` // epoch seconds
}

// Profit returns the sale's contribution to total profit:
// sum of (selling - import) * quantity over its line items.
func (s Sale) Profit() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		margin := it.SellingPrice.Sub(it.ImportPrice)
		total = total.Add(margin.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total
}

// ItemNumbers returns the distinct item numbers referenced by the sale.
func (s Sale) ItemNumbers() []string {
	seen := make(map[string]struct{}, len(s.Items))
	var out []string
	for _, it := range s.Items {
		if it.ItemNumber == "" {
			continue
		}
		if _, ok := seen[it.ItemNumber]; ok {
			continue
		}
		seen[it.ItemNumber] = struct{}{}
		out = append(out, it.ItemNumber)
	}
	return out
}
