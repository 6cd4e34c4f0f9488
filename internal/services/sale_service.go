package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tillbox/internal/docstore"
	"tillbox/internal/domain"
	"tillbox/internal/repos"
)

// SaleInput is one requested line of a sale. The selling price is the
// client's; the import price is never taken from the client.
type SaleInput struct {
	ItemNumber   string          `json:"item_number" validate:"required"`
	Quantity     int64           `json:"quantity" validate:"min=1"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// SaleService keeps product stock consistent with recorded sales. Every
// mutating operation is exactly one store transaction: it either fully
// applies or has no effect.
type SaleService struct {
	store   docstore.Store
	catalog *repos.CatalogRepo
	sales   *repos.SalesRepo

	now   func() time.Time
	newID func() string
}

func NewSaleService(store docstore.Store, catalog *repos.CatalogRepo, sales *repos.SalesRepo) *SaleService {
	return &SaleService{
		store:   store,
		catalog: catalog,
		sales:   sales,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Record atomically validates stock for every line, decrements the product
// quantities and creates the sale document. Validation of all lines completes
// before any write is staged; a single failing line rejects the whole sale.
func (s *SaleService) Record(ctx context.Context, tenant string, items []SaleInput) (domain.Sale, error) {
	if len(items) == 0 {
		return domain.Sale{}, fmt.Errorf("sale must contain at least one item: %w", domain.ErrValidation)
	}
	for _, in := range items {
		if domain.NormalizeItemNumber(in.ItemNumber) == "" {
			return domain.Sale{}, fmt.Errorf("line item missing item number: %w", domain.ErrValidation)
		}
		if in.Quantity < 1 {
			return domain.Sale{}, fmt.Errorf("line item quantity must be at least 1: %w", domain.ErrValidation)
		}
		if in.SellingPrice.IsNegative() {
			return domain.Sale{}, fmt.Errorf("selling price cannot be negative: %w", domain.ErrValidation)
		}
	}

	var sale domain.Sale
	err := s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		products := make(map[string]domain.Product)
		remaining := make(map[string]int64)
		lines := make([]domain.LineItem, 0, len(items))
		total := decimal.Zero

		for _, in := range items {
			key := domain.NormalizeItemNumber(in.ItemNumber)
			p, ok := products[key]
			if !ok {
				var err error
				p, err = s.catalog.GetTx(tx, tenant, key)
				if err != nil {
					return err
				}
				products[key] = p
				remaining[key] = p.Quantity
			}
			// Lines for the same product draw down one shared on-hand count.
			if remaining[key] < in.Quantity {
				name := p.ItemName
				if name == "" {
					name = key
				}
				return &domain.InsufficientStockError{
					ItemName:  name,
					Requested: in.Quantity,
					Available: remaining[key],
				}
			}
			remaining[key] -= in.Quantity

			lines = append(lines, domain.LineItem{
				ItemNumber:   key,
				Quantity:     in.Quantity,
				SellingPrice: in.SellingPrice,
				ImportPrice:  p.ImportPrice,
			})
			total = total.Add(in.SellingPrice.Mul(decimal.NewFromInt(in.Quantity)))
		}

		// Every line validated; stage all decrements and the sale together.
		for key, qty := range remaining {
			s.catalog.StageQuantity(tx, tenant, key, qty)
		}
		sale = domain.Sale{
			ID:          s.newID(),
			Items:       lines,
			TotalAmount: total,
			Timestamp:   s.now().Unix(),
		}
		s.sales.StageCreate(tx, tenant, sale)
		return nil
	})
	if err != nil {
		return domain.Sale{}, mapTxErr(err)
	}
	return sale, nil
}

// Delete removes a sale and restores exactly the quantities it decremented,
// atomically. Restores are staged as commutative increments, so they cannot
// lose updates against unrelated concurrent writers. A line whose product was
// cascade-deleted in the meantime cannot be restored; the store rejects the
// increment rather than recreating a stub, and the retry resolves against the
// cascade (which removes the sale itself).
func (s *SaleService) Delete(ctx context.Context, tenant, saleID string) error {
	err := s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		sale, err := s.sales.GetTx(tx, tenant, saleID)
		if err != nil {
			return err
		}
		restore := make(map[string]int64)
		for _, it := range sale.Items {
			key := domain.NormalizeItemNumber(it.ItemNumber)
			if key == "" || it.Quantity <= 0 {
				continue
			}
			restore[key] += it.Quantity
		}
		for key, qty := range restore {
			s.catalog.StageQuantityIncrement(tx, tenant, key, qty)
		}
		s.sales.StageDelete(tx, tenant, saleID)
		return nil
	})
	return mapTxErr(err)
}

// List returns sales with timestamp in [from, to) (both zero = all), newest
// first, plus the recomputed total profit of the returned set.
func (s *SaleService) List(ctx context.Context, tenant string, from, to int64) ([]domain.Sale, decimal.Decimal, error) {
	sales, err := s.sales.ListBetween(ctx, tenant, from, to)
	if err != nil {
		return nil, decimal.Zero, err
	}
	profit := decimal.Zero
	for _, sale := range sales {
		profit = profit.Add(sale.Profit())
	}
	return sales, profit, nil
}

// mapTxErr translates store-level conflict exhaustion into the domain error
// callers are told to retry on.
func mapTxErr(err error) error {
	if errors.Is(err, docstore.ErrTxConflict) {
		return fmt.Errorf("operation did not commit after retries: %w", domain.ErrConflict)
	}
	return err
}
