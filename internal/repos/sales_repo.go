package repos

import (
	"context"
	"errors"
	"fmt"

	"tillbox/internal/docstore"
	"tillbox/internal/domain"
)

// SalesRepo is typed access to per-tenant sale documents. Sales are only ever
// created and deleted inside transactions owned by the sale engine.
type SalesRepo struct {
	store docstore.Store
}

func NewSalesRepo(store docstore.Store) *SalesRepo {
	return &SalesRepo{store: store}
}

// GetTx reads a sale inside a transaction.
func (r *SalesRepo) GetTx(tx docstore.Tx, tenant, id string) (domain.Sale, error) {
	doc, err := tx.Get(salesCol(tenant), id)
	if errors.Is(err, docstore.ErrDocMissing) {
		return domain.Sale{}, fmt.Errorf("sale %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Sale{}, err
	}
	return decodeSale(id, doc), nil
}

// StageCreate stages a new sale document.
func (r *SalesRepo) StageCreate(tx docstore.Tx, tenant string, s domain.Sale) {
	tx.Set(salesCol(tenant), s.ID, encodeSale(s))
}

// StageDelete stages removal of a sale document.
func (r *SalesRepo) StageDelete(tx docstore.Tx, tenant, id string) {
	tx.Delete(salesCol(tenant), id)
}

// ListBetween returns sales with timestamp in [from, to), newest first.
// from/to of zero mean an unbounded edge.
func (r *SalesRepo) ListBetween(ctx context.Context, tenant string, from, to int64) ([]domain.Sale, error) {
	q := docstore.Query{
		Col:     salesCol(tenant),
		OrderBy: "timestamp",
		Desc:    true,
	}
	if from != 0 || to != 0 {
		q.Filters = []docstore.Filter{
			{Field: "timestamp", Op: docstore.OpGTE, Value: from},
			{Field: "timestamp", Op: docstore.OpLT, Value: to},
		}
	}
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Sale, 0, len(docs))
	for _, doc := range docs {
		out = append(out, decodeSale(docstore.AsString(doc[docstore.KeyField]), doc))
	}
	return out, nil
}

// QueryByItemTx returns, inside a transaction, every sale whose line items
// reference the given item number. All returned sales are registered for
// conflict detection.
func (r *SalesRepo) QueryByItemTx(tx docstore.Tx, tenant, itemNumber string) ([]domain.Sale, error) {
	docs, err := tx.Query(docstore.Query{
		Col: salesCol(tenant),
		Filters: []docstore.Filter{
			{Field: "item_numbers", Op: docstore.OpContains, Value: domain.NormalizeItemNumber(itemNumber)},
		},
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Sale, 0, len(docs))
	for _, doc := range docs {
		out = append(out, decodeSale(docstore.AsString(doc[docstore.KeyField]), doc))
	}
	return out, nil
}

func encodeSale(s domain.Sale) docstore.Doc {
	items := make([]docstore.Doc, len(s.Items))
	for i, it := range s.Items {
		items[i] = docstore.Doc{
			"item_number":   it.ItemNumber,
			"quantity":      it.Quantity,
			"selling_price": it.SellingPrice,
			"import_price":  it.ImportPrice,
		}
	}
	numbers := s.ItemNumbers()
	if numbers == nil {
		numbers = []string{}
	}
	return docstore.Doc{
		"items":        items,
		"total_amount": s.TotalAmount,
		"timestamp":    s.Timestamp,
		// Denormalized for contains-queries by the cascade delete.
		"item_numbers": numbers,
	}
}

func decodeSale(id string, doc docstore.Doc) domain.Sale {
	rawItems := docstore.AsDocSlice(doc["items"])
	items := make([]domain.LineItem, 0, len(rawItems))
	for _, it := range rawItems {
		items = append(items, domain.LineItem{
			ItemNumber:   docstore.AsString(it["item_number"]),
			Quantity:     docstore.AsInt(it["quantity"]),
			SellingPrice: docstore.AsDecimal(it["selling_price"]),
			ImportPrice:  docstore.AsDecimal(it["import_price"]),
		})
	}
	return domain.Sale{
		ID:          id,
		Items:       items,
		TotalAmount: docstore.AsDecimal(doc["total_amount"]),
		Timestamp:   docstore.AsInt(doc["timestamp"]),
	}
}
