package repos

import (
	"context"
	"errors"
	"fmt"

	"tillbox/internal/docstore"
	"tillbox/internal/domain"
)

// CatalogRepo is typed access to per-tenant product documents, keyed by the
// uppercased item number.
type CatalogRepo struct {
	store docstore.Store
}

func NewCatalogRepo(store docstore.Store) *CatalogRepo {
	return &CatalogRepo{store: store}
}

func (r *CatalogRepo) Get(ctx context.Context, tenant, itemNumber string) (domain.Product, error) {
	key := domain.NormalizeItemNumber(itemNumber)
	doc, err := r.store.Get(ctx, productsCol(tenant), key)
	if errors.Is(err, docstore.ErrDocMissing) {
		return domain.Product{}, fmt.Errorf("product %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(key, doc), nil
}

// GetTx reads a product inside a transaction, registering it for conflict
// detection.
func (r *CatalogRepo) GetTx(tx docstore.Tx, tenant, itemNumber string) (domain.Product, error) {
	key := domain.NormalizeItemNumber(itemNumber)
	doc, err := tx.Get(productsCol(tenant), key)
	if errors.Is(err, docstore.ErrDocMissing) {
		return domain.Product{}, fmt.Errorf("product %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(key, doc), nil
}

// StageQuantity stages an absolute quantity write on a product already read
// in the same transaction.
func (r *CatalogRepo) StageQuantity(tx docstore.Tx, tenant, itemNumber string, quantity int64) {
	tx.Patch(productsCol(tenant), domain.NormalizeItemNumber(itemNumber), docstore.Doc{
		"quantity": quantity,
	})
}

// StageQuantityIncrement stages a commutative add on a product's quantity.
// It does not require the product to have been read in the transaction.
func (r *CatalogRepo) StageQuantityIncrement(tx docstore.Tx, tenant, itemNumber string, delta int64) {
	tx.Increment(productsCol(tenant), domain.NormalizeItemNumber(itemNumber), "quantity", delta)
}

// StageDelete stages removal of the product document.
func (r *CatalogRepo) StageDelete(tx docstore.Tx, tenant, itemNumber string) {
	tx.Delete(productsCol(tenant), domain.NormalizeItemNumber(itemNumber))
}

// Upsert merges the product's fields into the existing document, creating it
// when absent. The caller resolves ImageURLs before calling; ImageURL is
// derived here.
func (r *CatalogRepo) Upsert(ctx context.Context, tenant string, p domain.Product) error {
	key := domain.NormalizeItemNumber(p.ItemNumber)
	if key == "" {
		return fmt.Errorf("item number is required: %w", domain.ErrValidation)
	}
	p.ItemNumber = key
	if len(p.ImageURLs) > 0 {
		p.ImageURL = p.ImageURLs[0]
	} else {
		p.ImageURL = ""
	}
	return r.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		tx.Patch(productsCol(tenant), key, encodeProduct(p))
		return nil
	})
}

// List returns one page of products ordered by item number ascending. The
// cursor is the last-seen item number. HasMore is exact: the page is probed
// with limit+1. limit <= 0 returns everything.
func (r *CatalogRepo) List(ctx context.Context, tenant string, limit int, startAfter string) ([]domain.Product, bool, error) {
	q := docstore.Query{Col: productsCol(tenant), StartAfter: startAfter}
	if limit > 0 {
		q.Limit = limit + 1
	}
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, false, err
	}
	hasMore := limit > 0 && len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}
	out := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		out = append(out, decodeProduct(docstore.AsString(doc[docstore.KeyField]), doc))
	}
	return out, hasMore, nil
}

// ListAll returns every product for the tenant, ordered by item number.
func (r *CatalogRepo) ListAll(ctx context.Context, tenant string) ([]domain.Product, error) {
	products, _, err := r.List(ctx, tenant, 0, "")
	return products, err
}

func encodeProduct(p domain.Product) docstore.Doc {
	images := p.ImageURLs
	if images == nil {
		images = []string{}
	}
	return docstore.Doc{
		"item_number":   p.ItemNumber,
		"item_name":     p.ItemName,
		"type":          p.Type,
		"quantity":      p.Quantity,
		"import_price":  p.ImportPrice,
		"selling_price": p.SellingPrice,
		"image_urls":    images,
		"image_url":     p.ImageURL,
	}
}

func decodeProduct(key string, doc docstore.Doc) domain.Product {
	return domain.Product{
		ItemNumber:   key,
		ItemName:     docstore.AsString(doc["item_name"]),
		Type:         docstore.AsString(doc["type"]),
		Quantity:     docstore.AsInt(doc["quantity"]),
		ImportPrice:  docstore.AsDecimal(doc["import_price"]),
		SellingPrice: docstore.AsDecimal(doc["selling_price"]),
		ImageURLs:    docstore.AsStringSlice(doc["image_urls"]),
		ImageURL:     docstore.AsString(doc["image_url"]),
	}
}
