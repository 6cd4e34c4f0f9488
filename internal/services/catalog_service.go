package services

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"tillbox/internal/blob"
	"tillbox/internal/docstore"
	"tillbox/internal/domain"
	applog "tillbox/internal/log"
	"tillbox/internal/repos"
)

// ImageUpload is one incoming product image.
type ImageUpload struct {
	ContentType string
	Body        io.Reader
}

// CatalogService owns product writes: upserts with image resolution, and the
// cascading delete that removes a product together with every sale that
// references it.
type CatalogService struct {
	store   docstore.Store
	catalog *repos.CatalogRepo
	sales   *repos.SalesRepo
	blobs   blob.Store
}

func NewCatalogService(store docstore.Store, catalog *repos.CatalogRepo, sales *repos.SalesRepo, blobs blob.Store) *CatalogService {
	return &CatalogService{store: store, catalog: catalog, sales: sales, blobs: blobs}
}

func (s *CatalogService) Get(ctx context.Context, tenant, itemNumber string) (domain.Product, error) {
	return s.catalog.Get(ctx, tenant, itemNumber)
}

func (s *CatalogService) List(ctx context.Context, tenant string, limit int, startAfter string) ([]domain.Product, bool, error) {
	return s.catalog.List(ctx, tenant, limit, startAfter)
}

func (s *CatalogService) ListAll(ctx context.Context, tenant string) ([]domain.Product, error) {
	return s.catalog.ListAll(ctx, tenant)
}

// Upsert resolves the product's image set and merges the product document.
// keepURLs are the already-stored URLs the client kept; stored images the
// client dropped are deleted from the bucket, and uploads are added. Blob
// traffic is best-effort and never fails the upsert.
func (s *CatalogService) Upsert(ctx context.Context, tenant string, p domain.Product, keepURLs []string, uploads []ImageUpload) (domain.Product, error) {
	key := domain.NormalizeItemNumber(p.ItemNumber)
	if key == "" {
		return domain.Product{}, fmt.Errorf("item number is required: %w", domain.ErrValidation)
	}
	p.ItemNumber = key

	var stored []string
	if existing, err := s.catalog.Get(ctx, tenant, key); err == nil {
		stored = existing.ImageURLs
	}

	kept := make(map[string]bool, len(keepURLs))
	for _, u := range keepURLs {
		kept[u] = true
	}
	for _, u := range stored {
		if kept[u] {
			continue
		}
		if err := s.blobs.Delete(ctx, u); err != nil {
			applog.Error(nil, "catalog.image.delete", err, map[string]any{"url": u})
		}
	}

	urls := append([]string(nil), keepURLs...)
	for _, up := range uploads {
		blobKey := fmt.Sprintf("products/%s/%s_%s", tenant, key, uuid.NewString())
		url, err := s.blobs.Upload(ctx, blobKey, up.ContentType, up.Body)
		if err != nil {
			return domain.Product{}, fmt.Errorf("upload image: %w", err)
		}
		urls = append(urls, url)
	}
	p.ImageURLs = urls

	if err := s.catalog.Upsert(ctx, tenant, p); err != nil {
		return domain.Product{}, mapTxErr(err)
	}
	return s.catalog.Get(ctx, tenant, key)
}

// Delete removes a product and every sale referencing it in one transaction.
// Image removal happens first, outside the transaction: the bucket cannot
// take part in the document transaction, so blob failures are logged and the
// deletion proceeds.
func (s *CatalogService) Delete(ctx context.Context, tenant, itemNumber string) error {
	key := domain.NormalizeItemNumber(itemNumber)

	if p, err := s.catalog.Get(ctx, tenant, key); err == nil {
		for _, u := range p.ImageURLs {
			if err := s.blobs.Delete(ctx, u); err != nil {
				applog.Error(nil, "catalog.image.delete", err, map[string]any{"url": u})
			}
		}
	}

	err := s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		if _, err := s.catalog.GetTx(tx, tenant, key); err != nil {
			return err
		}
		// Zero referencing sales is fine; only a missing product is an error.
		sales, err := s.sales.QueryByItemTx(tx, tenant, key)
		if err != nil {
			return err
		}
		for _, sale := range sales {
			s.sales.StageDelete(tx, tenant, sale.ID)
		}
		s.catalog.StageDelete(tx, tenant, key)
		return nil
	})
	return mapTxErr(err)
}
