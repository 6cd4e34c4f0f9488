package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"tillbox/internal/docstore"
	"tillbox/internal/domain"
	"tillbox/internal/repos"
	"tillbox/internal/services"
)

// fakeBlobs records blob traffic and serves URLs under a fixed base.
type fakeBlobs struct {
	mu      sync.Mutex
	n       int
	uploads []string
	deletes []string
}

func (f *fakeBlobs) Upload(_ context.Context, key, _ string, _ io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	url := fmt.Sprintf("https://blobs.test/%s", key)
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeBlobs) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, url)
	return nil
}

func newCatalogFixture(t *testing.T) (*services.CatalogService, *services.SaleService, *fakeBlobs) {
	t.Helper()
	store := docstore.NewMemory()
	catalog := repos.NewCatalogRepo(store)
	sales := repos.NewSalesRepo(store)
	blobs := &fakeBlobs{}
	return services.NewCatalogService(store, catalog, sales, blobs),
		services.NewSaleService(store, catalog, sales), blobs
}

func TestUpsertNormalizesItemNumber(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	p := domain.Product{ItemNumber: "  ab-1 ", ItemName: "Gadget", Quantity: 3}
	saved, err := svc.Upsert(ctx, tenant, p, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ItemNumber != "AB-1" {
		t.Fatalf("item number = %q, want AB-1", saved.ItemNumber)
	}

	// Lookups with any casing resolve to the same document.
	got, err := svc.Get(ctx, tenant, "Ab-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ItemName != "Gadget" {
		t.Fatalf("item name = %q", got.ItemName)
	}
}

func TestUpsertBlankItemNumber(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	_, err := svc.Upsert(context.Background(), tenant, domain.Product{ItemNumber: "   "}, nil, nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpsertResolvesImages(t *testing.T) {
	svc, _, blobs := newCatalogFixture(t)
	ctx := context.Background()

	p := domain.Product{ItemNumber: "A-1", ItemName: "Gadget"}
	saved, err := svc.Upsert(ctx, tenant, p, nil, []services.ImageUpload{
		{ContentType: "image/png", Body: strings.NewReader("img-a")},
		{ContentType: "image/png", Body: strings.NewReader("img-b")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.ImageURLs) != 2 {
		t.Fatalf("image urls = %v", saved.ImageURLs)
	}
	if saved.ImageURL != saved.ImageURLs[0] {
		t.Fatalf("legacy image_url %q does not mirror first url", saved.ImageURL)
	}

	// Re-upsert keeping only the second stored image: the first is deleted
	// from the bucket, a fresh upload is appended.
	kept := saved.ImageURLs[1:]
	saved2, err := svc.Upsert(ctx, tenant, p, kept, []services.ImageUpload{
		{ContentType: "image/jpeg", Body: strings.NewReader("img-c")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(saved2.ImageURLs) != 2 {
		t.Fatalf("image urls after merge = %v", saved2.ImageURLs)
	}
	if saved2.ImageURLs[0] != kept[0] {
		t.Fatalf("kept url dropped: %v", saved2.ImageURLs)
	}
	if len(blobs.deletes) != 1 || blobs.deletes[0] != saved.ImageURLs[0] {
		t.Fatalf("deletes = %v, want the dropped url", blobs.deletes)
	}
}

func TestDeleteCascadeRemovesReferencingSales(t *testing.T) {
	svc, saleSvc, blobs := newCatalogFixture(t)
	ctx := context.Background()

	for _, item := range []string{"A-1", "B-2"} {
		if _, err := svc.Upsert(ctx, tenant, domain.Product{
			ItemNumber: item, ItemName: "Item " + item, Quantity: 10,
			SellingPrice: mustDec(t, "4.00"),
		}, nil, []services.ImageUpload{{ContentType: "image/png", Body: strings.NewReader(item)}}); err != nil {
			t.Fatal(err)
		}
	}

	mixed, err := saleSvc.Record(ctx, tenant, []services.SaleInput{
		{ItemNumber: "A-1", Quantity: 1, SellingPrice: mustDec(t, "4.00")},
		{ItemNumber: "B-2", Quantity: 1, SellingPrice: mustDec(t, "4.00")},
	})
	if err != nil {
		t.Fatal(err)
	}
	only, err := saleSvc.Record(ctx, tenant, []services.SaleInput{
		{ItemNumber: "B-2", Quantity: 1, SellingPrice: mustDec(t, "4.00")},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, tenant, "A-1"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, tenant, "A-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("product survived delete: %v", err)
	}
	if _, err := svc.Get(ctx, tenant, "B-2"); err != nil {
		t.Fatalf("unrelated product removed: %v", err)
	}

	sales, _, err := saleSvc.List(ctx, tenant, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sales) != 1 || sales[0].ID != only.ID {
		t.Fatalf("cascade kept %v, want only %s", sales, only.ID)
	}
	for _, s := range sales {
		if s.ID == mixed.ID {
			t.Fatal("sale referencing the deleted product survived")
		}
	}
	if len(blobs.deletes) != 1 {
		t.Fatalf("blob deletes = %v, want the deleted product's image", blobs.deletes)
	}
}

func TestDeleteMissingProduct(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	if err := svc.Delete(context.Background(), tenant, "NOPE"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	for _, item := range []string{"E-5", "C-3", "A-1", "D-4", "B-2"} {
		if _, err := svc.Upsert(ctx, tenant, domain.Product{ItemNumber: item, ItemName: item}, nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	cursor := ""
	for page := 0; ; page++ {
		products, hasMore, err := svc.List(ctx, tenant, 2, cursor)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range products {
			got = append(got, p.ItemNumber)
		}
		if !hasMore {
			if len(products) > 2 {
				t.Fatalf("page overflows limit: %d", len(products))
			}
			break
		}
		if len(products) != 2 {
			t.Fatalf("full page has %d items", len(products))
		}
		cursor = products[len(products)-1].ItemNumber
		if page > 3 {
			t.Fatal("pagination did not terminate")
		}
	}

	want := []string{"A-1", "B-2", "C-3", "D-4", "E-5"}
	if len(got) != len(want) {
		t.Fatalf("walked %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("walked %v, want %v", got, want)
		}
	}
}

func TestListAllUnpaginated(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	ctx := context.Background()
	for _, item := range []string{"A-1", "B-2", "C-3"} {
		if _, err := svc.Upsert(ctx, tenant, domain.Product{ItemNumber: item, ItemName: item}, nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	all, err := svc.ListAll(ctx, tenant)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d products, want 3", len(all))
	}
}
