package docstore_test

import (
	"context"
	"errors"
	"testing"

	"tillbox/internal/docstore"
)

func TestGetMissing(t *testing.T) {
	m := docstore.NewMemory()
	if _, err := m.Get(context.Background(), "users/u1/products", "A-1"); !errors.Is(err, docstore.ErrDocMissing) {
		t.Fatalf("expected ErrDocMissing, got %v", err)
	}
}

func TestSetAndPatchMerge(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	col := "users/u1/products"

	err := m.RunTransaction(ctx, func(tx docstore.Tx) error {
		tx.Set(col, "A-1", docstore.Doc{"item_name": "Widget", "quantity": int64(10)})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = m.RunTransaction(ctx, func(tx docstore.Tx) error {
		tx.Patch(col, "A-1", docstore.Doc{"quantity": int64(7)})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := m.Get(ctx, col, "A-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := docstore.AsString(doc["item_name"]); got != "Widget" {
		t.Fatalf("patch dropped untouched field, item_name = %q", got)
	}
	if got := docstore.AsInt(doc["quantity"]); got != 7 {
		t.Fatalf("quantity = %d, want 7", got)
	}
}

func seedProducts(t *testing.T, m *docstore.Memory, col string) {
	t.Helper()
	err := m.RunTransaction(context.Background(), func(tx docstore.Tx) error {
		tx.Set(col, "A-1", docstore.Doc{"quantity": int64(5), "tags": []string{"red"}})
		tx.Set(col, "B-2", docstore.Doc{"quantity": int64(10), "tags": []string{"red", "blue"}})
		tx.Set(col, "C-3", docstore.Doc{"quantity": int64(0), "tags": []string{"blue"}})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestQueryFiltersAndOrder(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	col := "users/u1/products"
	seedProducts(t, m, col)

	docs, err := m.Query(ctx, docstore.Query{Col: col})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d docs, want 3", len(docs))
	}
	for i, want := range []string{"A-1", "B-2", "C-3"} {
		if got := docstore.AsString(docs[i][docstore.KeyField]); got != want {
			t.Fatalf("docs[%d] key = %q, want %q", i, got, want)
		}
	}

	docs, err = m.Query(ctx, docstore.Query{
		Col: col,
		Filters: []docstore.Filter{
			{Field: "quantity", Op: docstore.OpGTE, Value: int64(1)},
			{Field: "quantity", Op: docstore.OpLT, Value: int64(10)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docstore.AsString(docs[0][docstore.KeyField]) != "A-1" {
		t.Fatalf("range filter returned %v", docs)
	}

	docs, err = m.Query(ctx, docstore.Query{
		Col:     col,
		Filters: []docstore.Filter{{Field: "tags", Op: docstore.OpContains, Value: "blue"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("contains filter returned %d docs, want 2", len(docs))
	}
}

func TestQueryCursorAndLimit(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	col := "users/u1/products"
	seedProducts(t, m, col)

	page, err := m.Query(ctx, docstore.Query{Col: col, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || docstore.AsString(page[1][docstore.KeyField]) != "B-2" {
		t.Fatalf("first page = %v", page)
	}

	page, err = m.Query(ctx, docstore.Query{Col: col, Limit: 2, StartAfter: "B-2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || docstore.AsString(page[0][docstore.KeyField]) != "C-3" {
		t.Fatalf("second page = %v", page)
	}
}

func TestQueryCursorSurvivesDeletedKey(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	col := "users/u1/products"
	seedProducts(t, m, col)

	// The cursor key is deleted between pages. The next page still resumes
	// from the cursor's position instead of restarting the scan.
	err := m.RunTransaction(ctx, func(tx docstore.Tx) error {
		tx.Delete(col, "B-2")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	page, err := m.Query(ctx, docstore.Query{Col: col, Limit: 2, StartAfter: "B-2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || docstore.AsString(page[0][docstore.KeyField]) != "C-3" {
		t.Fatalf("page after deleted cursor = %v", page)
	}

	page, err = m.Query(ctx, docstore.Query{Col: col, Desc: true, StartAfter: "B-2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || docstore.AsString(page[0][docstore.KeyField]) != "A-1" {
		t.Fatalf("descending page after deleted cursor = %v", page)
	}
}

func TestTransactionConflictExhaustsRetries(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	col := "users/u1/products"
	seedProducts(t, m, col)

	// Every attempt reads A-1 and then bumps it out-of-band before commit,
	// so the version check can never pass.
	err := m.RunTransaction(ctx, func(tx docstore.Tx) error {
		if _, err := tx.Get(col, "A-1"); err != nil {
			return err
		}
		interfere := m.RunTransaction(ctx, func(inner docstore.Tx) error {
			inner.Patch(col, "A-1", docstore.Doc{"quantity": int64(99)})
			return nil
		})
		if interfere != nil {
			return interfere
		}
		tx.Patch(col, "A-1", docstore.Doc{"quantity": int64(1)})
		return nil
	})
	if !errors.Is(err, docstore.ErrTxConflict) {
		t.Fatalf("expected ErrTxConflict, got %v", err)
	}

	doc, err := m.Get(ctx, col, "A-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := docstore.AsInt(doc["quantity"]); got != 99 {
		t.Fatalf("failed transaction left a write behind, quantity = %d", got)
	}
}

func TestTransactionRetriesAndSucceeds(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	col := "users/u1/products"
	seedProducts(t, m, col)

	attempts := 0
	err := m.RunTransaction(ctx, func(tx docstore.Tx) error {
		attempts++
		if _, err := tx.Get(col, "A-1"); err != nil {
			return err
		}
		if attempts == 1 {
			interfere := m.RunTransaction(ctx, func(inner docstore.Tx) error {
				inner.Patch(col, "A-1", docstore.Doc{"quantity": int64(4)})
				return nil
			})
			if interfere != nil {
				return interfere
			}
		}
		tx.Patch(col, "A-1", docstore.Doc{"quantity": int64(3)})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}

	doc, _ := m.Get(ctx, col, "A-1")
	if got := docstore.AsInt(doc["quantity"]); got != 3 {
		t.Fatalf("quantity = %d, want 3", got)
	}
}

func TestReadOfAbsentDocRegistersAbsence(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	col := "users/u1/types"

	attempts := 0
	err := m.RunTransaction(ctx, func(tx docstore.Tx) error {
		attempts++
		_, err := tx.Get(col, "t1")
		if attempts == 1 {
			if !errors.Is(err, docstore.ErrDocMissing) {
				t.Fatalf("expected ErrDocMissing on first attempt, got %v", err)
			}
			// A concurrent create of the observed-absent doc must conflict.
			interfere := m.RunTransaction(ctx, func(inner docstore.Tx) error {
				inner.Set(col, "t1", docstore.Doc{"name": "tools"})
				return nil
			})
			if interfere != nil {
				return interfere
			}
			tx.Set(col, "t1", docstore.Doc{"name": "toys"})
			return nil
		}
		// Second attempt observes the concurrent create and backs off.
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}

	doc, _ := m.Get(ctx, col, "t1")
	if got := docstore.AsString(doc["name"]); got != "tools" {
		t.Fatalf("lost-update: name = %q, want the first writer's value", got)
	}
}

func TestIncrementRequiresExistingDoc(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	col := "users/u1/products"

	err := m.RunTransaction(ctx, func(tx docstore.Tx) error {
		tx.Increment(col, "GONE", "quantity", 5)
		return nil
	})
	if !errors.Is(err, docstore.ErrTxConflict) {
		t.Fatalf("expected ErrTxConflict, got %v", err)
	}
	if _, err := m.Get(ctx, col, "GONE"); !errors.Is(err, docstore.ErrDocMissing) {
		t.Fatalf("increment created a stub document: %v", err)
	}
}

func TestIncrementAdds(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	col := "users/u1/products"
	seedProducts(t, m, col)

	err := m.RunTransaction(ctx, func(tx docstore.Tx) error {
		tx.Increment(col, "A-1", "quantity", 3)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := m.Get(ctx, col, "A-1")
	if got := docstore.AsInt(doc["quantity"]); got != 8 {
		t.Fatalf("quantity = %d, want 8", got)
	}
}

func TestDeleteInTransaction(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	col := "users/u1/products"
	seedProducts(t, m, col)

	err := m.RunTransaction(ctx, func(tx docstore.Tx) error {
		tx.Delete(col, "A-1")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, col, "A-1"); !errors.Is(err, docstore.ErrDocMissing) {
		t.Fatalf("expected ErrDocMissing after delete, got %v", err)
	}
}
