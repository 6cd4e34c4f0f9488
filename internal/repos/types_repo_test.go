package repos_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tillbox/internal/docstore"
	"tillbox/internal/domain"
	"tillbox/internal/repos"
)

func TestTypesAddListDelete(t *testing.T) {
	r := repos.NewTypesRepo(docstore.NewMemory())
	ctx := context.Background()

	added, err := r.Add(ctx, "u1", "Electronics")
	if err != nil {
		t.Fatal(err)
	}
	if added.ID == "" || added.Name != "Electronics" {
		t.Fatalf("added = %+v", added)
	}

	types, err := r.List(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 1 || types[0].Name != "Electronics" {
		t.Fatalf("types = %+v", types)
	}

	if err := r.Delete(ctx, "u1", added.ID); err != nil {
		t.Fatal(err)
	}
	types, _ = r.List(ctx, "u1")
	if len(types) != 0 {
		t.Fatalf("types after delete = %+v", types)
	}
}

func TestTypesDuplicateName(t *testing.T) {
	r := repos.NewTypesRepo(docstore.NewMemory())
	ctx := context.Background()

	if _, err := r.Add(ctx, "u1", "Tools"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Add(ctx, "u1", "Tools"); !errors.Is(err, domain.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	// Exact-match check: different case is a different name.
	if _, err := r.Add(ctx, "u1", "tools"); err != nil {
		t.Fatalf("case-different name rejected: %v", err)
	}
}

func TestTypesConcurrentDuplicateAdds(t *testing.T) {
	r := repos.NewTypesRepo(docstore.NewMemory())
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Add(ctx, "u1", "Tools")
			switch {
			case err == nil:
				mu.Lock()
				succeeded++
				mu.Unlock()
			case errors.Is(err, domain.ErrExists):
			case errors.Is(err, docstore.ErrTxConflict):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("%d adds committed, want exactly 1", succeeded)
	}
	types, err := r.List(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 1 {
		t.Fatalf("%d types named Tools, want 1: %+v", len(types), types)
	}
}

func TestTypesDeleteFreesName(t *testing.T) {
	r := repos.NewTypesRepo(docstore.NewMemory())
	ctx := context.Background()

	added, err := r.Add(ctx, "u1", "Tools")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Delete(ctx, "u1", added.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Add(ctx, "u1", "Tools"); err != nil {
		t.Fatalf("re-adding a deleted type's name failed: %v", err)
	}
}

func TestTypesBlankName(t *testing.T) {
	r := repos.NewTypesRepo(docstore.NewMemory())
	if _, err := r.Add(context.Background(), "u1", "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTypesTenantIsolation(t *testing.T) {
	r := repos.NewTypesRepo(docstore.NewMemory())
	ctx := context.Background()

	if _, err := r.Add(ctx, "u1", "Tools"); err != nil {
		t.Fatal(err)
	}
	types, err := r.List(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 0 {
		t.Fatalf("tenant u2 sees u1's types: %+v", types)
	}
}

func TestTypesDeleteAbsent(t *testing.T) {
	r := repos.NewTypesRepo(docstore.NewMemory())
	if err := r.Delete(context.Background(), "u1", "no-such-id"); err != nil {
		t.Fatalf("deleting an absent type should be a no-op, got %v", err)
	}
}
