package repos_test

import (
	"context"
	"testing"

	"tillbox/internal/docstore"
	"tillbox/internal/domain"
	"tillbox/internal/repos"
)

func TestSettingsAbsentIsEmpty(t *testing.T) {
	r := repos.NewSettingsRepo(docstore.NewMemory())
	s, err := r.Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 0 {
		t.Fatalf("settings = %+v, want empty", s)
	}
}

func TestSettingsMergePreservesOtherFields(t *testing.T) {
	r := repos.NewSettingsRepo(docstore.NewMemory())
	ctx := context.Background()

	if err := r.Merge(ctx, "u1", domain.StoreSettings{"store_name": "Corner Shop", "currency": "USD"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Merge(ctx, "u1", domain.StoreSettings{"currency": "EUR"}); err != nil {
		t.Fatal(err)
	}

	s, err := r.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if s["store_name"] != "Corner Shop" {
		t.Fatalf("merge dropped untouched field: %+v", s)
	}
	if s["currency"] != "EUR" {
		t.Fatalf("merge did not apply: %+v", s)
	}
}
