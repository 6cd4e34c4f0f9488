package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tillbox/internal/docstore"
	"tillbox/internal/domain"
)

// TypesRepo manages the per-tenant product type tags. Names are unique within
// a tenant; the duplicate check is exact and case-sensitive.
type TypesRepo struct {
	store docstore.Store
}

func NewTypesRepo(store docstore.Store) *TypesRepo {
	return &TypesRepo{store: store}
}

func (r *TypesRepo) List(ctx context.Context, tenant string) ([]domain.ProductType, error) {
	docs, err := r.store.Query(ctx, docstore.Query{Col: typesCol(tenant)})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductType, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.ProductType{
			ID:   docstore.AsString(doc[docstore.KeyField]),
			Name: docstore.AsString(doc["name"]),
		})
	}
	return out, nil
}

// Add creates a new type. Uniqueness rides a marker document keyed by the
// exact name: the transaction reads the marker (registering its absence) and
// creates it alongside the type, so two concurrent adds of the same name
// conflict and only one commits.
func (r *TypesRepo) Add(ctx context.Context, tenant, name string) (domain.ProductType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ProductType{}, fmt.Errorf("type name cannot be empty: %w", domain.ErrValidation)
	}
	t := domain.ProductType{ID: uuid.NewString(), Name: name}
	err := r.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		_, err := tx.Get(typeNamesCol(tenant), name)
		if err == nil {
			return fmt.Errorf("product type %q: %w", name, domain.ErrExists)
		}
		if !errors.Is(err, docstore.ErrDocMissing) {
			return err
		}
		tx.Set(typesCol(tenant), t.ID, docstore.Doc{"name": name})
		tx.Set(typeNamesCol(tenant), name, docstore.Doc{"type_id": t.ID})
		return nil
	})
	if err != nil {
		return domain.ProductType{}, err
	}
	return t, nil
}

// Delete removes a type and its name marker. Deleting an absent type is not
// an error.
func (r *TypesRepo) Delete(ctx context.Context, tenant, id string) error {
	return r.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		doc, err := tx.Get(typesCol(tenant), id)
		if errors.Is(err, docstore.ErrDocMissing) {
			return nil
		}
		if err != nil {
			return err
		}
		tx.Delete(typesCol(tenant), id)
		tx.Delete(typeNamesCol(tenant), docstore.AsString(doc["name"]))
		return nil
	})
}
