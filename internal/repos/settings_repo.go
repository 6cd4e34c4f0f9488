package repos

import (
	"context"
	"errors"

	"tillbox/internal/docstore"
	"tillbox/internal/domain"
)

// SettingsRepo holds the single free-form store settings document per tenant.
type SettingsRepo struct {
	store docstore.Store
}

func NewSettingsRepo(store docstore.Store) *SettingsRepo {
	return &SettingsRepo{store: store}
}

// Get returns the tenant's settings; an absent document is an empty map.
func (r *SettingsRepo) Get(ctx context.Context, tenant string) (domain.StoreSettings, error) {
	doc, err := r.store.Get(ctx, settingsCol(tenant), settingsKey)
	if errors.Is(err, docstore.ErrDocMissing) {
		return domain.StoreSettings{}, nil
	}
	if err != nil {
		return nil, err
	}
	delete(doc, docstore.KeyField)
	return domain.StoreSettings(doc), nil
}

// Merge patches the given fields into the settings document, creating it when
// absent. Fields not named are left untouched.
func (r *SettingsRepo) Merge(ctx context.Context, tenant string, s domain.StoreSettings) error {
	return r.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		tx.Patch(settingsCol(tenant), settingsKey, docstore.Doc(s))
		return nil
	})
}
