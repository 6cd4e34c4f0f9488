package handlers

import (
	"net/http"
	"time"

	"tillbox/internal/blob"
	"tillbox/internal/docstore"
	"tillbox/internal/report"
	"tillbox/internal/repos"
	"tillbox/internal/services"
)

type Deps struct {
	ProductHandler    *ProductHandler
	SaleHandler       *SaleHandler
	TypeHandler       *TypeHandler
	SettingsHandler   *SettingsHandler
	StorefrontHandler *StorefrontHandler
	ReportHandler     *ReportHandler
}

func NewDeps(store docstore.Store, blobs blob.Store) *Deps {
	catalogRepo := repos.NewCatalogRepo(store)
	salesRepo := repos.NewSalesRepo(store)
	typesRepo := repos.NewTypesRepo(store)
	settingsRepo := repos.NewSettingsRepo(store)

	catalogSvc := services.NewCatalogService(store, catalogRepo, salesRepo, blobs)
	saleSvc := services.NewSaleService(store, catalogRepo, salesRepo)

	return &Deps{
		ProductHandler:    &ProductHandler{Catalog: catalogSvc},
		SaleHandler:       &SaleHandler{Sales: saleSvc},
		TypeHandler:       &TypeHandler{Types: typesRepo},
		SettingsHandler:   &SettingsHandler{Settings: settingsRepo},
		StorefrontHandler: &StorefrontHandler{Catalog: catalogSvc, Settings: settingsRepo},
		ReportHandler: &ReportHandler{
			Catalog: catalogSvc,
			Fetch:   report.HTTPFetcher(&http.Client{Timeout: 10 * time.Second}),
		},
	}
}
