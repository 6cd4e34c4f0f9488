package main

import (
	"context"
	"log"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"tillbox/internal/auth"
	"tillbox/internal/blob"
	"tillbox/internal/config"
	"tillbox/internal/docstore"
	"tillbox/internal/http/handlers"
	applog "tillbox/internal/log"
	"tillbox/internal/metrics"
)

func main() {
	cfg := config.Load()

	if cfg.LogFile != "" {
		zcfg := zap.NewProductionConfig()
		zcfg.OutputPaths = []string{"stdout", cfg.LogFile}
		logger, err := zcfg.Build()
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			applog.Replace(logger)
		}
	}
	defer applog.L().Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatal(err)
	}

	ddb := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = &cfg.DynamoEndpoint
		}
	})
	if err := docstore.EnsureTable(ctx, ddb, cfg.TableName); err != nil {
		log.Fatal(err)
	}
	store := docstore.NewDynamo(ddb, cfg.TableName, docstore.Indexes())

	blobs := blob.NewS3(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.BlobPublicBase)
	verifier := auth.NewJWTVerifier([]byte(cfg.JWTSecret), cfg.JWTIssuer)

	engine := html.New(cfg.TemplatesDir, ".html")

	app := fiber.New(fiber.Config{
		Views:     engine,
		BodyLimit: 10 << 20, // product image uploads
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			if code >= 500 {
				applog.Error(c, "server.error", err, nil)
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false, "message": "Something went wrong. Please try again.",
			})
		},
	})

	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(metrics.Middleware())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			return p == "/healthz" || p == "/metrics" || strings.HasPrefix(p, "/static/")
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.limit.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false, "message": "Too many requests, slow down.",
			})
		},
	}))

	app.Static("/static", "./web/static")

	deps := handlers.NewDeps(store, blobs)

	// Public pages
	app.Get("/", deps.StorefrontHandler.Index)
	app.Get("/store/:tenantID", deps.StorefrontHandler.Page)

	// Tenant API. Auth is attached per protected route, not on the /api
	// prefix: a prefix middleware would also gate the public storefront
	// read. The settings routes must register before the public
	// /api/store/:tenantID wildcard or "settings" would match as a tenant id.
	requireAuth := auth.Middleware(verifier)
	api := app.Group("/api")
	api.Get("/store/settings", requireAuth, deps.SettingsHandler.Get)
	api.Post("/store/settings", requireAuth, deps.SettingsHandler.Update)

	api.Get("/store/:tenantID", deps.StorefrontHandler.Data)

	api.Get("/products", requireAuth, deps.ProductHandler.List)
	api.Post("/products", requireAuth, deps.ProductHandler.Upsert)
	api.Delete("/products/:itemNumber", requireAuth, deps.ProductHandler.Delete)

	api.Get("/sales", requireAuth, deps.SaleHandler.List)
	api.Post("/sales", requireAuth, deps.SaleHandler.Record)
	api.Delete("/sales/:saleID", requireAuth, deps.SaleHandler.Delete)

	api.Get("/types", requireAuth, deps.TypeHandler.List)
	api.Post("/types", requireAuth, deps.TypeHandler.Add)
	api.Delete("/types/:typeID", requireAuth, deps.TypeHandler.Delete)

	api.Get("/generate-pdf", requireAuth, deps.ReportHandler.Generate)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", metrics.Handler())

	log.Fatal(app.Listen(":" + cfg.Port))
}
