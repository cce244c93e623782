package main

import (
	"flag"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/RostislavDaniliv/lookify/internal/cache"
	"github.com/RostislavDaniliv/lookify/internal/config"
	"github.com/RostislavDaniliv/lookify/internal/db"
	"github.com/RostislavDaniliv/lookify/internal/imgio"
	"github.com/RostislavDaniliv/lookify/internal/middleware"
	"github.com/RostislavDaniliv/lookify/internal/storage"
	"github.com/RostislavDaniliv/lookify/internal/telemetry"
	"github.com/RostislavDaniliv/lookify/internal/tryon"
)

func main() {
	doMigrate := flag.Bool("migrate", false, "run migrations and exit")
	flag.Parse()

	cfg := config.Load()
	sqlxDB := db.MustConnect(cfg.DBDSN)
	rdb := cache.MustConnect(cfg.RedisAddr, cfg.RedisDB)

	tlog := telemetry.Init(telemetry.FromEnv(config.GetEnv))
	tlog.Info().Str("port", cfg.AppPort).Msg("booting lookify")

	if *doMigrate {
		db.MustMigrate(sqlxDB)
		log.Println("migrations done")
		return
	}

	store, err := storage.New(cfg.MediaRoot, cfg.MediaBaseURL)
	if err != nil {
		log.Fatal(err)
	}
	chain := imgio.NewChain(imgio.Probe(), cfg.ConvertTimeout)

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.MaxBodyLimit << 20,
	})

	app.Use(middleware.RateLimiter())
	app.Use(middleware.RequestID())
	app.Use(middleware.Recover())
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.RequestLog())
	app.Use(middleware.SecureHeaders())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Static("/media", store.Root())

	th := tryon.NewHandler(cfg, sqlxDB, rdb, chain, store)
	api := app.Group("/api/v1")

	api.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":     "Lookify API v1.0",
			"description": "Virtual try-on service for clothes and hairstyles",
			"endpoints": fiber.Map{
				"clothes": fiber.Map{"try_on": "/api/v1/clothes/try-on"},
				"hair":    fiber.Map{"try_on": "/api/v1/hair/try-on"},
				"tryons":  fiber.Map{"get": "/api/v1/tryons/:id"},
			},
		})
	})

	api.Post("/clothes/try-on", middleware.FileUploadValidator(cfg), th.TryOnClothes)
	api.Post("/hair/try-on", middleware.FileUploadValidator(cfg), th.TryOnHair)
	api.Get("/tryons/:id", th.GetTryOn)

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
