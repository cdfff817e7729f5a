package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"incident-workflow/internal/config"
	"incident-workflow/internal/handler"
	"incident-workflow/internal/middleware"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/pkg/metrics"
	"incident-workflow/internal/repository"
	"incident-workflow/internal/service"
	"incident-workflow/internal/storage"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	if envErr != nil {
		log.Info("No .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewCollector()

	var repos *repository.Repositories
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		db, err := config.NewPostgresDB(ctx, cfg)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()
		repos, err = repository.NewPostgresRepositories(ctx, db)
		if err != nil {
			log.WithError(err).Fatal("Failed to prepare database schema")
		}
	default:
		var err error
		repos, err = repository.NewJSONRepositories(cfg.DataDir, m)
		if err != nil {
			log.WithError(err).Fatal("Failed to open data documents")
		}
	}

	var store storage.Store
	switch cfg.AttachmentBackend {
	case config.BackendMinIO:
		minioClient, err := config.NewMinIOClient(ctx, cfg, log.WithComponent("minio"))
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MinIO")
		}
		store = storage.NewMinIOStore(minioClient, cfg.MinIOBucket)
	default:
		var err error
		store, err = storage.NewFilesystemStore(cfg.AttachmentDir)
		if err != nil {
			log.WithError(err).Fatal("Failed to open attachment directory")
		}
	}

	redis, err := config.NewRedisClient(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, dashboard stats will not be cached")
		redis = nil
	}
	if redis != nil {
		defer redis.Close()
	}

	services := service.NewServices(repos, store, redis, cfg, m, log)
	if err := services.Auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("Failed to bootstrap admin user")
	}
	handlers := handler.NewHandlers(services)

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.NewErrorHandler(log),
		BodyLimit:             cfg.MaxUploadSize,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: cfg.IsProduction(),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Metrics(m))
	app.Use(middleware.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, OPTIONS",
		ExposeHeaders: "Content-Disposition, X-Request-ID",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	handler.SetupRoutes(app, handlers, services.Auth, cfg.IntakeRateLimit)

	go func() {
		<-ctx.Done()
		log.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.WithField("port", cfg.Port).WithField("storage", cfg.StorageBackend).Info("Server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}
