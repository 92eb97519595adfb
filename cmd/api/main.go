package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NEXESMISSION/fulldevland/internal/config"
	"github.com/NEXESMISSION/fulldevland/internal/event"
	"github.com/NEXESMISSION/fulldevland/internal/feed"
	"github.com/NEXESMISSION/fulldevland/internal/handler"
	"github.com/NEXESMISSION/fulldevland/internal/inbox"
	"github.com/NEXESMISSION/fulldevland/internal/infra/postgresql"
	"github.com/NEXESMISSION/fulldevland/internal/infra/postgresql/migrations"
	infraredis "github.com/NEXESMISSION/fulldevland/internal/infra/redis"
	"github.com/NEXESMISSION/fulldevland/internal/observability"
	"github.com/NEXESMISSION/fulldevland/internal/repository"
	"github.com/NEXESMISSION/fulldevland/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	subscriber, err := feed.NewSubscriber(cfg.FeedBackend, cfg.DatabaseDSN, rdb, logger)
	if err != nil {
		logger.Fatal("change feed initialization failed", zap.Error(err))
	}
	defer subscriber.Close() //nolint:errcheck

	limiter, err := infraredis.NewMutationLimiter(rdb, cfg.MutationRatePerSec)
	if err != nil {
		logger.Fatal("mutation limiter initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	bus := event.NewBus()

	notificationRepo := repository.NewGormNotificationRepo(db)
	conversationRepo := repository.NewGormConversationRepo(db)

	hub, err := inbox.NewHub(
		notificationRepo,
		conversationRepo,
		subscriber,
		bus,
		nil,
		cfg.NotificationWindow,
		cfg.PollInterval(),
		logger,
	)
	if err != nil {
		logger.Fatal("inbox hub initialization failed", zap.Error(err))
	}
	hub.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:      "fulldevland-inbox",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	v1 := app.Group("/v1", handler.RequireAuth(cfg.JWTSecret))
	if err := handler.RegisterInboxRoutes(v1, hub, bus, limiter, logger); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	go func() {
		logger.Info("inbox api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	hub.Close()
	bus.Close()
	logger.Info("shutdown complete")
}
