package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/angelmondragon/store-manager/api/controllers"
	"github.com/angelmondragon/store-manager/api/routes"
	"github.com/angelmondragon/store-manager/internal/inventory"
	"github.com/angelmondragon/store-manager/internal/orders"
	"github.com/angelmondragon/store-manager/internal/products"
	"github.com/angelmondragon/store-manager/internal/users"
	"github.com/angelmondragon/store-manager/pkg/config"
	"github.com/angelmondragon/store-manager/pkg/db"
	"github.com/angelmondragon/store-manager/pkg/events"
	"github.com/angelmondragon/store-manager/pkg/logger"
	"github.com/angelmondragon/store-manager/pkg/metrics"
	"github.com/angelmondragon/store-manager/pkg/migrate"
	"github.com/angelmondragon/store-manager/pkg/redis"
	"github.com/angelmondragon/store-manager/pkg/tracing"
)

const serviceName = "store-manager-api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.Tracing)
	if err != nil {
		logg.Error(ctx, "failed to set up tracing", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logg.Error(context.Background(), "error flushing traces", err)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	ready := map[string]controllers.Pinger{"database": dbClient}

	var (
		cache       inventory.Cache
		idempotency redis.IdempotencyStore
	)
	if cfg.FeatureFlags.MemoryCache {
		logg.Warn(ctx, "using in-process stock cache; stock is not shared between instances")
		cache = inventory.NewMemoryCache()
	} else {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisCache, err := inventory.NewRedisCache(redisClient)
		if err != nil {
			logg.Error(ctx, "failed to create stock cache", err)
			os.Exit(1)
		}
		cache = redisCache
		idempotency = redisClient
		ready["cache"] = redisClient
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Enabled() {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			logg.Error(ctx, "failed to create kafka publisher", err)
			os.Exit(1)
		}
		publisher = kafkaPublisher
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logg.Error(context.Background(), "error closing event publisher", err)
		}
	}()

	productRepo := products.NewRepository(dbClient.DB())
	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Cache:           cache,
		Lookup:          productRepo,
		Logger:          logg,
		Metrics:         metrics.NewInventoryMetrics(prometheus.DefaultRegisterer),
		TracerProvider:  otel.GetTracerProvider(),
		BackfillDetails: cfg.Inventory.BackfillDetails,
	})
	if err != nil {
		logg.Error(ctx, "failed to create inventory service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productRepo, inventoryService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create user service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:           orders.NewRepository(dbClient.DB()),
		DB:             dbClient,
		Stock:          inventoryService,
		Users:          userService,
		Events:         publisher,
		Logger:         logg,
		Metrics:        metrics.NewOrderMetrics(prometheus.DefaultRegisterer),
		TracerProvider: otel.GetTracerProvider(),
	})
	if err != nil {
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"db_driver":    dbClient.Driver(),
		"memory_cache": cfg.FeatureFlags.MemoryCache,
		"kafka":        cfg.Kafka.Enabled(),
		"tracing":      cfg.Tracing.Enabled(),
	})
	logg.Info(ctx, "starting api server")

	tracerProvider := otel.GetTracerProvider()
	if !cfg.Tracing.Enabled() {
		tracerProvider = nil
	}
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:         cfg,
			Logger:         logg,
			Inventory:      inventoryService,
			Products:       productService,
			Users:          userService,
			Orders:         orderService,
			Idempotency:    idempotency,
			Ready:          ready,
			Gatherer:       prometheus.DefaultGatherer,
			TracerProvider: tracerProvider,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
	logg.Info(ctx, "api server stopped")
}
