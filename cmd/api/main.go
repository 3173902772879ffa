package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/olegbarsky/tradeport-backend/api/routes"
	"github.com/olegbarsky/tradeport-backend/internal/auth"
	"github.com/olegbarsky/tradeport-backend/internal/basket"
	"github.com/olegbarsky/tradeport-backend/internal/catalog"
	"github.com/olegbarsky/tradeport-backend/internal/contacts"
	"github.com/olegbarsky/tradeport-backend/internal/importer"
	"github.com/olegbarsky/tradeport-backend/internal/orders"
	"github.com/olegbarsky/tradeport-backend/internal/users"
	"github.com/olegbarsky/tradeport-backend/pkg/auth/onetime"
	"github.com/olegbarsky/tradeport-backend/pkg/config"
	"github.com/olegbarsky/tradeport-backend/pkg/db"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
	"github.com/olegbarsky/tradeport-backend/pkg/metrics"
	"github.com/olegbarsky/tradeport-backend/pkg/migrate"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox"
	"github.com/olegbarsky/tradeport-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	tokenManager, err := onetime.NewManager(redisClient, cfg.Tokens)
	if err != nil {
		logg.Error(context.Background(), "failed to create token manager", err)
		os.Exit(1)
	}

	collector := metrics.New(prometheus.DefaultRegisterer)

	usersRepo := users.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	basketRepo := basket.NewRepository(dbClient.DB())
	contactsRepo := contacts.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	eventEmitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		TX:       dbClient,
		Users:    usersRepo,
		Shops:    catalogRepo,
		Tokens:   tokenManager,
		Events:   eventEmitter,
		JWT:      cfg.JWT,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	importerService, err := importer.NewService(dbClient, catalogRepo, cfg.Importer, collector, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create importer service", err)
		os.Exit(1)
	}

	basketService, err := basket.NewService(basketRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create basket service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(dbClient, ordersRepo, usersRepo, catalogRepo, eventEmitter, collector, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	contactsService, err := contacts.NewService(contactsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create contacts service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			authService,
			catalogService,
			importerService,
			basketService,
			ordersService,
			contactsService,
		),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
