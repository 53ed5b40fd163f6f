package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odyssey-erp/assetdesk/internal/app"
	"github.com/odyssey-erp/assetdesk/internal/authz"
	"github.com/odyssey-erp/assetdesk/internal/observability"
	"github.com/odyssey-erp/assetdesk/internal/platform/cache"
	"github.com/odyssey-erp/assetdesk/internal/platform/db"
	"github.com/odyssey-erp/assetdesk/internal/shared"
	"github.com/odyssey-erp/assetdesk/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{
		MaxConns:       cfg.PGMaxConns,
		ConnectTimeout: cfg.PGConnectTimeout,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	// One permission cache per process; horizontally scaled instances
	// converge within PermissionCacheTTL after a revoke.
	permissionCache := authz.NewPermissionCache(cfg.PermissionCacheTTL, authz.WithObserver(metrics))
	authzRepo := authz.NewRepository(dbpool, cfg.RetryPolicy())
	authzService := authz.NewService(authzRepo, permissionCache, logger)
	sessions := shared.NewSessionResolver(redisClient, cfg.SessionCookie, cfg.SessionTTL)
	gate := authz.Middleware{Service: authzService, Identities: sessions, Logger: logger}
	authzHandler := authz.NewHandler(gate)

	sharedCache := cache.NewStore(redisClient, "assetdesk", cfg.SharedCacheTTL, logger)
	usersRepo := users.NewRepository(dbpool, cfg.RetryPolicy())
	usersService := users.NewService(usersRepo, authzService, sharedCache, logger)
	usersHandler := users.NewHandler(logger, usersService, gate)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthzHandler: authzHandler,
		UsersHandler: usersHandler,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Duration("permission_ttl", permissionCache.TTL()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
