package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bachat/bachat/internal/app"
	"github.com/bachat/bachat/internal/auth"
	"github.com/bachat/bachat/internal/catalog"
	"github.com/bachat/bachat/internal/identity"
	"github.com/bachat/bachat/internal/observability"
	"github.com/bachat/bachat/internal/permissions"
	"github.com/bachat/bachat/internal/platform/cache"
	"github.com/bachat/bachat/internal/platform/db"
	"github.com/bachat/bachat/internal/pools"
	"github.com/bachat/bachat/internal/shared"
	"github.com/bachat/bachat/jobs"
	"github.com/bachat/bachat/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := db.Migrate(ctx, dbpool, migrations.FS); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, permission cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	identityService := identity.NewService(identity.NewUserRepository(dbpool), identity.NewRoleRepository(dbpool))

	permRepo := permissions.NewRepository(dbpool)
	roleGrantRepo := permissions.NewRoleGrantRepository(dbpool)
	userGrantRepo := permissions.NewUserGrantRepository(dbpool)
	actionRepo := catalog.NewRepository(dbpool)
	permCache := permissions.NewCache(redisClient, cfg.PermissionCacheTTL)
	permService := permissions.NewService(permRepo, actionRepo, roleGrantRepo, userGrantRepo, identityService, permCache, auditLogger, logger, metrics)
	gate := permissions.Gate{Service: permService, Logger: logger, Metrics: metrics}

	manifest := catalog.NewManifest()
	discoverer := catalog.NewDiscoverer(manifest, actionRepo, permService, logger)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authService := auth.NewService(identityService, tokens)
	authHandler := auth.NewHandler(logger, authService, tokens)

	usersHandler := identity.NewUsersHandler(logger, identityService, gate)
	rolesHandler := identity.NewRolesHandler(logger, identityService, gate)

	poolsService := pools.NewService(pools.NewRepository(dbpool))
	poolsHandler := pools.NewHandler(logger, poolsService, gate)

	permissionsHandler := permissions.NewHandler(logger, permService, discoverer, identityService, gate)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("jobs inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger, gate)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Tokens:             tokens,
		Manifest:           manifest,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PoolsHandler:       poolsHandler,
		PermissionsHandler: permissionsHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
	})

	// Register newly mounted endpoints as actions with inactive companion
	// permissions. Best effort: a failure here is recoverable through the
	// admin sync endpoint.
	discoverer.RunAtStartup(ctx)

	// Startup discovery only registers new endpoints; the full reconciliation
	// (deactivating removed ones) runs in the worker, so kick one off now
	// instead of waiting for the hourly cron.
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("jobs client", slog.Any("error", err))
	} else {
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		if _, err := jobClient.EnqueueCatalogSync(ctx); err != nil {
			logger.Warn("enqueue catalog sync", slog.Any("error", err))
		}
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
