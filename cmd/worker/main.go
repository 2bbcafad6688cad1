package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

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

	// The worker reconciles against the same route table the API serves, so
	// it builds the handlers purely for their descriptors.
	app.PopulateManifest(app.RouterParams{
		Manifest:           manifest,
		AuthHandler:        auth.NewHandler(logger, authService, tokens),
		UsersHandler:       identity.NewUsersHandler(logger, identityService, gate),
		RolesHandler:       identity.NewRolesHandler(logger, identityService, gate),
		PoolsHandler:       pools.NewHandler(logger, pools.NewService(pools.NewRepository(dbpool)), gate),
		PermissionsHandler: permissions.NewHandler(logger, permService, discoverer, identityService, gate),
		JobsHandler:        jobs.NewHandler(nil, logger, gate),
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogSync, Handler: jobs.NewCatalogSyncHandler(discoverer, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: jobs.NewCatalogSyncTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
