package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/bankcards-service/internal/api/http"
	"github.com/spec-kit/bankcards-service/internal/api/http/handlers"
	"github.com/spec-kit/bankcards-service/internal/auth"
	"github.com/spec-kit/bankcards-service/internal/cache"
	"github.com/spec-kit/bankcards-service/internal/cardcrypto"
	"github.com/spec-kit/bankcards-service/internal/config"
	"github.com/spec-kit/bankcards-service/internal/events"
	"github.com/spec-kit/bankcards-service/internal/observability"
	"github.com/spec-kit/bankcards-service/internal/persistence"
	"github.com/spec-kit/bankcards-service/internal/repository"
	"github.com/spec-kit/bankcards-service/internal/repository/memory"
	"github.com/spec-kit/bankcards-service/internal/service"
	"github.com/spec-kit/bankcards-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cipher, err := cardcrypto.New(cfg.Encryption)
	if err != nil {
		logger.Fatal("invalid encryption settings", zap.Error(err))
	}
	tokenMgr, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		logger.Fatal("invalid auth settings", zap.Error(err))
	}

	healthDeps := map[string]handlers.Pinger{}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle(), logger)
		healthDeps["postgres"] = pg
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store = memory.NewStore()
	}

	var (
		userCache cache.UserCache
		janitor   *worker.CacheJanitor
	)
	if cfg.Cache.Backend == "redis" {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close() //nolint:errcheck
		userCache = cache.NewRedisUserCache(redis.Client, cfg.Cache.KeyPrefix, logger)
		healthDeps["redis"] = redis
	} else {
		memCache := cache.NewMemoryUserCache()
		userCache = memCache
		janitor, err = worker.NewCacheJanitor(memCache, cfg.Cache.PurgeSpec, logger)
		if err != nil {
			logger.Fatal("failed to schedule cache purge", zap.Error(err))
		}
		janitor.Start()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, metrics))

	directory := service.NewAccountDirectory(store, userCache, cfg.Cache.UserTTL(), logger)
	authService := service.NewAuthService(directory, tokenMgr, cfg.Auth.BcryptCost, logger)
	userAdminService := service.NewUserAdminService(directory, cfg.Auth.BcryptCost, logger)
	cardService := service.NewCardService(cfg.Cards, service.CardDependencies{
		Store:      store,
		Directory:  directory,
		Cipher:     cipher,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	if err := userAdminService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminUsername, cfg.Auth.BootstrapAdminPassword); err != nil {
		logger.Fatal("failed to create bootstrap admin", zap.Error(err))
	}

	var expiry *worker.ExpiryWorker
	if cfg.Cards.ExpirySweepEnabled {
		expiry, err = worker.NewExpiryWorker(cardService, cfg.Cards.ExpirySweepSpec, logger)
		if err != nil {
			logger.Fatal("failed to schedule expiry sweep", zap.Error(err))
		}
		expiry.Start()
	}

	app := httptransport.NewApp(cfg.App.Name, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Cards:          handlers.NewCardsHandler(cardService),
		AdminUsers:     handlers.NewAdminUsersHandler(userAdminService),
		AuthMiddleware: auth.NewAuthMiddleware(tokenMgr, directory),
	}, func(app *fiber.App) {
		httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if expiry != nil {
		expiry.Stop(shutdownCtx)
	}
	if janitor != nil {
		janitor.Stop()
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
