package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/token-auth-service/internal/api/http"
	"github.com/spec-kit/token-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/token-auth-service/internal/auth"
	"github.com/spec-kit/token-auth-service/internal/config"
	"github.com/spec-kit/token-auth-service/internal/events"
	"github.com/spec-kit/token-auth-service/internal/observability"
	"github.com/spec-kit/token-auth-service/internal/persistence"
	"github.com/spec-kit/token-auth-service/internal/repository"
	"github.com/spec-kit/token-auth-service/internal/service"
	"github.com/spec-kit/token-auth-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var users repository.UserRepository
	if pg.Configured() {
		users = repository.NewUserRepository(pg.PoolHandle())
	} else {
		users = repository.NewStaticUserRepository()
	}
	authService := service.NewAuthService(cfg.Auth, users, logger)
	if cfg.Auth.TestUser != "" && cfg.Auth.TestPassword != "" && !pg.Configured() {
		if err := authService.SeedUser(ctx, cfg.Auth.TestUser, cfg.Auth.TestPassword, cfg.Auth.TestRoles); err != nil {
			logger.Fatal("failed to seed login account", zap.Error(err))
		}
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var publisher service.Publisher
	if redis.Configured() {
		publisher = redis.Client
	}
	worker.StartAuditWorker(service.NewAuditService(dispatcher, publisher, logger.Named("audit"), cfg.Audit))

	if !cfg.Auth.Enabled() {
		logger.Warn("JWT_PASSWORD not provided; token authentication disabled")
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTimeout(), auth.WithClockSkew(cfg.Auth.ClockSkew()))
	system := auth.NewSystemIdentityProvider(tokens, cfg.System.User, cfg.System.Roles, logger.Named("system"))
	worker.StartSystemBootstrap(dispatcher, system)

	deps := auth.Dependencies{Logger: logger.Named("auth"), Metrics: metrics, Dispatcher: dispatcher}
	refresh := auth.NewRefreshFilter(tokens, deps)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Metrics:   handlers.NewMetricsHandler(metrics),
		Auth:      handlers.NewAuthHandler(cfg.Security, dispatcher, logger),
		System:    handlers.NewSystemHandler(system.Client(&http.Client{Timeout: 10 * time.Second}), cfg.System.SelfCheckURL, logger),
		TokenAuth: auth.NewPipeline(deps, auth.NewTokenFilter(tokens, auth.ProtectAll, deps)),
		Login: auth.NewPipeline(deps,
			auth.NewPasswordFilter(authService, cfg.Security.LoginProcessingPath, deps),
			refresh,
		),
		Refresh:   auth.NewPipeline(deps, refresh),
		Policy:    httptransport.DefaultPolicy(cfg.Security.Insecure),
		Security:  cfg.Security,
		StaticDir: cfg.App.StaticDir,
	})
	if cfg.Security.Insecure {
		logger.Warn("security.insecure is set; every route is open")
	}

	if err := dispatcher.Publish(ctx, events.NewEvent(events.EventApplicationReady, "", nil)); err != nil {
		logger.Warn("application ready listener failed", zap.Error(err))
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
