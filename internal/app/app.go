// Package app wires the service together and runs the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/promoflow/auth-service/internal/config"
	"github.com/promoflow/auth-service/internal/domain/repository"
	memorystore "github.com/promoflow/auth-service/internal/domain/repository/memory"
	"github.com/promoflow/auth-service/internal/domain/repository/postgres"
	redisstore "github.com/promoflow/auth-service/internal/domain/repository/redis"
	httphandler "github.com/promoflow/auth-service/internal/handler/http"
	"github.com/promoflow/auth-service/internal/infrastructure/security"
	"github.com/promoflow/auth-service/internal/service"
	"github.com/promoflow/auth-service/migrations"
)

// App owns the process-level resources.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
	server *http.Server
}

// New connects the dependencies, runs migrations when enabled, and builds
// the HTTP server. It fails fast on any unreachable dependency.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(cfg.Database.DSN()); err != nil {
			return nil, err
		}
		logger.Info("migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	app := &App{cfg: cfg, logger: logger, pool: pool}

	var states repository.StateStore
	switch cfg.StateStore.Backend {
	case config.StateBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		app.redis = client
		states = redisstore.NewStateStore(client)
	case config.StateBackendMemory:
		// Single-process only; states are lost on restart.
		logger.Warn("using in-memory state store, not suitable for multi-replica deployments")
		states = memorystore.NewStateStore()
	default:
		pool.Close()
		return nil, fmt.Errorf("unknown state store backend %q", cfg.StateStore.Backend)
	}

	jwtService, err := security.NewJWTService(cfg.JWT)
	if err != nil {
		app.Close()
		return nil, err
	}

	userRepo := postgres.NewUserRepositoryPostgres(pool)
	accountRepo := postgres.NewOAuthAccountRepositoryPostgres(pool)
	txManager := postgres.NewTxManager(pool)

	oauthService := service.NewOAuthService(cfg.OAuthProviders, states, cfg.OAuth, logger.Named("oauth_service"))
	authService := service.NewAuthService(userRepo, accountRepo, txManager, jwtService, logger.Named("auth_service"))
	userService := service.NewUserService(userRepo, accountRepo, txManager, logger.Named("user_service"))

	checks := map[string]httphandler.HealthCheck{
		"postgres": pool.Ping,
	}
	if app.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		}
	}

	router := httphandler.NewRouter(httphandler.RouterDeps{
		Config:   cfg,
		Logger:   logger,
		Verifier: jwtService,
		Auth:     httphandler.NewAuthHandler(oauthService, authService, logger),
		Me:       httphandler.NewMeHandler(authService, userService, logger),
		Users:    httphandler.NewUserHandler(userService, logger),
		Health:   httphandler.NewHealthHandler(checks),
	})

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

// Run serves HTTP until SIGINT/SIGTERM, then drains within the shutdown
// timeout.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Close releases the database and redis connections.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
}
