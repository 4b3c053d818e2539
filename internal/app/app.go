// Package app wires the auth service dependency graph and owns the
// process lifecycle: startup order, background sweepers, and graceful
// shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/abimarket/auth-service/internal/cache"
	"github.com/abimarket/auth-service/internal/config"
	"github.com/abimarket/auth-service/internal/event"
	handler "github.com/abimarket/auth-service/internal/handler/http"
	"github.com/abimarket/auth-service/internal/repository/postgres"
	"github.com/abimarket/auth-service/internal/service"
	"github.com/abimarket/auth-service/internal/token"
	"github.com/abimarket/auth-service/migrations"
	"github.com/abimarket/auth-service/pkg/database"
	"github.com/abimarket/auth-service/pkg/health"
	pkgkafka "github.com/abimarket/auth-service/pkg/kafka"
)

// sweeper is a periodic maintenance task run by the app's background loop.
type sweeper struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context)
}

// App wires together all dependencies and runs the auth service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	httpServer *http.Server
	sweepers   []sweeper
	stopSweep  context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// PostgreSQL connection pool with startup retry.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "auth")

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis is optional. Without it, the cache and denylist live in
	// process memory, which is fine for a single replica.
	var redisClient *redis.Client
	var identityCache cache.IdentityCache
	var denylist cache.TokenDenylist

	if cfg.RedisHost != "" {
		redisClient, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		identityCache = cache.NewRedisIdentityCache(redisClient, cfg.CacheFreshness, logger)
		denylist = cache.NewRedisDenylist(redisClient, logger)
		logger.Info("connected to Redis",
			slog.String("host", cfg.RedisHost),
			slog.Int("port", cfg.RedisPort),
		)
	} else {
		identityCache = cache.NewMemoryIdentityCache(cfg.CacheFreshness)
		denylist = cache.NewMemoryDenylist()
		logger.Info("redis not configured, using in-memory cache and denylist")
	}

	// Kafka producer for the notification pipeline.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	tokenManager := token.NewManager(token.Config{
		AccessSecret:       cfg.JWTAccessSecret,
		RefreshSecret:      cfg.JWTRefreshSecret,
		Issuer:             cfg.JWTIssuer,
		Audience:           cfg.JWTAudience,
		AccessTTL:          cfg.AccessTTL,
		RefreshTTL:         cfg.RefreshTTL,
		ExtendedRefreshTTL: cfg.ExtendedRefreshTTL,
		VerificationTTL:    cfg.VerificationTTL,
		ResetTTL:           cfg.ResetTTL,
	})

	identityRepo := postgres.NewIdentityRepository(pool)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(pool)
	notifier := event.NewProducer(producer, logger)
	guard := service.NewAccountGuard(identityRepo, cfg.LockoutThreshold, cfg.LockoutDuration, logger)
	authService := service.NewAuthService(
		identityRepo, refreshTokenRepo, tokenManager,
		identityCache, denylist, notifier, guard, logger,
	)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := handler.NewRouter(authService, healthHandler, logger, handler.RouterConfig{
		CORS: handler.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		CookieSecure:      cfg.CookieSecure,
		ExtendedCookieTTL: cfg.ExtendedRefreshTTL,
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepers := []sweeper{
		{
			name:     "cache sweep",
			interval: cfg.SweepInterval,
			run: func(ctx context.Context) {
				identityCache.Sweep(ctx)
				denylist.Sweep(ctx)
			},
		},
		{
			name:     "expired refresh token cleanup",
			interval: time.Hour,
			run: func(ctx context.Context) {
				n, err := refreshTokenRepo.DeleteExpired(ctx, time.Now().UTC())
				if err != nil {
					logger.Warn("expired refresh token cleanup failed",
						slog.String("error", err.Error()))
					return
				}
				if n > 0 {
					logger.Info("expired refresh tokens removed", slog.Int64("count", n))
				}
			},
		},
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   producer,
		httpServer: httpServer,
		sweepers:   sweepers,
	}, nil
}

// Run starts the HTTP server and background sweepers, blocking until the
// context is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	a.stopSweep = stopSweep
	for _, s := range a.sweepers {
		go a.runSweeper(sweepCtx, s)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

func (a *App) runSweeper(ctx context.Context, s sweeper) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Background sweepers
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.stopSweep != nil {
		a.stopSweep()
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application stopped")
	return errors.Join(errs...)
}
