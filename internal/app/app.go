package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/coursesearch/migrations"
	"github.com/utafrali/coursesearch/pkg/database"
	"github.com/utafrali/coursesearch/pkg/health"
	pkgkafka "github.com/utafrali/coursesearch/pkg/kafka"
	"github.com/utafrali/coursesearch/pkg/middleware"
	"github.com/utafrali/coursesearch/pkg/tracing"

	"github.com/utafrali/coursesearch/internal/config"
	"github.com/utafrali/coursesearch/internal/engine"
	esengine "github.com/utafrali/coursesearch/internal/engine/elasticsearch"
	"github.com/utafrali/coursesearch/internal/engine/memory"
	"github.com/utafrali/coursesearch/internal/event"
	handler "github.com/utafrali/coursesearch/internal/handler/http"
	"github.com/utafrali/coursesearch/internal/repository/postgres"
	"github.com/utafrali/coursesearch/internal/seed"
	"github.com/utafrali/coursesearch/internal/service"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "coursesearch"

const idempotencyKeyPrefix = "coursesearch:event:"

// initTracer is replaced in tests to observe tracer shutdown.
var initTracer = tracing.InitTracer

// App wires together all dependencies and runs the course search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	search         *service.SearchService
	pool           *pgxpool.Pool
	redis          *redis.Client
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Components that fail after others were opened are closed again.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err == nil {
			return
		}
		_ = a.closeResources()
		if a.tracerShutdown != nil {
			if shutdownErr := a.tracerShutdown(context.Background()); shutdownErr != nil {
				logger.Error("tracer shutdown error", slog.String("error", shutdownErr.Error()))
			}
		}
	}()

	a.tracerShutdown, err = initTracer(ctx, cfg.TracingConfig(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	healthHandler := health.NewHandler()

	eng, err := newEngine(cfg, logger, healthHandler)
	if err != nil {
		return nil, err
	}

	var store service.CourseStore
	if cfg.PostgresEnabled {
		if a.pool, err = OpenCourseStore(ctx, cfg, logger); err != nil {
			return nil, err
		}
		store = postgres.NewCourseRepository(a.pool)
		healthHandler.Register("postgres", a.pool.Ping)
	}

	a.search = service.NewSearchService(eng, store, cfg.SuggestFetchSize, logger)

	if cfg.SeedFile != "" {
		if err := SeedIndex(ctx, a.search, cfg.SeedFile, logger); err != nil {
			return nil, err
		}
	}

	if cfg.KafkaEnabled {
		if err := a.initConsumer(ctx, healthHandler); err != nil {
			return nil, err
		}
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	router := handler.NewRouter(a.search, healthHandler, logger, handler.RouterConfig{
		AdminJWTSecret:  cfg.AdminJWTSecret,
		CORS:            cors,
		PprofCIDRs:      cfg.PprofAllowedCIDRs,
		RequestTimeout:  cfg.RequestTimeout,
		SearchRateLimit: cfg.SearchRateLimitRPS,
		SearchBurst:     cfg.SearchRateLimitBurst,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

func newEngine(cfg *config.Config, logger *slog.Logger, healthHandler *health.Handler) (engine.SearchEngine, error) {
	if cfg.SearchEngine == config.EngineMemory {
		logger.Info("in-memory search engine initialized")
		return memory.New(), nil
	}

	esEng, err := esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
	if err != nil {
		return nil, fmt.Errorf("init elasticsearch engine: %w", err)
	}
	healthHandler.Register("elasticsearch", esEng.Ping)
	logger.Info("elasticsearch search engine initialized",
		slog.String("url", cfg.ElasticsearchURL),
		slog.String("index", cfg.ElasticsearchIndex),
	)
	return esEng, nil
}

// OpenCourseStore connects to PostgreSQL, applies migrations and exports
// pool metrics.
func OpenCourseStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := cfg.PostgresConfig()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open course store: %w", err)
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate course store: %w", err)
	}

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	logger.Info("course store connected",
		slog.String("host", pgCfg.Host),
		slog.String("database", pgCfg.DBName),
	)
	return pool, nil
}

// SeedIndex replaces the index contents with the courses in path.
func SeedIndex(ctx context.Context, svc *service.SearchService, path string, logger *slog.Logger) error {
	courses, err := seed.LoadFile(path)
	if err != nil {
		return fmt.Errorf("seed index: %w", err)
	}
	if err := svc.ReplaceAll(ctx, courses); err != nil {
		return fmt.Errorf("seed index: %w", err)
	}
	logger.Info("index seeded",
		slog.String("file", path),
		slog.Int("count", len(courses)),
	)
	return nil
}

func (a *App) initConsumer(ctx context.Context, healthHandler *health.Handler) error {
	var store pkgkafka.IdempotencyStore
	if a.cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, a.cfg.RedisConfig())
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		healthHandler.Register("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		store = pkgkafka.NewRedisIdempotencyStore(client, idempotencyKeyPrefix, a.cfg.KafkaIdempotencyTTL)
	} else {
		store = pkgkafka.NewMemoryIdempotencyStore(a.cfg.KafkaIdempotencyTTL)
	}

	events := event.NewConsumer(a.search, a.logger)
	a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  a.cfg.KafkaBrokers,
		GroupID:  a.cfg.KafkaGroupID,
		Topics:   event.Topics(),
		MinBytes: 1,
		MaxBytes: 10e6, // 10 MB
	}, pkgkafka.IdempotentHandler(store, events.Handle, a.logger), a.logger)

	brokers := a.cfg.KafkaBrokers
	healthHandler.RegisterOptional("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, brokers)
	})

	a.logger.Info("kafka consumer initialized",
		slog.Any("brokers", brokers),
		slog.Any("topics", event.Topics()),
		slog.Bool("redis_idempotency", a.redis != nil),
	)
	return nil
}

// Run starts the HTTP server and the event consumer, blocking until the
// context is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed", slog.String("error", runErr.Error()))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases the store connections.
func (a *App) closeResources() error {
	var err error
	if a.redis != nil {
		err = a.redis.Close()
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return err
}
