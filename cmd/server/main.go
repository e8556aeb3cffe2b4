package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dailyposts/blog-api/cmd/internal/config"
	"github.com/dailyposts/blog-api/cmd/internal/database"
	"github.com/dailyposts/blog-api/cmd/internal/handlers"
	"github.com/dailyposts/blog-api/cmd/internal/logging"
	"github.com/dailyposts/blog-api/cmd/internal/middleware"
	"github.com/dailyposts/blog-api/cmd/internal/migrations"
	"github.com/dailyposts/blog-api/cmd/internal/repository"
	"github.com/dailyposts/blog-api/cmd/internal/service"
	"github.com/dailyposts/blog-api/cmd/internal/upload"
	"github.com/dailyposts/blog-api/cmd/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := initStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	images, err := upload.NewImageStore(cfg.Upload.Dir, "/uploads", cfg.Upload.MaxBytes)
	if err != nil {
		return err
	}

	metrics := middleware.NewMetrics()
	posts := service.NewPostService(store, logger)
	importer := service.NewImporter(posts, logger, service.WithObserver(func(o service.RowOutcome) {
		metrics.ObserveImportRow(o.Kind.String())
	}))

	pages, err := web.NewPages(posts, logger, web.WithEditor(importer, images, cfg.Upload.MaxBytes))
	if err != nil {
		return err
	}

	limiter, closeRedis := initRateLimiter(ctx, cfg, logger)
	defer closeRedis()

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: handlers.NewRouter(handlers.Deps{
			Posts:          posts,
			Importer:       importer,
			Images:         images,
			Pages:          pages,
			Metrics:        metrics,
			Limiter:        limiter,
			Logger:         logger,
			MaxUploadBytes: cfg.Upload.MaxBytes,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "storage", store.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initStore picks the post store for the configured driver. The returned func
// releases whatever the store holds open.
func initStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.PostStore, func(), error) {
	if !cfg.UsesSQL() {
		store, err := repository.NewFileRepository(cfg.Storage.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}

	dialect, err := repository.DialectFor(cfg.Storage.Driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Open(ctx, cfg.Storage.Driver, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(db, cfg.Storage.Driver); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("migrations applied", "driver", cfg.Storage.Driver)
	}

	return repository.NewPostRepository(db, dialect), closeDB(db, logger), nil
}

func closeDB(db *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}
}

// initRateLimiter connects to Redis when one is configured. Writes go unlimited
// when Redis is absent or unreachable at startup.
func initRateLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*middleware.RateLimiter, func()) {
	if !cfg.RateLimitEnabled() {
		logger.Info("rate limiting disabled, no redis address configured")
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	limiter := middleware.NewRateLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := limiter.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, rate limiting disabled", "addr", cfg.Redis.Addr, "error", err)
		client.Close()
		return nil, func() {}
	}

	return limiter, func() { client.Close() }
}
