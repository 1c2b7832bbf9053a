// Copyright (c) 2026 Maktaba. All rights reserved.

// Command api is the entry point for the Maktaba HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis (cache + job queue).
//  5. Run database migrations (idempotent).
//  6. Connect to the object store.
//  7. Wire domain services and background job handlers.
//  8. Start job consumers and the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/maktaba/maktaba/internal/api"
	"github.com/maktaba/maktaba/internal/auth"
	"github.com/maktaba/maktaba/internal/author"
	"github.com/maktaba/maktaba/internal/book"
	"github.com/maktaba/maktaba/internal/category"
	"github.com/maktaba/maktaba/internal/comment"
	"github.com/maktaba/maktaba/internal/download"
	"github.com/maktaba/maktaba/internal/home"
	"github.com/maktaba/maktaba/internal/jobs"
	"github.com/maktaba/maktaba/internal/notification"
	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/config"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/migration"
	"github.com/maktaba/maktaba/internal/platform/objstore"
	pgstore "github.com/maktaba/maktaba/internal/platform/postgres"
	"github.com/maktaba/maktaba/internal/platform/queue"
	redisstore "github.com/maktaba/maktaba/internal/platform/redis"
	"github.com/maktaba/maktaba/internal/platform/sec"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/internal/role"
	"github.com/maktaba/maktaba/internal/series"
	"github.com/maktaba/maktaba/internal/user"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log := rawLog.With(slog.String("app", "maktaba"))
	slog.SetDefault(log)

	log.Info("[Maktaba] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "maktaba"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. A 30s deadline surfaces misconfiguration
	// quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// runCtx bounds everything that outlives startup: job consumers, the
	// delayed-job promoter, and the rate limiter's cleanup loop.
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Object Store ───────────────────────────────────────────────────
	files, err := objstore.New(cfg)
	must(log, err, "connect to object store")

	// ── 7. Identity ───────────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 8. Shared Platform ────────────────────────────────────────────────
	entityCache := cache.New(rdb)
	jobQueue := queue.New(rdb, log)
	rbacStore := rbac.NewPostgresStore(pool)
	evaluator := rbac.NewEvaluator(rbacStore)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	// Repositories first, then services, then handlers. Background handlers
	// share the repositories through the narrow interfaces they declare.
	userRepository := user.NewPostgresRepository(pool)
	bookRepository := book.NewPostgresRepository(pool)
	authorRepository := author.NewPostgresRepository(pool)
	categoryRepository := category.NewPostgresRepository(pool)
	seriesRepository := series.NewPostgresRepository(pool)
	commentRepository := comment.NewPostgresRepository(pool)
	downloadRepository := download.NewPostgresRepository(pool)
	notificationRepository := notification.NewPostgresRepository(pool)
	roleRepository := role.NewPostgresRepository(pool)
	homeRepository := home.NewPostgresRepository(pool)

	notificationService := notification.NewService(notificationRepository, evaluator, userRepository, jobQueue)
	authService := auth.NewService(userRepository, rbacStore, jwtSvc)
	userService := user.NewService(userRepository, user.NewPolicy(evaluator), rbacStore, entityCache, jobQueue)
	roleService := role.NewService(roleRepository, evaluator, entityCache)
	categoryService := category.NewService(categoryRepository, evaluator, entityCache)
	authorService := author.NewService(authorRepository, evaluator, entityCache, jobQueue)
	seriesService := series.NewService(seriesRepository, series.NewPolicy(evaluator), entityCache)
	bookService := book.NewService(bookRepository, book.NewPolicy(evaluator), entityCache,
		jobQueue, files, notificationService, cfg.UploadDir)
	commentService := comment.NewService(commentRepository, evaluator, bookRepository, entityCache)
	homeService := home.NewService(homeRepository, entityCache)

	// ── 10. Background Jobs ───────────────────────────────────────────────
	jobHandlers := jobs.NewHandlers(bookRepository, downloadRepository,
		notificationRepository, notificationService, files, jobQueue, entityCache, log)
	jobHandlers.Register(jobQueue)
	workers := jobQueue.Start(runCtx, cfg.WorkerConcurrency)

	// ── 11. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Auth:         auth.NewHandler(authService),
		Author:       author.NewHandler(authorService),
		Book:         book.NewHandler(bookService),
		Category:     category.NewHandler(categoryService),
		Comment:      comment.NewHandler(commentService),
		Download:     download.NewHandler(downloadRepository),
		Home:         home.NewHandler(homeService),
		Notification: notification.NewHandler(notificationService),
		Role:         role.NewHandler(roleService),
		Series:       series.NewHandler(seriesService),
		User:         user.NewHandler(userService),
	}

	server := api.New(runCtx, cfg, log, jwtSvc, pool, rdb, handlers)

	// ── 12. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http_listening", slog.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
	}

	// Stop the consumers after the HTTP server has drained, so jobs enqueued
	// by in-flight requests still get picked up.
	runCancel()
	workers.Wait()

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
