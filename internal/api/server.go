// Copyright (c) 2026 Maktaba. All rights reserved.

// Package api assembles the HTTP surface: the middleware chain, the
// versioned route tree, and the health endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/maktaba/maktaba/internal/auth"
	"github.com/maktaba/maktaba/internal/author"
	"github.com/maktaba/maktaba/internal/book"
	"github.com/maktaba/maktaba/internal/category"
	"github.com/maktaba/maktaba/internal/comment"
	"github.com/maktaba/maktaba/internal/download"
	"github.com/maktaba/maktaba/internal/home"
	"github.com/maktaba/maktaba/internal/notification"
	"github.com/maktaba/maktaba/internal/platform/config"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/middleware"
	"github.com/maktaba/maktaba/internal/role"
	"github.com/maktaba/maktaba/internal/series"
	"github.com/maktaba/maktaba/internal/user"
)

// Handlers collects the per-domain HTTP handlers mounted by the server.
type Handlers struct {
	Auth         *auth.Handler
	Author       *author.Handler
	Book         *book.Handler
	Category     *category.Handler
	Comment      *comment.Handler
	Download     *download.Handler
	Home         *home.Handler
	Notification *notification.Handler
	Role         *role.Handler
	Series       *series.Handler
	User         *user.Handler
}

// Server owns the assembled router and the listening socket.
type Server struct {
	router chi.Router
	http   *http.Server
}

// New builds the full route tree. baseCtx bounds the lifetime of the rate
// limiter's cleanup goroutine.
func New(
	baseCtx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	verifier middleware.TokenVerifier,
	db *pgxpool.Pool,
	redisClient *goredis.Client,
	handlers Handlers,
) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(logger))
	router.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	router.Use(middleware.RateLimit(baseCtx))
	router.Use(middleware.PanicRecovery(logger))
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.Authenticate(verifier))

	router.Get("/healthz", liveness)
	router.Get("/readyz", readiness(db, redisClient))

	router.Route("/api/v1", func(api chi.Router) {
		api.Mount("/", handlers.Home.Routes())
		api.Mount("/auth", handlers.Auth.Routes())
		api.Mount("/books", handlers.Book.Routes())
		api.Mount("/authors", handlers.Author.Routes())
		api.Mount("/categories", handlers.Category.Routes())
		api.Mount("/series", handlers.Series.Routes())
		api.Mount("/comments", handlers.Comment.Routes())
		api.Mount("/downloads", handlers.Download.Routes())
		api.Mount("/notifications", handlers.Notification.Routes())
		api.Mount("/roles", handlers.Role.Routes())
		api.Mount("/users", handlers.User.Routes())
	})

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadTimeout:       constants.DefaultReadTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
	}
}

// Router returns the http handler for the server.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts accepting connections. It blocks until the listener
// closes.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests for at most timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
