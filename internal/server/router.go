// Package server assembles repositories, services and handlers into the HTTP router
package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/booklog/backend/internal/config"
	"github.com/booklog/backend/internal/handlers"
	"github.com/booklog/backend/internal/metrics"
	"github.com/booklog/backend/internal/middleware"
	"github.com/booklog/backend/internal/repositories"
	"github.com/booklog/backend/internal/services"
	"github.com/booklog/backend/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// requestsPerMinute is the general per-IP request budget
const requestsPerMinute = 100

// Options holds everything the router is built from
type Options struct {
	Config *config.Config
	DB     *sql.DB
	// Store keeps revoked sessions. Nil means an in-memory store.
	Store session.RevocationStore
	// Registry receives the application metrics and backs /metrics.
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// NewRouter wires the whole application
func NewRouter(opts Options) http.Handler {
	cfg := opts.Config
	logger := opts.Logger
	perPage := cfg.Feed.PostsPerPage

	store := opts.Store
	if store == nil {
		store = session.NewMemoryStore()
	}
	m := metrics.New(opts.Registry)

	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.Expiry, cfg.Session.RememberExpiry, cfg.Session.SecureCookie, store)

	// Repositories
	userRepo := repositories.NewUserRepository(opts.DB, logger)
	postRepo := repositories.NewPostRepository(opts.DB, logger)
	bookRepo := repositories.NewBookRepository(opts.DB, logger)
	borrowRepo := repositories.NewBorrowRepository(opts.DB, logger)

	// Services
	authService := services.NewAuthService(userRepo, m, logger)
	userService := services.NewUserService(userRepo, postRepo, perPage, logger)
	postService := services.NewPostService(postRepo, borrowRepo, perPage, m, logger)
	libraryService := services.NewLibraryService(bookRepo, borrowRepo, userRepo, m, logger)
	adminService := services.NewAdminService(userRepo, bookRepo, borrowRepo, postRepo, authService, perPage, logger)

	// Handlers
	secure := cfg.Session.SecureCookie
	authHandler := handlers.NewAuthHandler(authService, sessions, secure, logger)
	feedHandler := handlers.NewFeedHandler(postService, secure, logger)
	userHandler := handlers.NewUserHandler(userService, secure, logger)
	libraryHandler := handlers.NewLibraryHandler(libraryService, secure, logger)
	adminHandler := handlers.NewAdminHandler(adminService, secure, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.MetricsMiddleware(m))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))
	r.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	r.Use(middleware.SessionMiddleware(sessions, userService, logger))

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))

	authHandler.RegisterRoutes(r, httprate.LimitByIP(cfg.Server.LoginRateLimit, time.Minute))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		feedHandler.RegisterRoutes(r)
		userHandler.RegisterRoutes(r)
		libraryHandler.RegisterRoutes(r)
		adminHandler.RegisterRoutes(r)
	})

	return r
}
