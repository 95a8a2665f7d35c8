// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config and builds the logger, then:
//
//	Server.New() creates:
//	  sqlite.DB ─┬─→ AuthService (+ billing.Customers, AuthMetrics) ─→ AuthHandler
//	             └─→ ItemService (+ VoteMetrics)                     ─→ ItemHandler
//	  GitHubProvider + TokenService + cookie store ─→ Handshake ─→ AuthHandler
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/linkshare/internal/auth"
	"github.com/sakif/linkshare/internal/billing"
	"github.com/sakif/linkshare/internal/handler"
	"github.com/sakif/linkshare/internal/metrics"
	"github.com/sakif/linkshare/internal/middleware"
	sqliteRepo "github.com/sakif/linkshare/internal/repository/sqlite"
	"github.com/sakif/linkshare/internal/service"
)

// Config holds server configuration.
// main.go fills it from config.Config; tests fill it directly.
type Config struct {
	Port   int
	DBPath string

	// SessionSecret signs the site-session JWT and authenticates the
	// short-lived OAuth state cookie.
	SessionSecret string
	SessionMaxAge time.Duration
	CookieSecure  bool

	GitHub auth.GitHubConfig

	// StripeSecretKey enables billing when set.
	StripeSecretKey string
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it after the HTTP
// server has drained; Close does the same for servers that never started.
type Server struct {
	router   *chi.Mux
	config   Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	registry *prometheus.Registry
}

// New creates a new Server with the given config.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: metrics.NewRegistry(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                  → Items page (HTML, optional auth)
// GET    /item/{id}         → Item page (HTML, optional auth)
// GET    /signin            → Start GitHub OAuth
// GET    /callback          → Finish GitHub OAuth, sign in
// GET    /signout           → Drop the session
// GET    /api/me            → Current user (JSON, auth required)
// POST   /api/items         → Submit item (JSON, auth required)
// POST   /api/vote          → Vote (auth required)
// DELETE /api/vote          → Unvote (auth required)
// GET    /metrics           → Prometheus
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID — assigns unique ID to each request (the logger reads it)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Logger — logs each request with timing info
// 4. Metrics — request counts and durations by route pattern
// 5. Recoverer — catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.SessionSecret, s.config.SessionMaxAge)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	httpMetrics := metrics.NewHTTPMetrics(s.registry)
	authMetrics := metrics.NewAuthMetrics(s.registry)
	voteMetrics := metrics.NewVoteMetrics(s.registry)

	clock := clockwork.NewRealClock()
	customers := billing.New(s.config.StripeSecretKey, s.logger)
	if !customers.Enabled() {
		s.logger.Info("STRIPE_SECRET_KEY not set — billing customers are not created")
	}

	// === Services ===
	// s.db implements every repository interface; each service only sees
	// the interfaces it asks for.
	authService := service.NewAuthService(s.db, customers, clock, authMetrics, s.logger)
	itemService := service.NewItemService(s.db, s.db, s.db, clock, voteMetrics, s.logger)

	// === Handlers ===
	github := auth.NewGitHubProvider(s.config.GitHub)
	handshake := auth.NewHandshake(github, tokens, auth.NewOAuthStore(s.config.SessionSecret), s.config.CookieSecure)

	authHandler := handler.NewAuthHandler(handshake, github, authService, s.config.CookieSecure, s.logger)
	itemHandler := handler.NewItemHandler(itemService, authService, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(httpMetrics.Middleware)
	s.router.Use(chimiddleware.Recoverer)

	s.router.Handle("/metrics", metrics.Handler(s.registry))

	// === Page Routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/", itemHandler.HandleHome)
		r.Get("/item/{id}", itemHandler.HandleItem)
		r.Get("/signout", authHandler.HandleSignout)
	})

	// === OAuth Routes ===
	s.router.Get("/signin", authHandler.HandleSignin)
	s.router.Get("/callback", authHandler.HandleCallback)

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/me", authHandler.HandleMe)
		r.Post("/items", itemHandler.HandleCreate)
		r.Post("/vote", itemHandler.HandleVote)
		r.Delete("/vote", itemHandler.HandleUnvote)
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	// The write timeout also bounds the callback: token exchange, profile
	// fetch and Stripe all run inside one request.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
