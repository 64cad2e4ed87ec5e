// Package server wires configuration, storage, services and handlers into
// one HTTP server.
//
// COMPOSITION ROOT:
// Every dependency is built in New and handed down explicitly:
//
//	config → store (sqlite | postgres) → services → handlers → route table
//	       → token/password services → auth gate
//	       → sign-in limiter (memory | redis)
//
// Nothing below this package constructs its own collaborators, which is what
// lets the handler and service tests swap in fakes.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/library-api/internal/auth"
	"github.com/sakif/library-api/internal/config"
	"github.com/sakif/library-api/internal/handler"
	"github.com/sakif/library-api/internal/logging"
	"github.com/sakif/library-api/internal/middleware"
	"github.com/sakif/library-api/internal/ratelimit"
	"github.com/sakif/library-api/internal/repository"
	"github.com/sakif/library-api/internal/repository/postgres"
	sqliteRepo "github.com/sakif/library-api/internal/repository/sqlite"
	"github.com/sakif/library-api/internal/service"
)

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store and, when Redis is configured, the limiter's
// client. Close releases both; Start calls it after a graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
	gate   *auth.Gate
	routes []routeGroup

	closers []io.Closer
}

// New builds the whole dependency graph from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// === STORAGE ===
	store, err := openStore(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		closers: []io.Closer{store},
	}

	// === AUTH PRIMITIVES ===
	// Secret and cost are fixed here for the life of the process.
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:    cfg.JWT.Secret,
		Algorithm: cfg.JWT.Algorithm,
		Issuer:    cfg.JWT.Issuer,
		TTL:       cfg.JWT.AccessTokenTTL,
		Leeway:    cfg.JWT.Leeway,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("server: token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(cfg.Bcrypt.Cost)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("server: password service: %w", err)
	}
	s.gate = auth.NewGate(tokens, logger)

	limiter, err := s.newLimiter(ctx, cfg.SignIn)
	if err != nil {
		s.Close()
		return nil, err
	}

	// === SERVICES → HANDLERS ===
	authService := service.NewAuthService(store.Users(), tokens, passwords, logger)
	catalogService := service.NewCatalogService(store.Catalog())
	loanService := service.NewLoanService(store.Loans(), catalogService, cfg.Loans.Period, logger)

	s.routes = routeTable(handlers{
		auth:    handler.NewAuthHandler(authService, limiter, logger),
		catalog: handler.NewCatalogHandler(catalogService, logger),
		loans:   handler.NewLoanHandler(loanService, logger),
		health:  handler.NewHealthHandler(store, logger),
	})
	s.setupRoutes()

	return s, nil
}

// openStore connects to the configured database and applies migrations.
func openStore(ctx context.Context, cfg config.DB) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("server: opening postgres: %w", err)
		}
		return db, nil

	case config.DriverSQLite, "":
		// Ensure the data directory exists (like `mkdir -p`).
		if cfg.Path != ":memory:" {
			if dir := filepath.Dir(cfg.Path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("server: creating database directory %s: %w", dir, err)
				}
			}
		}
		db, err := sqliteRepo.New(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("server: unknown database driver %q", cfg.Driver)
}

// newLimiter returns the Redis limiter when REDIS_URL is set, otherwise the
// in-memory one.
func (s *Server) newLimiter(ctx context.Context, cfg config.SignIn) (ratelimit.Limiter, error) {
	policy := ratelimit.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Window:      cfg.Window,
		Lockout:     cfg.Lockout,
	}

	if cfg.RedisURL == "" {
		return ratelimit.NewMemory(policy, nil), nil
	}

	rl, err := ratelimit.NewRedisFromURL(ctx, cfg.RedisURL, policy)
	if err != nil {
		return nil, fmt.Errorf("server: sign-in limiter: %w", err)
	}
	s.closers = append(s.closers, rl)
	return rl, nil
}

// setupRoutes installs global middleware, then mounts the route table.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns an id that the access log prints
//  2. RealIP (TRUSTED_PROXY only): rewrites RemoteAddr from
//     X-Forwarded-For / X-Real-IP, which the sign-in limiter keys on.
//     Without a proxy in front those headers are caller-controlled.
//  3. Logger: one line per request
//  4. Recoverer: turns a panic into a 500 instead of killing the process
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	if s.config.SignIn.TrustedProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.mount(s.routes)
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store and the limiter client.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully:
//  1. stop accepting new connections
//  2. wait up to shutdownTimeout for in-flight requests
//  3. close the store and the limiter client
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", logging.Err(err))
		}
	}()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.HTTPServer.ReadTimeout,
		WriteTimeout: s.config.HTTPServer.WriteTimeout,
		IdleTimeout:  s.config.HTTPServer.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("env", s.config.Env),
			slog.String("db", s.config.DB.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
