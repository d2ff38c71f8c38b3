// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and
// routes. It decides which URL patterns map to which handler functions, what
// middleware runs where, and how the server starts and stops gracefully.
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config → New() assembles the whole graph:
//
//	sqlite.DB → FavoriteRepo/CommentRepo/UserRepo
//	dataset.Source → CatalogService
//	TokenService + UserRepo → SessionContext
//	FavoritesManager / ThreadManager ← subscribed to SessionContext
//	handlers ← services
//
// This is the "composition root" pattern — all dependencies are wired in one
// place rather than scattered across the codebase. Each layer only receives
// what it needs: services get repository interfaces, handlers get services,
// and nothing below the handlers knows HTTP exists.
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

	"github.com/sakif/snippet-catalog/internal/auth"
	"github.com/sakif/snippet-catalog/internal/dataset"
	"github.com/sakif/snippet-catalog/internal/handler"
	"github.com/sakif/snippet-catalog/internal/middleware"
	sqliteRepo "github.com/sakif/snippet-catalog/internal/repository/sqlite"
	"github.com/sakif/snippet-catalog/internal/service"
)

// OAuthCredentials is one provider's client registration.
type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

func (c OAuthCredentials) configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Config holds server configuration. Using a struct (instead of individual
// parameters) lets new options arrive without changing function signatures,
// and keeps env-var parsing in main.go only.
type Config struct {
	Port   int
	DBPath string

	// Dataset location: URL wins when both are set, path is the local
	// fallback for development and baked-in deployments.
	DatasetURL  string
	DatasetPath string

	JWTSecret string
	GitHub    OAuthCredentials
	Google    OAuthCredentials

	// PremiumDefault is the premium visibility applied to requests that
	// don't carry their own ?premium= parameter.
	PremiumDefault bool

	// RollbackFailedToggles reverts a favorite's optimistic cache flip when
	// the store write fails, instead of keeping the divergence until resync.
	RollbackFailedToggles bool
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. When the server shuts down it
// closes the connection to flush the WAL and release the file lock — handled
// in Start() during graceful shutdown.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	catalog *service.CatalogService
}

// New creates a Server with the given config: opens the database, builds the
// service graph, and wires the routes. The catalog is NOT loaded yet — Start
// does that, so a slow dataset fetch can't stall construction and a failed
// one doesn't prevent the server from coming up.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.DatasetURL == "" && cfg.DatasetPath == "" {
		return nil, fmt.Errorf("server: no dataset source configured")
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes assembles the dependency graph and configures all middleware
// and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /api/snippets               → search (q, category, language, difficulty, premium)
//	GET  /api/snippets/random        → random sample
//	GET  /api/snippets/{id}          → single snippet (premium preview redaction)
//	GET  /api/catalog/facets         → filter vocabulary
//	GET  /api/snippets/{id}/comments → thread (optional auth; anonymous = read-disabled)
//	POST /api/snippets/{id}/comments → add comment            [auth]
//	GET  /api/favorites              → favorite ids + state   [auth]
//	POST /api/favorites/{id}/toggle  → flip one favorite      [auth]
//	POST /api/favorites/resync       → re-pull from the store [auth]
//	GET  /api/me                     → profile                [auth]
//	GET  /auth/{provider}/login, /auth/{provider}/callback
//	POST /auth/logout                                         [optional auth]
//
// MIDDLEWARE ORDER MATTERS — ours is:
//  1. RequestID — unique id per request (the logger picks it up)
//  2. RealIP — real client IP from proxy headers
//  3. Recoverer — panics become 500s instead of crashing the process
//  4. Logger — logs each request with timing info
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === DATA SOURCES ===
	var source dataset.Source
	if s.config.DatasetURL != "" {
		source = dataset.NewHTTPSource(s.config.DatasetURL)
	} else {
		source = dataset.NewFileSource(s.config.DatasetPath)
	}

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// === SERVICES ===
	s.catalog = service.NewCatalogService(source, s.logger)
	sessions := service.NewSessionContext(sqliteRepo.NewUserRepo(s.db), tokens, s.logger)
	favorites := service.NewFavoritesManager(
		sqliteRepo.NewFavoriteRepo(s.db),
		service.FavoritesConfig{RollbackOnFailure: s.config.RollbackFailedToggles},
		s.logger,
	)
	threads := service.NewThreadManager(sqliteRepo.NewCommentRepo(s.db), s.logger)

	// Sign-in warms a user's favorites cache; sign-out clears favorites and
	// comment state synchronously. The subscription is the only coupling
	// between the session lifecycle and the per-user state.
	sessions.Subscribe(favorites.HandleSessionChange)
	sessions.Subscribe(threads.HandleSessionChange)

	// === PROVIDERS ===
	var providers []auth.Provider
	if s.config.GitHub.configured() {
		providers = append(providers, auth.NewGitHubProvider(
			s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL))
	}
	if s.config.Google.configured() {
		providers = append(providers, auth.NewGoogleProvider(
			s.config.Google.ClientID, s.config.Google.ClientSecret, s.config.Google.CallbackURL))
	}
	if len(providers) == 0 {
		s.logger.Warn("no OAuth providers configured — sign-in is unavailable")
	}

	// === HANDLERS ===
	catalogHandler := handler.NewCatalogHandler(s.catalog, s.config.PremiumDefault, s.logger)
	favoritesHandler := handler.NewFavoritesHandler(favorites, sessions, s.logger)
	commentsHandler := handler.NewCommentsHandler(threads, sessions, s.logger)
	authHandler := handler.NewAuthHandler(providers, sessions, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}/login", authHandler.HandleLogin)
		r.Get("/{provider}/callback", authHandler.HandleCallback)
		r.With(auth.OptionalAuth(tokens)).Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		// public catalog endpoints — note /snippets/random is registered
		// before /snippets/{id} so "random" is never treated as an id
		r.Get("/snippets", catalogHandler.HandleSearch)
		r.Get("/snippets/random", catalogHandler.HandleRandom)
		r.Get("/snippets/{id}", catalogHandler.HandleGet)
		r.Get("/catalog/facets", catalogHandler.HandleFacets)

		// comment reads work for everyone; anonymous gets read-disabled
		r.With(auth.OptionalAuth(tokens)).Get("/snippets/{id}/comments", commentsHandler.HandleList)

		// everything below requires a valid session
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/snippets/{id}/comments", commentsHandler.HandleCreate)
			r.Get("/favorites", favoritesHandler.HandleList)
			r.Post("/favorites/{id}/toggle", favoritesHandler.HandleToggle)
			r.Post("/favorites/resync", favoritesHandler.HandleResync)
			r.Get("/me", authHandler.HandleMe)
		})
	})

	return nil
}

// Start loads the catalog, starts the HTTP server, and handles graceful
// shutdown.
//
// The initial dataset load is reported-but-not-fatal: a catalog that failed
// to load serves empty search results (and a 503 on direct lookups) until an
// operator restarts with a working source. Favorites, comments, and auth are
// unaffected — they don't depend on the dataset.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), time.Minute)
	if err := s.catalog.Load(loadCtx); err != nil {
		s.logger.Warn("initial catalog load failed; catalog is empty until restart",
			slog.String("error", err.Error()),
		)
	}
	cancelLoad()

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
			slog.Bool("catalogLoaded", s.catalog.Loaded()),
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
