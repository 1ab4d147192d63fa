// Package server sets up the HTTP server, router, and all route
// definitions.
//
// This package is the "wiring" layer — it connects handlers, middleware,
// and routes. It is the composition root: every dependency (database,
// geocoder, asset store, token service) is constructed and injected here,
// rather than scattered across the codebase.
//
// Keeping server setup out of main.go makes it testable (a test can build
// a Server without running main) and keeps main.go minimal.
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

	"github.com/sakif/placeshare/internal/auth"
	"github.com/sakif/placeshare/internal/config"
	"github.com/sakif/placeshare/internal/geocode"
	"github.com/sakif/placeshare/internal/handler"
	"github.com/sakif/placeshare/internal/middleware"
	sqliteRepo "github.com/sakif/placeshare/internal/repository/sqlite"
	"github.com/sakif/placeshare/internal/service"
	"github.com/sakif/placeshare/internal/storage"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection: graceful shutdown closes it
// after in-flight requests drain, flushing the WAL and releasing the
// file lock.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server with the full dependency chain assembled:
//
//	sqlite.DB → AuthService / PlaceService → handlers → routes
//
// Each layer only receives what it needs: services get the repository
// interfaces, handlers get the service interfaces, and nothing below the
// handler layer knows HTTP exists.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
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

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /api/users/signup      → register (multipart: name, email, password, image)
//	POST   /api/users/login       → login (JSON)
//	GET    /api/users             → public user directory
//	GET    /api/places/{pid}      → single place
//	GET    /api/places/user/{uid} → places created by a user
//	POST   /api/places            → create place (auth, multipart)
//	PATCH  /api/places/{pid}      → update title/description (auth)
//	DELETE /api/places/{pid}      → delete place (auth)
//	GET    /uploads/*             → uploaded images
//	GET    /auth/github/login     → GitHub OAuth (only when configured)
//	GET    /auth/github/callback
//
// MIDDLEWARE ORDER MATTERS — our order:
//  1. RequestID — assigns a unique ID to each request (for tracing)
//  2. RealIP — extracts the real client IP from proxy headers
//  3. Logger — logs each request with timing info
//  4. Recoverer — catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	assets, err := storage.NewLocalStore(s.config.UploadDir)
	if err != nil {
		return fmt.Errorf("creating upload store: %w", err)
	}

	geocoder := geocode.NewNominatimClient(s.config.GeocoderBaseURL, s.config.GeocoderUserAgent)

	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)
	placeService := service.NewPlaceService(s.db, geocoder, assets, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	authHandler := handler.NewAuthHandler(authService, assets, github, s.logger)
	placeHandler := handler.NewPlaceHandler(placeService, assets, s.logger)

	// Uploaded images. StripPrefix removes "/uploads/" before the file
	// lookup, so GET /uploads/abc.png serves {UploadDir}/abc.png.
	fileServer := http.FileServer(http.Dir(s.config.UploadDir))
	s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	s.router.Route("/api", func(r chi.Router) {
		// Public routes: reads and the auth endpoints themselves.
		r.Post("/users/signup", authHandler.HandleSignup)
		r.Post("/users/login", authHandler.HandleLogin)
		r.Get("/users", authHandler.HandleListUsers)
		r.Get("/places/{pid}", placeHandler.HandleGetByID)
		r.Get("/places/user/{uid}", placeHandler.HandleListByUser)

		// Every mutation on places requires a verified identity.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/places", placeHandler.HandleCreate)
			r.Patch("/places/{pid}", placeHandler.HandleUpdate)
			r.Delete("/places/{pid}", placeHandler.HandleDelete)
		})
	})

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		s.logger.Info("GitHub OAuth login enabled")
	}

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// Shutdown order: stop accepting connections, wait up to 30s for
// in-flight requests, then close the database. Skipping the last step
// can leave the SQLite WAL unflushed.
func (s *Server) Start() error {
	defer s.db.Close()

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
			slog.String("database", s.config.DBPath),
			slog.String("uploads", s.config.UploadDir),
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
