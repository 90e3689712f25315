// Package server wires the garden planner together and runs the HTTP server.
//
// This is the composition root: New opens the database, seeds the plant
// catalog, builds repositories → services → handlers, and mounts them on a
// chi router. Nothing else in the module constructs concrete dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/garden-planner/internal/auth"
	"github.com/sakif/garden-planner/internal/catalog"
	"github.com/sakif/garden-planner/internal/config"
	"github.com/sakif/garden-planner/internal/handler"
	"github.com/sakif/garden-planner/internal/middleware"
	sqliteRepo "github.com/sakif/garden-planner/internal/repository/sqlite"
	"github.com/sakif/garden-planner/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed when Start returns.
type Server struct {
	router *chi.Mux
	config config.AppConfig
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database at cfg.DatabasePath, imports the plant catalog and
// sets up the routes.
func New(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET    /healthz
//	POST   /api/auth/register, /api/auth/login         public
//	GET    /api/plants/catalog[/{plantId}]              public
//	GET    /auth/github/login, /auth/github/callback    when GitHub is configured
//	POST   /auth/logout
//	*      /api/me, /api/gardens, /api/beds, /api/plants/{save,all}-plants   RequireAuth
//	GET    /*                                           static.dir, when set
//
// MIDDLEWARE ORDER:
// RequestID runs first so the logger can report the ID. Recoverer sits
// inside the logger so a panic is logged as the 500 it becomes.
func (s *Server) setupRoutes(ctx context.Context) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	if len(s.config.CORSAllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// === Dependencies ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	catalogService := service.NewCatalogService(s.db.Catalog(), s.logger)
	if err := s.seedCatalog(ctx, catalogService); err != nil {
		return err
	}

	accounts := service.NewAuthService(s.db.Users(), tokens, auth.NewPasswordService(), s.logger)
	gardenService := service.NewGardenService(s.db.Gardens(), s.logger)
	bedService := service.NewBedService(s.db.Gardens(), s.db.Beds(), s.db.Plants(), s.logger)
	plantService := service.NewPlantService(s.db.Beds(), s.db.Plants(), s.db.Catalog(), s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	} else {
		s.logger.Info("GitHub sign-in disabled: github.client_id not set")
	}

	authHandler := handler.NewAuthHandler(accounts, tokens, github, s.config.SecureCookies, s.logger)
	gardenHandler := handler.NewGardenHandler(gardenService, s.logger)
	bedHandler := handler.NewBedHandler(bedService, s.logger)
	plantHandler := handler.NewPlantHandler(plantService, catalogService, s.logger)

	// === Routes ===
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/logout", authHandler.HandleLogout)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Get("/plants/catalog", plantHandler.HandleCatalog)
		r.Get("/plants/catalog/{plantId}", plantHandler.HandleCatalogPlant)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)
			r.Put("/me", authHandler.HandleUpdateMe)
			r.Delete("/me", authHandler.HandleDeleteMe)

			r.Post("/gardens", gardenHandler.HandleCreate)
			r.Get("/gardens", gardenHandler.HandleGet)
			r.Put("/gardens", gardenHandler.HandleUpdate)
			r.Delete("/gardens", gardenHandler.HandleDelete)

			r.Post("/beds", bedHandler.HandleCreate)
			r.Get("/beds", bedHandler.HandleGet)
			r.Put("/beds", bedHandler.HandleUpdate)
			r.Delete("/beds", bedHandler.HandleDelete)

			r.Post("/plants/save-plants", plantHandler.HandleSave)
			r.Get("/plants/all-plants", plantHandler.HandleList)
		})
	})

	if s.config.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
	return nil
}

// seedCatalog upserts the configured catalog on every start, so edits to the
// file take effect on restart.
func (s *Server) seedCatalog(ctx context.Context, svc *service.CatalogService) error {
	plants, err := catalog.LoadOrDefault(s.config.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading plant catalog: %w", err)
	}
	if _, err := svc.Import(ctx, plants); err != nil {
		return fmt.Errorf("seeding plant catalog: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully: stop accepting connections, give in-flight requests 30s,
// then close the database.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DatabasePath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
