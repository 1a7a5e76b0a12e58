// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/ytcollage/internal/api"
	"github.com/stwalsh4118/ytcollage/internal/collage"
	"github.com/stwalsh4118/ytcollage/internal/config"
	"github.com/stwalsh4118/ytcollage/internal/db"
	"github.com/stwalsh4118/ytcollage/internal/logger"
	"github.com/stwalsh4118/ytcollage/internal/middleware"
	"github.com/stwalsh4118/ytcollage/internal/thumbnail"
)

// Server represents the HTTP server
type Server struct {
	config       *config.Config
	db           *db.DB
	repos        *db.Repositories
	fetcher      *thumbnail.HTTPFetcher
	boardManager *collage.Manager
	router       *gin.Engine
	server       *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, database *db.DB) *Server {
	repos := db.NewRepositories(database)

	fetcher := thumbnail.NewHTTPFetcher(&http.Client{}, thumbnail.Options{
		Timeout:           cfg.Thumbnail.FetchTimeout,
		MaxBytes:          cfg.Thumbnail.MaxBytes,
		RequestsPerSecond: cfg.Thumbnail.RequestsPerSecond,
		Burst:             cfg.Thumbnail.Burst,
		BreakerThreshold:  cfg.Thumbnail.BreakerThreshold,
		BreakerReset:      cfg.Thumbnail.BreakerReset,
	})

	boardManager := collage.NewManager(
		repos.Sessions,
		collage.NewCoordinator(fetcher, cfg.Thumbnail.BaseURL),
		collage.NewCompositor(cfg.Collage.CellSize),
		collage.ManagerConfig{
			PlaylistMin:      cfg.Collage.PlaylistMinIDs,
			IdleTimeout:      cfg.Collage.IdleTimeout,
			CleanupInterval:  cfg.Collage.CleanupInterval,
			SessionRetention: cfg.Collage.SessionRetention,
		},
	)

	return &Server{
		config:       cfg,
		db:           database,
		repos:        repos,
		fetcher:      fetcher,
		boardManager: boardManager,
	}
}

// Handler returns the router, building it on first use
func (s *Server) Handler() http.Handler {
	if s.router == nil {
		s.setupRouter()
	}
	return s.router
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	// Set Gin mode based on log level
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create new Gin router
	s.router = gin.New()

	// Add middleware stack
	s.router.Use(middleware.RequestLogger()) // Custom zerolog request logger
	s.router.Use(gin.Recovery())             // Panic recovery
	s.router.Use(corsMiddleware())           // Browser clients on other origins

	// Create API route group
	apiGroup := s.router.Group("/api")

	// Register service routes
	api.SetupHealthRoutes(apiGroup, s.db, s.boardManager, s.fetcher.Breaker())
	api.SetupBoardRoutes(apiGroup, s.boardManager)
}

// corsMiddleware allows any origin and exposes the download headers
func corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AddAllowHeaders(middleware.RequestIDHeader)
	cfg.AddExposeHeaders("Content-Disposition", middleware.RequestIDHeader)
	return cors.New(cfg)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.Handler()

	// Start board manager
	if err := s.boardManager.Start(); err != nil {
		return fmt.Errorf("failed to start board manager: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Int("cell_size", s.config.Collage.CellSize).
		Str("thumbnail_base_url", s.config.Thumbnail.BaseURL).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	// Check if server was started before attempting shutdown
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	// Stop the board manager once no request can reach it
	if s.boardManager != nil {
		s.boardManager.Stop()
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
