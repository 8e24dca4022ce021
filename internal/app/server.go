// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"catalog_hierarchy_backend/internal/category"
	"catalog_hierarchy_backend/internal/config"
	"catalog_hierarchy_backend/internal/jobs"
	"catalog_hierarchy_backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	// Handlers
	categoryHandler *category.Handler

	// Jobs
	statsReconcilerJob *jobs.StatsReconcilerJob

	// Middleware instances
	actorMW     gin.HandlerFunc
	adminRoleMW gin.HandlerFunc
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	categoryHandler *category.Handler,
	statsReconcilerJob *jobs.StatsReconcilerJob,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	// CORS Middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	actorMW := middleware.ActorMiddleware(logger.Named("ActorMiddleware"))
	adminRoleMW := middleware.AdminRoleMiddleware()

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Catalog Hierarchy API is healthy!"})
	})

	v1 := router.Group("/api/v1")
	categoryHandler.RegisterRoutes(v1, actorMW, adminRoleMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:         httpServer,
		router:             router,
		cfg:                cfg,
		logger:             logger,
		categoryHandler:    categoryHandler,
		statsReconcilerJob: statsReconcilerJob,
		actorMW:            actorMW,
		adminRoleMW:        adminRoleMW,
	}, nil
}

func (s *Server) Start() error {
	if s.statsReconcilerJob != nil {
		if err := s.statsReconcilerJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start stats reconcile job", zap.Error(err))
		}
	} else {
		s.logger.Info("Stats reconcile job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped gracefully or an error occurred")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.statsReconcilerJob != nil {
		s.statsReconcilerJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
