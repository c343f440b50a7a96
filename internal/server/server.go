// Package server provides the HTTP API surface for the analysis pipeline:
// job launch, polling, cancellation and runtime statistics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/raphaelgruber/veridata-go/internal/metrics"
	"github.com/raphaelgruber/veridata-go/internal/service"
)

// Server wraps the gin engine with dependencies and lifecycle management.
type Server struct {
	engine *gin.Engine
	logger *slog.Logger
}

// Deps are the collaborators the API exposes.
type Deps struct {
	Jobs     *service.JobRegistry
	Analysis *service.AnalysisService
	Stats    *metrics.Collector
	Logger   *slog.Logger
}

// New builds the router with all routes and middleware registered.
func New(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(deps.Logger))
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	s := &Server{engine: engine, logger: deps.Logger}

	h := &handlers{
		jobs:     deps.Jobs,
		analysis: deps.Analysis,
		stats:    deps.Stats,
	}

	engine.GET("/health", h.health)

	api := engine.Group("/api")
	{
		api.POST("/analysis", h.startAnalysis)
		api.GET("/jobs", h.listJobs)
		api.GET("/jobs/:id", h.jobInfo)
		api.POST("/jobs/:id/cancel", h.cancelJob)
		api.GET("/stats", h.statsSnapshot)
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
