// Package server exposes the servicing engine's batch jobs and per-loan
// operations over HTTP for schedulers and operators.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"lamf-engine/internal/config"
	"lamf-engine/internal/engine"
)

// Server wraps the gin router and the servicing engine.
type Server struct {
	engine *engine.Engine
	logger zerolog.Logger
	cfg    config.ServerConfig
	http   *http.Server
}

// New builds the server and registers all routes.
func New(eng *engine.Engine, cfg config.ServerConfig, logger zerolog.Logger) *Server {
	if cfg.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine: eng,
		logger: logger,
		cfg:    cfg,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api/v1")
	{
		jobs := api.Group("/jobs")
		jobs.POST("/revalue", s.handleRevalueJob)
		jobs.POST("/risk-sweep", s.handleRiskSweep)
		jobs.POST("/rebalance", s.handleRebalance)
		jobs.POST("/escalate", s.handleEscalate)

		loans := api.Group("/loans")
		loans.POST("/:id/payments", s.handlePayment)
		loans.GET("/:id/foreclosure", s.handleForeclosure)
		loans.GET("/:id/ltv", s.handleLTV)
	}

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Run starts the HTTP listener and blocks until the server stops.
func (s *Server) Run() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Msg("HTTP server starting")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)})
}
