// Package http provides the repoprint HTTP API: job submission and
// tracking, progress streaming, and report downloads.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/inkweldlabs/repoprint/internal/engine"
	"github.com/inkweldlabs/repoprint/internal/job"
	"github.com/inkweldlabs/repoprint/internal/store"
	"github.com/inkweldlabs/repoprint/internal/version"
)

// Config holds HTTP server configuration.
type Config struct {
	Host           string
	Port           int
	MaxUploadBytes int64
	RatePerSecond  float64
	RateBurst      int
}

// Options carries the server's dependencies.
type Options struct {
	Jobs    *job.Store
	Engine  *engine.Engine
	Reports *store.Store
	Logger  *zap.Logger
	Config  *Config

	// BaseContext is the lifetime context conversions run on. A
	// client dropping its connection never cancels a job; only
	// daemon shutdown does.
	BaseContext context.Context
}

// Server provides the repoprint HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	jobs    *job.Store
	engine  *engine.Engine
	reports *store.Store
	logger  *zap.Logger
	config  *Config
	limiter *ipLimiter
	baseCtx context.Context
}

// NewServer creates a new HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Jobs == nil {
		return nil, fmt.Errorf("job store is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if opts.Reports == nil {
		return nil, fmt.Errorf("report store is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = &Config{
			Host:           "localhost",
			Port:           8640,
			MaxUploadBytes: 64 << 20,
			RatePerSecond:  1,
			RateBurst:      10,
		}
	}
	baseCtx := opts.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			opts.Logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		jobs:    opts.Jobs,
		engine:  opts.Engine,
		reports: opts.Reports,
		logger:  opts.Logger,
		config:  cfg,
		limiter: newIPLimiter(cfg.RatePerSecond, cfg.RateBurst),
		baseCtx: baseCtx,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Submission is rate limited per client IP; reads are not.
	api := s.echo.Group("/api")
	api.POST("/jobs", s.handleSubmitArchive, s.limiter.middleware())
	api.POST("/jobs/github", s.handleSubmitGitHub, s.limiter.middleware())
	api.GET("/jobs/:id", s.handleJobStatus)
	api.GET("/jobs/:id/events", s.handleJobEvents)

	s.echo.Static("/reports", s.reports.Root())
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Jobs    map[string]int `json:"jobs"`
}

// handleHealth reports liveness plus a job census.
func (s *Server) handleHealth(c echo.Context) error {
	counts := s.jobs.Counts()
	jobs := make(map[string]int, len(counts))
	for status, n := range counts {
		jobs[string(status)] = n
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Version,
		Jobs:    jobs,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
