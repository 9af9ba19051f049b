// Package httpapi provides the HTTP API for researchd.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/checkpoint"
)

// Runner starts pipeline runs. Runs execute asynchronously; the
// returned run ID is the handle for snapshot lookups.
type Runner interface {
	StartRun(ctx context.Context, req RunRequest) (runID string, err error)
}

// SnapshotStore reads persisted run snapshots.
type SnapshotStore interface {
	Load(ctx context.Context, runID string) (*checkpoint.Snapshot, error)
	List(ctx context.Context) ([]string, error)
}

// Server provides HTTP endpoints for researchd.
type Server struct {
	echo      *echo.Echo
	runner    Runner
	snapshots SnapshotStore
	logger    *zap.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(runner Runner, snapshots SnapshotStore, logger *zap.Logger, cfg *Config) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9292,
		}
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

			logger.Info("http request",
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
		echo:      e,
		runner:    runner,
		snapshots: snapshots,
		logger:    logger,
		config:    cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.POST("/runs", s.handleStartRun)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
}

// RunRequest is the request body for POST /api/v1/runs.
type RunRequest struct {
	Idea        string `json:"idea"`
	AlphaOnly   bool   `json:"alpha_only"`
	Instruments string `json:"instruments,omitempty"`
}

// RunResponse is the response body for POST /api/v1/runs.
type RunResponse struct {
	RunID string `json:"run_id"`
}

// ListRunsResponse is the response body for GET /api/v1/runs.
type ListRunsResponse struct {
	Runs []string `json:"runs"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStartRun kicks off a pipeline run and returns its ID.
func (s *Server) handleStartRun(c echo.Context) error {
	var req RunRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid run request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Idea == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "idea field is required")
	}

	runID, err := s.runner.StartRun(c.Request().Context(), req)
	if err != nil {
		s.logger.Error("failed to start run", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start run")
	}

	s.logger.Info("run started",
		zap.String("run.id", runID),
		zap.Bool("alpha_only", req.AlphaOnly),
	)

	return c.JSON(http.StatusAccepted, RunResponse{RunID: runID})
}

// handleGetRun returns the latest snapshot for a run.
func (s *Server) handleGetRun(c echo.Context) error {
	runID := c.Param("id")

	snap, err := s.snapshots.Load(c.Request().Context(), runID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		s.logger.Error("failed to load run snapshot",
			zap.String("run.id", runID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load run")
	}

	return c.JSON(http.StatusOK, snap)
}

// handleListRuns returns the IDs of all persisted runs.
func (s *Server) handleListRuns(c echo.Context) error {
	runs, err := s.snapshots.List(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list runs")
	}
	if runs == nil {
		runs = []string{}
	}
	return c.JSON(http.StatusOK, ListRunsResponse{Runs: runs})
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
