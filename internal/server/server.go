// Package server exposes the scenariod HTTP API on echo.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// Server provides the HTTP endpoints for scenariod.
type Server struct {
	echo    *echo.Echo
	manager *Manager
	logger  *zap.Logger
	addr    string
}

// NewServer creates the HTTP server over a run manager.
func NewServer(manager *Manager, addr string, logger *zap.Logger) (*Server, error) {
	if manager == nil {
		return nil, errors.New("server: manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		manager: manager,
		logger:  logger,
		addr:    addr,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/v1")
	v1.POST("/runs", s.handleStartRun)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
	v1.GET("/runs/:id/decision", s.handleGetDecision)
	v1.POST("/runs/:id/decision", s.handleResolveDecision)
}

// Echo exposes the underlying echo instance, for tests and extra routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.addr))
	return s.echo.Start(s.addr)
}

// Shutdown gracefully shuts down the server and its runs.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	s.manager.Close()
	return s.echo.Shutdown(ctx)
}

// StartRunRequest is the body of POST /v1/runs.
type StartRunRequest struct {
	Type        string `json:"type"`
	Interactive bool   `json:"interactive"`
}

// ResolveDecisionRequest is the body of POST /v1/runs/:id/decision.
type ResolveDecisionRequest struct {
	OptionID string `json:"option_id"`
	Notes    string `json:"notes,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStartRun(c echo.Context) error {
	var req StartRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Type == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "type field is required")
	}

	view, err := s.manager.StartRun(scenario.Type(req.Type), req.Interactive)
	if err != nil {
		s.logger.Error("run start failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start run")
	}
	return c.JSON(http.StatusCreated, view)
}

func (s *Server) handleListRuns(c echo.Context) error {
	return c.JSON(http.StatusOK, s.manager.Runs())
}

func (s *Server) handleGetRun(c echo.Context) error {
	view, err := s.manager.Run(c.Param("id"))
	if errors.Is(err, ErrRunNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleGetDecision(c echo.Context) error {
	d, err := s.manager.PendingDecision(c.Param("id"))
	if errors.Is(err, ErrRunNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if d == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no pending decision")
	}
	return c.JSON(http.StatusOK, d)
}

func (s *Server) handleResolveDecision(c echo.Context) error {
	var req ResolveDecisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.OptionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "option_id field is required")
	}

	err := s.manager.ResolveDecision(c.Param("id"), req.OptionID, req.Notes)
	switch {
	case errors.Is(err, ErrRunNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "resumed"})
}
