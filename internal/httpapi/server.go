// Package httpapi provides the HTTP API for insightd.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/insightd/internal/anomaly"
	"github.com/fyrsmithlabs/insightd/internal/engine"
	"github.com/fyrsmithlabs/insightd/internal/forecast"
	"github.com/fyrsmithlabs/insightd/internal/ledger"
	"github.com/fyrsmithlabs/insightd/internal/meeting"
)

// Server exposes the engine over HTTP.
type Server struct {
	echo   *echo.Echo
	engine *engine.Engine
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server around the engine.
func NewServer(eng *engine.Engine, logger *zap.Logger, cfg *Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
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
		echo:   e,
		engine: eng,
		logger: logger,
		config: cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/meetings", s.handleIngestMeeting)
	v1.GET("/patterns", s.handleListPatterns)
	v1.GET("/patterns/:id", s.handleGetPattern)
	v1.GET("/practices", s.handleBestPractices)
	v1.GET("/indicators", s.handleFatigueIndicators)
	v1.GET("/issues", s.handleSystemicIssues)
	v1.GET("/forecasts/:variable", s.handleForecast)
	v1.GET("/anomalies/:variable", s.handleAnomalies)
	v1.GET("/trends/:variable", s.handleTrend)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body for all non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleIngestMeeting ingests one meeting record and returns the analysis.
func (s *Server) handleIngestMeeting(c echo.Context) error {
	var rec meeting.Record
	if err := c.Bind(&rec); err != nil {
		s.logger.Warn("invalid meeting payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "malformed_input"})
	}

	result, err := s.engine.IngestMeeting(c.Request().Context(), &rec)
	if err != nil {
		if errors.Is(err, meeting.ErrMalformedRecord) || errors.Is(err, meeting.ErrEmptyMeetingID) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "malformed_input"})
		}
		s.logger.Error("ingest failed", zap.String("meeting_id", rec.MeetingID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "ingestion failed"})
	}
	return c.JSON(http.StatusOK, result)
}

// handleListPatterns lists detected patterns with optional type/severity
// filters and limit/offset paging.
func (s *Server) handleListPatterns(c echo.Context) error {
	filter := ledger.PatternFilter{
		Type:     ledger.PatternType(c.QueryParam("type")),
		Severity: ledger.Severity(c.QueryParam("severity")),
	}
	limit := intParam(c, "limit", 0)
	offset := intParam(c, "offset", 0)
	return c.JSON(http.StatusOK, s.engine.ListPatterns(filter, limit, offset))
}

func (s *Server) handleGetPattern(c echo.Context) error {
	p, err := s.engine.GetPattern(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "pattern not found"})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleBestPractices(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.BestPractices())
}

func (s *Server) handleFatigueIndicators(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.FatigueIndicators())
}

func (s *Server) handleSystemicIssues(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.SystemicIssues())
}

// handleForecast returns a forecast for ?horizon= (default short_term).
// A series that is too short maps to 422 with a typed body, not a 500.
func (s *Server) handleForecast(c echo.Context) error {
	horizon := forecast.Horizon(c.QueryParam("horizon"))
	if horizon == "" {
		horizon = forecast.HorizonShortTerm
	}

	res, err := s.engine.GetForecast(c.Request().Context(), c.Param("variable"), horizon)
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientData) {
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "insufficient_data"})
		}
		if errors.Is(err, forecast.ErrUnknownHorizon) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "malformed_input"})
		}
		s.logger.Error("forecast failed", zap.String("variable", c.Param("variable")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "forecast failed"})
	}
	return c.JSON(http.StatusOK, res)
}

// handleAnomalies scans the variable's trailing window (?window_days=).
// Unknown variables yield an empty list.
func (s *Server) handleAnomalies(c echo.Context) error {
	records := s.engine.DetectAnomalies(c.Request().Context(), c.Param("variable"), intParam(c, "window_days", 0))
	if records == nil {
		records = []anomaly.Record{}
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleTrend(c echo.Context) error {
	res, err := s.engine.AnalyzeTrend(c.Request().Context(), c.Param("variable"), intParam(c, "window_days", 0))
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientData) {
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "insufficient_data"})
		}
		s.logger.Error("trend analysis failed", zap.String("variable", c.Param("variable")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "trend analysis failed"})
	}
	return c.JSON(http.StatusOK, res)
}

func intParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
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
