package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"lawrag/internal/domain"
)

// Querier is the part of the query pipeline the HTTP surface needs.
type Querier interface {
	Query(ctx context.Context, question string) (domain.QueryResult, error)
}

// Server exposes the query pipeline over HTTP for UI collaborators.
type Server struct {
	echo    *echo.Echo
	querier Querier
	log     *log.Logger
}

type queryRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(querier Querier, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, querier: querier, log: logger}
	e.GET("/healthz", s.health)
	e.POST("/api/query", s.query)
	return s
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	s.log.Info("http api listening", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Question == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "question is required"})
	}

	result, err := s.querier.Query(c.Request().Context(), req.Question)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// mapError translates the pipeline error taxonomy to HTTP statuses without
// leaking internals beyond the error kind.
func (s *Server) mapError(c echo.Context, err error) error {
	s.log.Error("query failed", "err", err)
	switch {
	case errors.Is(err, domain.ErrGenerationTimeout):
		return c.JSON(http.StatusGatewayTimeout, errorResponse{Error: "generation timed out"})
	case errors.Is(err, domain.ErrGenerationUnavailable),
		errors.Is(err, domain.ErrIndexUnavailable):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
	case errors.Is(err, domain.ErrDimensionMismatch):
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "embedding configuration mismatch"})
	default:
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
}
