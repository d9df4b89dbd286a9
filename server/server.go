// Package server exposes the answer pipeline over HTTP: one chat route,
// a health probe and the Prometheus scrape endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cheonanurc/urcbot/ai/metrics"
	"github.com/cheonanurc/urcbot/ai/router"
	"github.com/cheonanurc/urcbot/internal/profile"
)

// Server wires the echo instance to the answer router.
type Server struct {
	profile *profile.Profile
	answers *router.AnswerRouter
	metrics *metrics.PrometheusExporter

	echoServer *echo.Echo
}

// NewServer builds the HTTP surface. The metrics exporter may be nil,
// in which case the scrape endpoint is not registered.
func NewServer(_ context.Context, prof *profile.Profile, answers *router.AnswerRouter, exporter *metrics.PrometheusExporter) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		profile:    prof,
		answers:    answers,
		metrics:    exporter,
		echoServer: e,
	}

	e.GET("/healthz", s.handleHealthz)
	if exporter != nil {
		e.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	}
	e.POST("/api/v1/chat", s.handleChat)

	return s, nil
}

// Start begins serving and returns once the listener stops.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	return s.echoServer.Start(addr)
}

// Shutdown drains in-flight requests and pending answer writes.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	s.answers.Wait()
	slog.Info("server stopped")
}

// Echo exposes the underlying engine for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echoServer
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.profile.Version,
	})
}
