// Package httpapi exposes netspan's scan lifecycle, log tail, device
// list, and topology tree over HTTP/JSON, per spec.md §6. Routing,
// middleware, and problem-details error shape follow the teacher's
// internal/server package; the route set itself is netspan's own.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// RouteRegistrar lets external packages (the WebSocket handler) mount
// routes on the server's mux without this package importing them.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// ReadinessChecker reports whether the server can serve traffic.
type ReadinessChecker func(ctx context.Context) error

// Server is netspan's HTTP server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *zap.Logger
	ready      ReadinessChecker
}

// New builds a Server listening on addr, with scan routes served by
// scans, and any extra registrars (e.g. the WebSocket handler) mounted
// alongside them. devMode toggles the Swagger UI.
func New(addr string, scans *ScanHandlers, logger *zap.Logger, ready ReadinessChecker, devMode bool, extra ...RouteRegistrar) *Server {
	mux := http.NewServeMux()
	s := &Server{mux: mux, logger: logger, ready: ready}

	s.registerOperationalRoutes()
	if scans != nil {
		scans.RegisterRoutes(mux)
	}
	for _, r := range extra {
		r.RegisterRoutes(mux)
	}

	if devMode {
		mux.HandleFunc("GET /swagger/doc.json", handleOpenAPIDoc)
		mux.Handle("GET /swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
		logger.Info("swagger UI enabled (dev_mode)", zap.String("path", "/swagger/"))
	}

	middlewares := []Middleware{
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, []string{"/healthz", "/readyz", "/metrics"}),
		SecurityHeadersMiddleware,
		RateLimitMiddleware(100, 200, []string{"/healthz", "/readyz", "/metrics"}),
	}
	handler := Chain(mux, middlewares...)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // topology/device listing can take longer on large networks
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) registerOperationalRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// Start begins serving HTTP requests, blocking until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
