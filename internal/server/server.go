// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/linkforge/linkforge/internal/config"
	"github.com/linkforge/linkforge/internal/handlers"
	"github.com/linkforge/linkforge/internal/metrics"
	"github.com/linkforge/linkforge/internal/middleware"
	"github.com/linkforge/linkforge/internal/ratelimit"
	"github.com/linkforge/linkforge/pkg/logger"
)

// Server represents the HTTP server.
type Server struct {
	cfg           *config.Config
	log           *logger.Logger
	httpServer    *http.Server
	healthHandler *handlers.HealthHandler
	linkHandler   *handlers.LinkHandler
	rateLimiter   ratelimit.Limiter
	listener      net.Listener
	running       bool
	mu            sync.RWMutex
}

// New creates a new Server instance around the given link handler.
func New(cfg *config.Config, log *logger.Logger, linkHandler *handlers.LinkHandler) *Server {
	s := &Server{
		cfg:           cfg,
		log:           log,
		healthHandler: handlers.NewHealthHandler(),
		linkHandler:   linkHandler,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      s.buildMiddlewareChain(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// HealthHandler exposes the health handler so dependency checks can be
// registered at startup.
func (s *Server) HealthHandler() *handlers.HealthHandler {
	return s.healthHandler
}

// buildMiddlewareChain creates the middleware chain for the server.
func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	chain := middleware.New(
		middleware.Metrics(),
		middleware.RequestID(),
		middleware.ClientIP(s.cfg.Rate.TrustProxy),
	)

	if s.cfg.Rate.Enabled {
		s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.Config{
			Requests: s.cfg.Rate.Requests,
			Window:   s.cfg.Rate.Window,
		})

		chain = chain.Append(middleware.RateLimit(s.rateLimiter))

		s.log.Info("rate limiting enabled",
			"requests", s.cfg.Rate.Requests,
			"window", s.cfg.Rate.Window.String(),
		)
	}

	return chain.Then(handler)
}

// registerRoutes sets up the HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.healthHandler.Health)
	mux.HandleFunc("GET /ready", s.healthHandler.Ready)

	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/v1/urls", s.linkHandler.Create)
	mux.HandleFunc("GET /api/v1/urls/{code}", s.handleGetLink)
}

// handleGetLink extracts the short code path segment for the info lookup.
func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	shortCode := r.PathValue("code")
	if shortCode == "" {
		http.Error(w, "invalid short code", http.StatusBadRequest)
		return
	}
	s.linkHandler.Get(w, r, shortCode)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.cfg.Server.Address()

	// Create the listener first so the actual address is known even when
	// the configured port is 0.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.log.Info("server starting", "address", listener.Addr().String())

	err = s.httpServer.Serve(listener)
	if err != nil && err != http.ErrServerClosed {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Addr returns the listener address, empty until Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down")

	s.healthHandler.SetReady(false)

	err := s.httpServer.Shutdown(ctx)

	if s.rateLimiter != nil {
		if closeErr := s.rateLimiter.Close(); closeErr != nil {
			s.log.Error("failed to close rate limiter", "error", closeErr.Error())
		}
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil {
		s.log.Error("shutdown error", "error", err.Error())
		return err
	}

	s.log.Info("server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
