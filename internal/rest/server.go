// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sovereign.
//
// go-sovereign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package rest exposes the identity engine over HTTP: enrollment and
// authentication ceremonies, selective disclosure, revocation control
// and identity erasure. All routes sit behind the revocation gate.
package rest

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-sovereign/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sovereign/pkg/metrics"
	"github.com/jeremyhahn/go-sovereign/pkg/ratelimit"
)

// Server represents the REST API server.
type Server struct {
	server      *http.Server
	handlers    *HandlerContext
	router      *chi.Mux
	host        string
	port        int
	tlsConfig   *tls.Config
	limiter     *ratelimit.Limiter
	metricsPath string
	logger      logger.Logger
}

// Config holds the REST server configuration.
type Config struct {
	// Host is the listen address (default: all interfaces).
	Host string

	// Port is the port to listen on (default: 8443).
	Port int

	// Handlers is the handler context. Required.
	Handlers *HandlerContext

	// TLSConfig enables HTTPS when set.
	TLSConfig *tls.Config

	// Limiter applies per-client rate limiting when set.
	Limiter *ratelimit.Limiter

	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string

	// Logger is the logging adapter. Optional.
	Logger logger.Logger

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Handlers == nil {
		return nil, fmt.Errorf("handler context is required")
	}

	if cfg.Port == 0 {
		cfg.Port = 8443
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewSlogAdapter(nil)
	}

	server := &Server{
		handlers:    cfg.Handlers,
		host:        cfg.Host,
		port:        cfg.Port,
		tlsConfig:   cfg.TLSConfig,
		limiter:     cfg.Limiter,
		metricsPath: cfg.MetricsPath,
		logger:      log,
	}

	server.router = server.setupRouter()

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    cfg.TLSConfig,
	}

	return server, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)
	r.Use(CORSMiddleware)
	if s.limiter != nil && s.limiter.IsEnabled() {
		r.Use(ratelimit.Middleware(s.limiter))
	}

	// Liveness probe outside the API prefix
	r.Get("/health", s.handlers.HealthHandler)
	r.Head("/health", s.handlers.HealthHandler)

	if s.metricsPath != "" {
		r.Handle(s.metricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.RevocationGateMiddleware())

		r.Get("/health", s.handlers.HealthHandler)

		// Ceremony endpoints
		r.Post("/enroll/begin", s.handlers.EnrollBeginHandler)
		r.Post("/enroll/complete", s.handlers.EnrollCompleteHandler)
		r.Post("/auth/begin", s.handlers.AuthBeginHandler)
		r.Post("/auth/complete", s.handlers.AuthCompleteHandler)

		// Disclosure and profile endpoints
		r.Post("/disclose", s.handlers.DiscloseHandler)
		r.Post("/profile", s.handlers.ProfileUpdateHandler)

		// Revocation endpoints
		r.Post("/revoke", s.handlers.RevokeHandler)
		r.Post("/restore", s.handlers.RestoreHandler)
		r.Get("/revocation-status/{scope}/{subjectKey}", s.handlers.RevocationStatusHandler)

		// Erasure endpoint
		r.Post("/identity/delete", s.handlers.IdentityDeleteHandler)
	})

	return r
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the REST API server.
func (s *Server) Start() error {
	if s.tlsConfig != nil {
		s.logger.Info("Starting HTTPS server", logger.Int("port", s.port))

		if err := s.server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTPS server: %w", err)
		}
	} else {
		s.logger.Info("Starting HTTP server", logger.Int("port", s.port))

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", logger.Error(err))
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}
