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

// Package server wires configuration into a running identity engine:
// storage, secrets, ceremony service, revocation registry, audit trail
// and the REST surface.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jeremyhahn/go-sovereign/internal/config"
	"github.com/jeremyhahn/go-sovereign/internal/rest"
	"github.com/jeremyhahn/go-sovereign/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sovereign/pkg/audit"
	"github.com/jeremyhahn/go-sovereign/pkg/disclosure"
	"github.com/jeremyhahn/go-sovereign/pkg/enrollment"
	"github.com/jeremyhahn/go-sovereign/pkg/identity"
	"github.com/jeremyhahn/go-sovereign/pkg/metrics"
	"github.com/jeremyhahn/go-sovereign/pkg/pairwise"
	"github.com/jeremyhahn/go-sovereign/pkg/profile"
	"github.com/jeremyhahn/go-sovereign/pkg/ratelimit"
	"github.com/jeremyhahn/go-sovereign/pkg/revocation"
	"github.com/jeremyhahn/go-sovereign/pkg/rp"
	"github.com/jeremyhahn/go-sovereign/pkg/secrets"
	"github.com/jeremyhahn/go-sovereign/pkg/storage"
)

// Server owns the engine's components and their shutdown order.
type Server struct {
	config    *config.Config
	backend   storage.Backend
	secrets   secrets.Provider
	trail     *audit.Trail
	limiter   *ratelimit.Limiter
	collector *metrics.GaugeCollector
	rest      *rest.Server
	logger    logger.Logger
}

// New builds the engine from configuration. The configuration must
// already be validated.
func New(cfg *config.Config, version string) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	log := newLogger(&cfg.Logging)

	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	backend := storage.NewMemory()

	provider, err := newSecretsProvider(&cfg.Secrets)
	if err != nil {
		backend.Close()
		return nil, err
	}

	srv := &Server{
		config:  cfg,
		backend: backend,
		secrets: provider,
		logger:  log,
	}

	if err := srv.wire(version); err != nil {
		srv.Shutdown()
		return nil, err
	}
	return srv, nil
}

// wire constructs the component graph over the backend and secrets.
func (s *Server) wire(version string) error {
	cfg := s.config

	store, err := identity.NewStore(&identity.StoreParams{
		Backend: s.backend,
		Logger:  s.logger,
	})
	if err != nil {
		return err
	}

	deriver, err := pairwise.NewDeriver(&pairwise.DeriverParams{Secrets: s.secrets})
	if err != nil {
		return err
	}

	tokens, err := pairwise.NewTokenIssuer(&pairwise.TokenIssuerParams{
		Secrets: s.secrets,
		Issuer:  cfg.Token.Issuer,
		TTL:     cfg.Token.TTL,
	})
	if err != nil {
		return err
	}

	s.trail, err = audit.NewTrail(&audit.TrailParams{
		Sink:       newAuditSink(cfg, s.backend, s.logger),
		Logger:     s.logger,
		BufferSize: cfg.Audit.BufferSize,
	})
	if err != nil {
		return err
	}

	registry, err := revocation.NewRegistry(&revocation.RegistryParams{
		Backend: s.backend,
		Config:  &cfg.Revocation,
		Logger:  s.logger,
	})
	if err != nil {
		return err
	}

	ceremonies, err := enrollment.NewService(&enrollment.ServiceParams{
		Config:  &cfg.WebAuthn,
		Store:   store,
		Backend: s.backend,
		Secrets: s.secrets,
		Deriver: deriver,
		Tokens:  tokens,
		Gate:    registry,
		Audit:   s.trail,
		Logger:  s.logger,
	})
	if err != nil {
		return err
	}

	parties, err := rp.NewRegistryFrom(cfg.RelyingParties)
	if err != nil {
		return err
	}

	profiles, err := profile.NewStoreRepository(s.backend)
	if err != nil {
		return err
	}

	handlers, err := rest.NewHandlerContext(&rest.HandlerParams{
		Ceremonies: ceremonies,
		Deriver:    deriver,
		Parties:    parties,
		Profiles:   profiles,
		Policy:     disclosure.Policy{RequireConsent: cfg.Disclosure.RequireConsent},
		Registry:   registry,
		Identities: store,
		Trail:      s.trail,
		Logger:     s.logger,
		Version:    version,
	})
	if err != nil {
		return err
	}

	tlsConfig, err := newTLSConfig(&cfg.Server)
	if err != nil {
		return err
	}

	s.limiter = ratelimit.New(&cfg.RateLimit)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path

		s.collector = metrics.NewGaugeCollector(context.Background(), 30*time.Second)
		s.collector.Identities = func() (int, error) {
			ids, err := store.List()
			if err != nil {
				return 0, err
			}
			return len(ids), nil
		}
		s.collector.Revocations = func(scope string) (int, error) {
			keys, err := storage.ListRevocations(s.backend, scope)
			if err != nil {
				return 0, err
			}
			return len(keys), nil
		}
		go s.collector.Start()
	}

	s.rest, err = rest.NewServer(&rest.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Handlers:     handlers,
		TLSConfig:    tlsConfig,
		Limiter:      s.limiter,
		MetricsPath:  metricsPath,
		Logger:       s.logger,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})
	return err
}

// REST returns the HTTP server.
func (s *Server) REST() *rest.Server {
	return s.rest
}

// Logger returns the configured logging adapter.
func (s *Server) Logger() logger.Logger {
	return s.logger
}

// Shutdown releases the engine's resources. Safe to call on a
// partially constructed server.
func (s *Server) Shutdown() error {
	var firstErr error

	if s.collector != nil {
		s.collector.Stop()
		s.collector = nil
	}
	if s.trail != nil {
		if err := s.trail.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.trail = nil
	}
	if s.limiter != nil {
		s.limiter.Stop()
		s.limiter = nil
	}
	if s.secrets != nil {
		if err := s.secrets.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.secrets = nil
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.backend = nil
	}
	return firstErr
}

// newLogger builds the slog adapter from logging configuration.
func newLogger(cfg *config.LoggingConfig) logger.Logger {
	opts := &slog.HandlerOptions{
		Level:     slogLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return logger.NewSlogAdapter(&logger.SlogConfig{
		Logger: slog.New(handler),
	})
}

// slogLevel maps a configured level name to a slog level.
func slogLevel(name string) slog.Level {
	switch logger.ParseLevel(name) {
	case logger.LevelDebug:
		return slog.LevelDebug
	case logger.LevelWarn:
		return slog.LevelWarn
	case logger.LevelError, logger.LevelFatal:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newSecretsProvider builds the configured secrets provider.
func newSecretsProvider(cfg *config.SecretsConfig) (secrets.Provider, error) {
	switch cfg.Provider {
	case "vault":
		return secrets.NewVaultProvider(&secrets.VaultConfig{
			Address: cfg.VaultAddress,
			Token:   cfg.VaultToken,
			Mount:   cfg.VaultMount,
			Path:    cfg.VaultPath,
		})
	default:
		material, err := cfg.Material()
		if err != nil {
			return nil, err
		}
		return secrets.NewStaticProvider(material)
	}
}

// newAuditSink composes the audit sinks: structured log always, the
// storage backend additionally when persistence is enabled.
func newAuditSink(cfg *config.Config, backend storage.Backend, log logger.Logger) audit.Sink {
	loggerSink := audit.NewLoggerSink(log)
	if !cfg.Audit.Persist {
		return loggerSink
	}
	return audit.NewMultiSink(loggerSink, audit.NewStoreSink(backend))
}

// newTLSConfig loads the server certificate when TLS is enabled.
func newTLSConfig(cfg *config.ServerConfig) (*tls.Config, error) {
	if !cfg.TLSEnabled {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
