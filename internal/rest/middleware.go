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

package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/jeremyhahn/go-sovereign/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sovereign/pkg/revocation"
)

// Header names carrying the caller's identifiers for revocation
// screening. Requests without them pass through; operations that
// resolve an identity perform their own checks.
const (
	HeaderGlobalDID   = "X-Global-DID"
	HeaderPairwiseDID = "X-Pairwise-DID"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// newResponseWriter creates a new responseWriter.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// LoggingMiddleware logs HTTP requests using the configured logger.
func (s *Server) LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			s.logger.Debug("Request started",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path))

			next.ServeHTTP(wrapped, r)

			s.logger.Info("Request completed",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", wrapped.statusCode),
				logger.String("duration", time.Since(start).String()))
		})
	}
}

// CORSMiddleware adds CORS headers to responses.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HeaderGlobalDID+", "+HeaderPairwiseDID)
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RecoveryMiddleware recovers from panics and returns a 500 error.
func (s *Server) RecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					s.logger.Error("Panic recovered",
						logger.String("method", r.Method),
						logger.String("path", r.URL.Path),
						logger.Any("error", err))
					writeError(w, ErrInternalError, http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RevocationGateMiddleware screens requests that identify themselves
// through the DID headers. A revoked identifier is denied before any
// handler runs; the denial is audited. Requests without the headers
// pass through untouched.
func (s *Server) RevocationGateMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			globalID := r.Header.Get(HeaderGlobalDID)
			pairwiseID := r.Header.Get(HeaderPairwiseDID)
			if globalID == "" && pairwiseID == "" {
				next.ServeHTTP(w, r)
				return
			}

			if err := s.handlers.registry.Check(r.Context(), globalID, pairwiseID); err != nil {
				if errors.Is(err, revocation.ErrRevokedGlobal) || errors.Is(err, revocation.ErrRevokedPairwise) {
					s.logger.Warn("Revoked identifier denied",
						logger.String("path", r.URL.Path),
						logger.Error(err))
				}
				s.handlers.denyIfRevoked(globalID, pairwiseID, err)
				handleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
