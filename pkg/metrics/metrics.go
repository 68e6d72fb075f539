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

// Package metrics provides Prometheus instrumentation for identity
// lifecycle operations: ceremonies, derivations, disclosure, the deny
// list and the audit trail.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all sovereign metrics
	Namespace = "sovereign"

	// Label names
	LabelOperation  = "operation"
	LabelStatus     = "status"
	LabelErrorType  = "error_type"
	LabelScope      = "scope"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
	StatusDenied  = "denied"

	// Operation names
	OpEnrollBegin   = "enroll_begin"
	OpEnrollFinish  = "enroll_finish"
	OpAuthBegin     = "auth_begin"
	OpAuthFinish    = "auth_finish"
	OpDerive        = "derive"
	OpDisclose      = "disclose"
	OpRevoke        = "revoke"
	OpRestore       = "restore"
	OpStatus        = "status"
	OpDelete        = "delete"
	OpToken         = "token"
	OpHealthCheck   = "health_check"
	OpRevocationGate = "revocation_gate"
)

var (
	// OperationsTotal tracks the total number of identity operations by type and status.
	// Use RecordOperation to increment this counter with the appropriate labels.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of identity operations by type and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration tracks the duration of identity operations in seconds.
	// Buckets are optimized for typical ceremony and derivation latencies.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of identity operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelOperation},
	)

	// ErrorsTotal tracks the total number of errors by operation and error type.
	// Error types should be specific (e.g., "replay_detected", "challenge_expired").
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	// RevocationDenialsTotal tracks operations denied by the deny list, by scope.
	RevocationDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "revocation_denials_total",
			Help:      "Total number of operations denied by the revocation registry, by scope",
		},
		[]string{LabelScope},
	)

	// RevocationsActive tracks the number of live deny-list entries by scope.
	RevocationsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "revocations_active",
			Help:      "Number of live revocation entries by scope",
		},
		[]string{LabelScope},
	)

	// AuditEventsTotal tracks audit events accepted by the trail.
	AuditEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "audit",
			Name:      "events_total",
			Help:      "Total number of audit events accepted by the trail",
		},
	)

	// AuditEventsDropped tracks audit events dropped because the trail buffer was full.
	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "audit",
			Name:      "events_dropped_total",
			Help:      "Total number of audit events dropped due to a full buffer",
		},
	)

	// IdentitiesTotal tracks the number of enrolled identities.
	IdentitiesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "identities_total",
			Help:      "Total number of enrolled identities",
		},
	)

	// HTTPRequestsTotal tracks the total number of HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// ServerUptime tracks the server uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records an identity operation with its duration and status.
// This is the primary function for tracking operational metrics.
//
// Parameters:
//   - operation: The operation name (use Op* constants)
//   - status: The operation status (use Status* constants)
//   - duration: The operation duration in seconds
func RecordOperation(operation, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordError records an error event with context about where it occurred.
//
// Parameters:
//   - operation: The operation during which the error occurred (use Op* constants)
//   - errorType: A specific error type identifier (e.g., "replay_detected")
func RecordError(operation, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordRevocationDenial records an operation denied by the deny list.
func RecordRevocationDenial(scope string) {
	if !enabled.Load() {
		return
	}
	RevocationDenialsTotal.WithLabelValues(scope).Inc()
}

// RecordAuditEvent records an audit event accepted by the trail.
func RecordAuditEvent() {
	if !enabled.Load() {
		return
	}
	AuditEventsTotal.Inc()
}

// RecordAuditDrop records an audit event dropped due to a full buffer.
func RecordAuditDrop() {
	if !enabled.Load() {
		return
	}
	AuditEventsDropped.Inc()
}

// RecordHTTPRequest records an HTTP request with its duration and status.
//
// Parameters:
//   - method: The HTTP method (GET, POST, etc.)
//   - statusCode: The HTTP status code as a string
//   - duration: The request duration in seconds
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// SetIdentitiesTotal sets the enrolled identity count.
func SetIdentitiesTotal(count float64) {
	if !enabled.Load() {
		return
	}
	IdentitiesTotal.Set(count)
}

// SetRevocationsActive sets the live deny-list entry count for a scope.
func SetRevocationsActive(scope string, count float64) {
	if !enabled.Load() {
		return
	}
	RevocationsActive.WithLabelValues(scope).Set(count)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
