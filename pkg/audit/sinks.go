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

package audit

import (
	"encoding/json"
	"sync"

	"github.com/jeremyhahn/go-sovereign/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sovereign/pkg/storage"
)

// MemorySink buffers events in memory. Useful for tests and for the
// status endpoint's recent-events view.
type MemorySink struct {
	mu     sync.RWMutex
	events []*Event
}

// NewMemorySink creates an in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{events: make([]*Event, 0)}
}

// Write appends the event.
func (s *MemorySink) Write(event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of recorded events.
func (s *MemorySink) Events() []*Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]*Event, len(s.events))
	copy(snapshot, s.events)
	return snapshot
}

// Close is a no-op for the memory sink.
func (s *MemorySink) Close() error {
	return nil
}

// StoreSink persists events to a storage backend under the audit
// namespace.
type StoreSink struct {
	backend storage.Backend
}

// NewStoreSink creates a storage-backed sink.
func NewStoreSink(backend storage.Backend) *StoreSink {
	return &StoreSink{backend: backend}
}

// Write marshals and stores the event keyed by its ID.
func (s *StoreSink) Write(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.backend.Put(storage.AuditKey(event.ID), data, nil)
}

// Close is a no-op; the backend is owned by the caller.
func (s *StoreSink) Close() error {
	return nil
}

// LoggerSink emits events to the structured log.
type LoggerSink struct {
	logger logger.Logger
}

// NewLoggerSink creates a log-emitting sink.
func NewLoggerSink(log logger.Logger) *LoggerSink {
	return &LoggerSink{logger: log}
}

// Write logs the event at info level.
func (s *LoggerSink) Write(event *Event) error {
	fields := []logger.Field{
		logger.String("event_id", event.ID),
		logger.String("action", event.Action),
		logger.String("outcome", event.Outcome),
	}
	if event.Subject != "" {
		fields = append(fields, logger.String("subject", event.Subject))
	}
	if event.RelyingParty != "" {
		fields = append(fields, logger.String("relying_party", event.RelyingParty))
	}
	for key, value := range event.Detail {
		fields = append(fields, logger.String(key, value))
	}
	s.logger.Info("audit", fields...)
	return nil
}

// Close is a no-op for the logger sink.
func (s *LoggerSink) Close() error {
	return nil
}

// MultiSink fans events out to several sinks. The first write error
// is returned after all sinks have been attempted.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Write delivers the event to every sink.
func (s *MultiSink) Write(event *Event) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Write(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every sink.
func (s *MultiSink) Close() error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
