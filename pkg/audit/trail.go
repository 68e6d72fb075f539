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
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jeremyhahn/go-sovereign/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sovereign/pkg/metrics"
)

// defaultBufferSize is the trail buffer depth when none is configured.
const defaultBufferSize = 256

// Trail is the append-only audit log. Events flow through a buffered
// channel to a background writer; Record never blocks the caller.
type Trail struct {
	events chan *Event
	sink   Sink
	logger logger.Logger

	dropped atomic.Uint64
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	once    sync.Once
}

// TrailParams contains the dependencies for creating a Trail.
type TrailParams struct {
	// Sink receives drained events. Required.
	Sink Sink

	// Logger for writer failures and drop warnings. Optional.
	Logger logger.Logger

	// BufferSize is the event buffer depth. Defaults to 256.
	BufferSize int
}

// NewTrail creates an audit trail and starts its writer.
func NewTrail(params *TrailParams) (*Trail, error) {
	if params == nil || params.Sink == nil {
		return nil, errors.New("audit: sink is required")
	}
	size := params.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	log := params.Logger
	if log == nil {
		log = logger.NewSlogAdapter(nil)
	}

	t := &Trail{
		events: make(chan *Event, size),
		sink:   params.Sink,
		logger: log,
		done:   make(chan struct{}),
	}
	go t.writer()
	return t, nil
}

// Record enqueues an event. Never blocks: when the buffer is full the
// event is dropped, the drop counter advances and a warning is logged.
// The primary operation's outcome is never affected.
func (t *Trail) Record(event *Event) {
	if event == nil {
		return
	}

	// The read lock orders Record against Close so no send can hit a
	// closed channel.
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.events <- event:
		metrics.RecordAuditEvent()
	default:
		t.dropped.Add(1)
		metrics.RecordAuditDrop()
		t.logger.Warn("audit buffer full, event dropped",
			logger.String("action", event.Action),
			logger.Int64("dropped_total", int64(t.dropped.Load())))
	}
}

// Dropped returns the number of events dropped since creation.
func (t *Trail) Dropped() uint64 {
	return t.dropped.Load()
}

// Close drains buffered events and closes the sink. Events recorded
// after Close are discarded.
func (t *Trail) Close() error {
	var err error
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		close(t.events)
		t.mu.Unlock()
		<-t.done
		err = t.sink.Close()
	})
	return err
}

// writer drains the buffer into the sink.
func (t *Trail) writer() {
	defer close(t.done)
	for event := range t.events {
		if err := t.sink.Write(event); err != nil {
			t.logger.Error("audit sink write failed",
				logger.String("event_id", event.ID),
				logger.String("action", event.Action),
				logger.Error(err))
		}
	}
}
