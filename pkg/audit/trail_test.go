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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-sovereign/pkg/storage"
)

// blockingSink holds writes until released, to back-pressure the trail.
type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Write(event *Event) error {
	<-s.release
	return nil
}

func (s *blockingSink) Close() error { return nil }

func TestTrail_RecordAndDrain(t *testing.T) {
	sink := NewMemorySink()
	trail, err := NewTrail(&TrailParams{Sink: sink})
	require.NoError(t, err)

	trail.Record(NewEvent(ActionEnrollComplete, OutcomeSuccess).
		WithSubject("did:sov:a").
		WithDetail("device", "iPhone"))
	trail.Record(NewEvent(ActionRevoke, OutcomeSuccess).
		WithSubject("did:sov:b").
		WithDetail("scope", "global"))

	require.NoError(t, trail.Close())

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, ActionEnrollComplete, events[0].Action)
	assert.Equal(t, "did:sov:a", events[0].Subject)
	assert.Equal(t, "iPhone", events[0].Detail["device"])
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, uint64(0), trail.Dropped())
}

func TestTrail_NeverBlocks(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	trail, err := NewTrail(&TrailParams{Sink: sink, BufferSize: 2})
	require.NoError(t, err)

	// Fill the buffer plus the event held by the writer, then keep
	// recording. Every call must return promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			trail.Record(NewEvent(ActionAuthComplete, OutcomeSuccess))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full buffer")
	}

	assert.Greater(t, trail.Dropped(), uint64(0))

	close(sink.release)
	require.NoError(t, trail.Close())
}

func TestTrail_RecordAfterClose(t *testing.T) {
	trail, err := NewTrail(&TrailParams{Sink: NewMemorySink()})
	require.NoError(t, err)
	require.NoError(t, trail.Close())

	// Must not panic.
	trail.Record(NewEvent(ActionDisclose, OutcomeSuccess))

	// Close is idempotent.
	require.NoError(t, trail.Close())
}

func TestStoreSink(t *testing.T) {
	backend := storage.NewMemory()
	defer backend.Close()

	sink := NewStoreSink(backend)
	event := NewEvent(ActionDenied, OutcomeDenied).WithSubject("did:sov:pw:x")
	require.NoError(t, sink.Write(event))

	data, err := backend.Get(storage.AuditKey(event.ID))
	require.NoError(t, err)

	var stored Event
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, event.ID, stored.ID)
	assert.Equal(t, ActionDenied, stored.Action)
	assert.Equal(t, OutcomeDenied, stored.Outcome)
}

func TestMultiSink(t *testing.T) {
	first := NewMemorySink()
	second := NewMemorySink()
	sink := NewMultiSink(first, second)

	require.NoError(t, sink.Write(NewEvent(ActionRestore, OutcomeSuccess)))
	assert.Len(t, first.Events(), 1)
	assert.Len(t, second.Events(), 1)
	require.NoError(t, sink.Close())
}

func TestNewTrail_RequiresSink(t *testing.T) {
	_, err := NewTrail(nil)
	assert.Error(t, err)

	_, err = NewTrail(&TrailParams{})
	assert.Error(t, err)
}
