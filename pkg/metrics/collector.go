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

package metrics

import (
	"context"
	"time"
)

// GaugeCollector periodically refreshes the slow-moving gauges: server
// uptime, the enrolled identity count and the live deny-list entry
// counts. Counts are supplied by callbacks so this package stays free
// of storage dependencies.
type GaugeCollector struct {
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	started  time.Time

	// Identities returns the enrolled identity count. Optional.
	Identities func() (int, error)

	// Revocations returns the live deny-list entry count per scope. Optional.
	Revocations func(scope string) (int, error)
}

// NewGaugeCollector creates a collector that refreshes gauges at the
// given interval (recommended: 10-60 seconds).
func NewGaugeCollector(ctx context.Context, interval time.Duration) *GaugeCollector {
	collectorCtx, cancel := context.WithCancel(ctx)
	return &GaugeCollector{
		ctx:      collectorCtx,
		cancel:   cancel,
		interval: interval,
		started:  time.Now(),
	}
}

// Start begins collecting at the configured interval. This method
// blocks and should typically be run in a goroutine. It continues
// until Stop is called or the parent context is cancelled.
func (gc *GaugeCollector) Start() {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()

	// Collect initial metrics immediately
	gc.collect()

	for {
		select {
		case <-gc.ctx.Done():
			return
		case <-ticker.C:
			gc.collect()
		}
	}
}

// Stop halts the collector gracefully.
func (gc *GaugeCollector) Stop() {
	gc.cancel()
}

// collect refreshes all gauges.
func (gc *GaugeCollector) collect() {
	if !IsEnabled() {
		return
	}

	ServerUptime.Set(time.Since(gc.started).Seconds())

	if gc.Identities != nil {
		if count, err := gc.Identities(); err == nil {
			SetIdentitiesTotal(float64(count))
		}
	}

	if gc.Revocations != nil {
		for _, scope := range []string{"pairwise", "global"} {
			if count, err := gc.Revocations(scope); err == nil {
				SetRevocationsActive(scope, float64(count))
			}
		}
	}
}
