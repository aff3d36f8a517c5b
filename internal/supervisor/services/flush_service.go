// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package services

import (
	"context"
	"time"
)

// Flusher is the tracker-side flush operation.
// Satisfied by *telemetry.Tracker.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// FlushService drives the tracker's periodic flush under supervision.
// Size-triggered flushes still happen inside the tracker; this loop
// guarantees an upper bound on how long an event sits in the buffer.
type FlushService struct {
	flusher  Flusher
	interval time.Duration
	name     string
}

// NewFlushService creates a periodic flush loop.
func NewFlushService(flusher Flusher, interval time.Duration) *FlushService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &FlushService{
		flusher:  flusher,
		interval: interval,
		name:     "tracker-flush",
	}
}

// Serve implements suture.Service. Flush errors are delivery failures
// the tracker already handled (persist and requeue), so they are not
// service failures and do not trigger a restart.
func (f *FlushService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = f.flusher.Flush(ctx)
		}
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (f *FlushService) String() string {
	return f.name
}
