// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingFlusher struct {
	calls atomic.Int64
}

func (c *countingFlusher) Flush(_ context.Context) (int, error) {
	c.calls.Add(1)
	return 0, errors.New("collector unavailable")
}

func TestFlushService_TicksUntilCanceled(t *testing.T) {
	flusher := &countingFlusher{}
	svc := NewFlushService(flusher, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Let a few ticks pass; flush errors must not stop the loop.
	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}

	if flusher.calls.Load() < 2 {
		t.Errorf("Flush called %d times, want at least 2", flusher.calls.Load())
	}
}

func TestFlushService_DefaultInterval(t *testing.T) {
	svc := NewFlushService(&countingFlusher{}, 0)
	if svc.interval != 30*time.Second {
		t.Errorf("interval = %s, want default 30s", svc.interval)
	}
}
