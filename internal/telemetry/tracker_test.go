// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// fakeSender records batches and fails on demand.
type fakeSender struct {
	mu       sync.Mutex
	batches  [][]BehavioralEvent
	failures int // fail this many sends before succeeding
	failAll  bool
}

func (f *fakeSender) Send(ctx context.Context, events []BehavioralEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	batch := make([]BehavioralEvent, len(events))
	copy(batch, events)
	f.batches = append(f.batches, batch)

	if f.failAll || f.failures > 0 {
		if f.failures > 0 {
			f.failures--
		}
		return errors.New("collector unavailable")
	}
	return nil
}

func (f *fakeSender) sentBatches() [][]BehavioralEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]BehavioralEvent, len(f.batches))
	copy(out, f.batches)
	return out
}

func newTestTracker(t *testing.T, sender Sender) (*Tracker, *Store) {
	t.Helper()
	store := createTestStore(t)
	return NewTracker(store, sender, DefaultConfig(), zerolog.Nop()), store
}

func TestTracker_TrackFillsDefaults(t *testing.T) {
	sender := &fakeSender{}
	tracker, _ := newTestTracker(t, sender)

	tracker.Track(BehavioralEvent{Type: EventView, SessionID: "s", UserID: "u"})

	if got := tracker.BufferedCount(); got != 1 {
		t.Fatalf("BufferedCount() = %d, want 1", got)
	}
}

func TestTracker_FlushSuccessClearsBuffer(t *testing.T) {
	sender := &fakeSender{}
	tracker, store := newTestTracker(t, sender)

	var notified int
	tracker.Notify = func(count int) { notified = count }

	for i := 0; i < 5; i++ {
		tracker.Track(BehavioralEvent{Type: EventView, SessionID: "s", UserID: "u"})
	}

	n, err := tracker.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n != 5 {
		t.Errorf("Flush() delivered %d, want 5", n)
	}
	if got := tracker.BufferedCount(); got != 0 {
		t.Errorf("BufferedCount() after flush = %d, want 0", got)
	}
	if notified != 5 {
		t.Errorf("Notify received %d, want 5", notified)
	}

	// Nothing should have been persisted on success.
	pending, err := store.GetPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d after successful flush, want 0", len(pending))
	}
}

func TestTracker_FlushFailurePersistsAndRequeuesAtFront(t *testing.T) {
	sender := &fakeSender{failures: 1}
	tracker, store := newTestTracker(t, sender)

	first := BehavioralEvent{ID: "older", Type: EventView, Timestamp: 100, SessionID: "s", UserID: "u"}
	tracker.Track(first)

	if _, err := tracker.Flush(context.Background()); err == nil {
		t.Fatal("Flush() error = nil, want delivery failure")
	}

	// The failed event must be durably persisted.
	pending, err := store.GetPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Key != "older" {
		t.Fatalf("pending = %+v, want the failed event persisted", pending)
	}

	// And it stays in the buffer, ahead of newer events.
	tracker.Track(BehavioralEvent{ID: "newer", Type: EventClick, Timestamp: 200, SessionID: "s", UserID: "u"})

	n, err := tracker.Flush(context.Background())
	if err != nil {
		t.Fatalf("second Flush() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("second Flush() delivered %d, want 2", n)
	}

	batches := sender.sentBatches()
	last := batches[len(batches)-1]
	if last[0].ID != "older" || last[1].ID != "newer" {
		t.Errorf("retried batch order = [%s, %s], want failed event first", last[0].ID, last[1].ID)
	}
}

func TestTracker_FlushEmptyBufferIsNoop(t *testing.T) {
	sender := &fakeSender{}
	tracker, _ := newTestTracker(t, sender)

	n, err := tracker.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Flush() on empty buffer delivered %d, want 0", n)
	}
	if len(sender.sentBatches()) != 0 {
		t.Errorf("empty flush still sent %d batches", len(sender.sentBatches()))
	}
}

func TestTracker_FlushRespectsBatchSize(t *testing.T) {
	sender := &fakeSender{}
	store := createTestStore(t)
	cfg := DefaultConfig()
	cfg.BatchSize = 3
	tracker := NewTracker(store, sender, cfg, zerolog.Nop())

	// Stay below the size trigger, then flush manually.
	tracker.mu.Lock()
	for i := 0; i < 5; i++ {
		tracker.buffer = append(tracker.buffer, BehavioralEvent{
			ID: string(rune('a' + i)), Type: EventView, Timestamp: int64(i + 1),
			SessionID: "s", UserID: "u",
		})
	}
	tracker.mu.Unlock()

	n, err := tracker.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Flush() delivered %d, want batch cap 3", n)
	}
	if got := tracker.BufferedCount(); got != 2 {
		t.Errorf("BufferedCount() = %d, want 2 remaining", got)
	}
}

func TestTracker_CloseFlushesRemaining(t *testing.T) {
	sender := &fakeSender{}
	tracker, _ := newTestTracker(t, sender)

	tracker.Track(BehavioralEvent{Type: EventScroll, SessionID: "s", UserID: "u"})
	tracker.Close(context.Background())

	if got := tracker.BufferedCount(); got != 0 {
		t.Errorf("BufferedCount() after Close = %d, want 0", got)
	}
	if len(sender.sentBatches()) != 1 {
		t.Errorf("Close() sent %d batches, want 1", len(sender.sentBatches()))
	}
}
