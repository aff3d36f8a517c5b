// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package telemetry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// createTestStore opens an in-memory BadgerDB for queue tests.
func createTestStore(t *testing.T) *Store {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open BadgerDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewStore(db)
}

func testEvent(id string, millis int64) BehavioralEvent {
	return BehavioralEvent{
		ID:        id,
		Type:      EventView,
		ContentID: "content-1",
		Metadata:  Metadata{"source": "feed", "position": 3},
		Timestamp: millis,
		SessionID: "session-1",
		UserID:    "user-1",
	}
}

func TestStore_AddAndGetPending(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	// Insert out of timestamp order to prove ordering comes from the
	// index, not insertion order.
	for _, offset := range []int64{3000, 1000, 4000, 2000, 0} {
		ev := testEvent(fmt.Sprintf("ev-%d", offset), base+offset)
		if err := store.Add(ctx, ev); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	pending, err := store.GetPending(ctx, 10)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 5 {
		t.Fatalf("len(pending) = %d, want 5", len(pending))
	}

	for i := 0; i+1 < len(pending); i++ {
		if pending[i].Event.Timestamp > pending[i+1].Event.Timestamp {
			t.Errorf("pending not in ascending timestamp order at %d: %d > %d",
				i, pending[i].Event.Timestamp, pending[i+1].Event.Timestamp)
		}
	}

	if pending[0].RetryCount != 0 {
		t.Errorf("new event RetryCount = %d, want 0", pending[0].RetryCount)
	}
	if pending[0].Event.Metadata["source"] != "feed" {
		t.Errorf("metadata not round-tripped: %+v", pending[0].Event.Metadata)
	}
}

func TestStore_GetPendingRespectsLimit(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	base := time.Now().UnixMilli()
	for i := 0; i < 10; i++ {
		if err := store.Add(ctx, testEvent(fmt.Sprintf("ev-%d", i), base+int64(i))); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	pending, err := store.GetPending(ctx, 3)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 3 {
		t.Errorf("len(pending) = %d, want 3", len(pending))
	}
	// The oldest three, not an arbitrary three.
	for i, p := range pending {
		want := fmt.Sprintf("ev-%d", i)
		if p.Key != want {
			t.Errorf("pending[%d].Key = %q, want %q", i, p.Key, want)
		}
	}
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	ev := testEvent("ev-1", time.Now().UnixMilli())
	if err := store.Add(ctx, ev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := store.Remove(ctx, "ev-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := store.Remove(ctx, "ev-1"); err != nil {
		t.Errorf("second Remove() error = %v, want nil", err)
	}
	if err := store.Remove(ctx, "never-existed"); err != nil {
		t.Errorf("Remove(non-existent) error = %v, want nil", err)
	}

	pending, err := store.GetPending(ctx, 10)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d after removal, want 0", len(pending))
	}
}

func TestStore_IncrementRetry(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, testEvent("ev-1", time.Now().UnixMilli())); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.IncrementRetry(ctx, "ev-1"); err != nil {
			t.Fatalf("IncrementRetry() error = %v", err)
		}
	}

	pending, err := store.GetPending(ctx, 1)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if pending[0].RetryCount != 3 {
		t.Errorf("RetryCount = %d, want 3", pending[0].RetryCount)
	}

	// Incrementing a missing ID is a no-op, not an error.
	if err := store.IncrementRetry(ctx, "never-existed"); err != nil {
		t.Errorf("IncrementRetry(non-existent) error = %v, want nil", err)
	}
}

func TestStore_FailureSemantics(t *testing.T) {
	ctx := context.Background()
	var closed *Store // nil store models an unavailable backend

	// Reads fail open.
	pending, err := closed.GetPending(ctx, 10)
	if err != nil {
		t.Errorf("GetPending() on closed store error = %v, want nil", err)
	}
	if len(pending) != 0 {
		t.Errorf("GetPending() on closed store returned %d events", len(pending))
	}

	// Writes fail closed.
	if err := closed.Add(ctx, testEvent("ev-1", 1)); err == nil {
		t.Error("Add() on closed store error = nil, want ErrStoreClosed")
	}
}

func TestStore_AddFillsMissingFields(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	ev := BehavioralEvent{Type: EventClick, SessionID: "s", UserID: "u"}
	if err := store.Add(ctx, ev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	pending, err := store.GetPending(ctx, 1)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if pending[0].Event.ID == "" {
		t.Error("Add() did not assign an event ID")
	}
	if pending[0].Event.Timestamp == 0 {
		t.Error("Add() did not assign a timestamp")
	}
}

func TestStore_PendingCount(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := store.Add(ctx, testEvent(fmt.Sprintf("ev-%d", i), int64(i+1))); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	count, err := store.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount() error = %v", err)
	}
	if count != 4 {
		t.Errorf("PendingCount() = %d, want 4", count)
	}
}
