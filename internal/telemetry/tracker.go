// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Tracker buffers behavioral events in memory and flushes them in
// batches to the ingestion collector.
//
// Track is fire-and-forget: delivery failures never surface to the
// instrumentation call site. A failed batch is persisted to the
// durable store and simultaneously put back at the FRONT of the
// buffer, so the next attempt retries it before newer events
// (LIFO-on-failure, FIFO-on-success). An event is therefore always
// either buffered, durably queued, or confirmed delivered until its
// retry budget is exhausted.
type Tracker struct {
	store  *Store
	sender Sender
	config Config
	logger zerolog.Logger

	// Notify, when set, receives the count of each successful flush.
	Notify func(count int)

	mu       sync.Mutex
	buffer   []BehavioralEvent
	flushing bool
}

// NewTracker creates a tracker over a durable store and a sender.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTracker(store *Store, sender Sender, cfg Config, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		sender: sender,
		config: cfg,
		logger: logger.With().Str("component", "tracker").Logger(),
	}
}

// Track enqueues an event for delivery. Missing IDs and timestamps are
// filled in. Reaching the batch size triggers an asynchronous flush so
// the caller never blocks on the network.
func (t *Tracker) Track(ev BehavioralEvent) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	t.mu.Lock()
	t.buffer = append(t.buffer, ev)
	full := len(t.buffer) >= t.config.BatchSize
	t.mu.Unlock()

	RecordEventTracked()

	if full {
		go func() {
			if _, err := t.Flush(context.Background()); err != nil {
				t.logger.Debug().Err(err).Msg("size-triggered flush failed")
			}
		}()
	}
}

// BufferedCount returns the number of events currently buffered.
func (t *Tracker) BufferedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buffer)
}

// Flush attempts one delivery of up to BatchSize buffered events.
// Returns the number of events delivered. A delivery failure is not an
// error to the caller's lifecycle: the batch is persisted and requeued
// at the front, and the failure is returned for logging only.
func (t *Tracker) Flush(ctx context.Context) (int, error) {
	t.mu.Lock()
	if t.flushing || len(t.buffer) == 0 {
		t.mu.Unlock()
		return 0, nil
	}
	t.flushing = true

	n := len(t.buffer)
	if n > t.config.BatchSize {
		n = t.config.BatchSize
	}
	batch := make([]BehavioralEvent, n)
	copy(batch, t.buffer[:n])
	t.buffer = t.buffer[n:]
	t.mu.Unlock()

	start := time.Now()
	err := t.sender.Send(ctx, batch)
	ObserveFlushLatency(time.Since(start))

	if err == nil {
		t.mu.Lock()
		t.flushing = false
		t.mu.Unlock()

		RecordEventsFlushed(n)
		t.logger.Debug().Int("count", n).Msg("flushed event batch")
		if t.Notify != nil {
			t.Notify(n)
		}
		return n, nil
	}

	RecordFlushFailure()
	t.logger.Warn().Err(err).Int("count", n).Msg("flush failed, persisting batch")

	// Persist every event of the failed batch. If a persist itself
	// fails there is no further fallback tier: log and drop.
	for i := range batch {
		if perr := t.store.Add(ctx, batch[i]); perr != nil {
			RecordEventDropped()
			t.logger.Error().
				Err(perr).
				Str("event_id", batch[i].ID).
				Msg("failed to persist event, dropping")
		}
	}

	// Failed events go back at the front so the next attempt retries
	// them before newer arrivals.
	t.mu.Lock()
	t.buffer = append(batch, t.buffer...)
	t.flushing = false
	t.mu.Unlock()

	return 0, err
}

// Close performs one final best-effort flush. Events that remain
// buffered afterward were already persisted by the failed attempt or
// were never durably recorded, which is the accepted shutdown loss.
func (t *Tracker) Close(ctx context.Context) {
	if n, err := t.Flush(ctx); err != nil {
		t.logger.Warn().Err(err).Msg("final flush failed")
	} else if n > 0 {
		t.logger.Info().Int("count", n).Msg("final flush complete")
	}
}
