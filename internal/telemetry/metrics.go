// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the event queue
var (
	// eventsTrackedTotal counts events accepted by Track.
	eventsTrackedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_events_tracked_total",
		Help: "Total number of behavioral events accepted for delivery",
	})

	// eventsFlushedTotal counts events delivered from the in-memory buffer.
	eventsFlushedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_events_flushed_total",
		Help: "Total number of events delivered from the in-memory buffer",
	})

	// flushFailuresTotal counts failed in-memory flush attempts.
	flushFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_flush_failures_total",
		Help: "Total number of failed in-memory flush attempts",
	})

	// eventsPersistedTotal counts events written to the durable queue.
	eventsPersistedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_events_persisted_total",
		Help: "Total number of events persisted to the durable queue",
	})

	// eventsRedeliveredTotal counts events delivered from the durable queue.
	eventsRedeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_events_redelivered_total",
		Help: "Total number of events redelivered from the durable queue",
	})

	// eventsDroppedTotal counts events permanently dropped.
	eventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_events_dropped_total",
		Help: "Total number of events permanently dropped after exhausting the retry budget or failing to persist",
	})

	// storeWriteFailuresTotal counts failed durable writes.
	storeWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_store_write_failures_total",
		Help: "Total number of failed durable store writes",
	})

	// pendingEvents is the current durable queue depth.
	pendingEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "telemetry_pending_events",
		Help: "Current number of events in the durable queue",
	})

	// flushLatency measures delivery attempt latency.
	flushLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "telemetry_flush_latency_seconds",
		Help:    "Event batch delivery latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordEventTracked increments the tracked-events counter.
func RecordEventTracked() { eventsTrackedTotal.Inc() }

// RecordEventsFlushed adds to the flushed-events counter.
func RecordEventsFlushed(n int) { eventsFlushedTotal.Add(float64(n)) }

// RecordFlushFailure increments the flush-failure counter.
func RecordFlushFailure() { flushFailuresTotal.Inc() }

// RecordEventPersisted increments the persisted-events counter.
func RecordEventPersisted() { eventsPersistedTotal.Inc() }

// RecordEventsRedelivered adds to the redelivered-events counter.
func RecordEventsRedelivered(n int) { eventsRedeliveredTotal.Add(float64(n)) }

// RecordEventDropped increments the dropped-events counter.
func RecordEventDropped() { eventsDroppedTotal.Inc() }

// RecordStoreWriteFailure increments the store write failure counter.
func RecordStoreWriteFailure() { storeWriteFailuresTotal.Inc() }

// SetPendingEvents updates the durable queue depth gauge.
func SetPendingEvents(n int) { pendingEvents.Set(float64(n)) }

// ObserveFlushLatency records a delivery attempt duration.
func ObserveFlushLatency(d time.Duration) { flushLatency.Observe(d.Seconds()) }
