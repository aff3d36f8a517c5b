// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher is the background redelivery loop for durably queued
// events. On each tick it pulls the oldest pending batch, attempts one
// delivery, removes delivered events, and increments the retry count
// of failed ones. An event whose retry count has already reached the
// budget is removed instead and the drop logged - the only permanent
// loss path, a bounded-loss policy rather than a bug.
type Dispatcher struct {
	store  *Store
	sender Sender
	config Config
	logger zerolog.Logger
}

// NewDispatcher creates a redelivery loop over the durable store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewDispatcher(store *Store, sender Sender, cfg Config, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sender: sender,
		config: cfg,
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Serve runs the redelivery loop until the context is canceled.
// It implements suture.Service so the loop restarts under supervision
// if it ever fails.
func (d *Dispatcher) Serve(ctx context.Context) error {
	d.logger.Info().
		Dur("interval", d.config.RetryInterval).
		Int("max_retries", d.config.MaxRetries).
		Msg("redelivery loop started")

	ticker := time.NewTicker(d.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("redelivery loop stopped")
			return ctx.Err()
		case <-ticker.C:
			d.RedeliverPending(ctx)
		}
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (d *Dispatcher) String() string {
	return "queue-dispatcher"
}

// RedeliverPending performs one redelivery pass: a single batch send
// of the oldest pending events. Exposed for shutdown hooks and tests;
// Serve calls it on every tick.
func (d *Dispatcher) RedeliverPending(ctx context.Context) {
	pending, err := d.store.GetPending(ctx, d.config.BatchSize)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to read pending events")
		return
	}
	if len(pending) == 0 {
		return
	}

	batch := make([]BehavioralEvent, len(pending))
	for i := range pending {
		batch[i] = pending[i].Event
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = d.sender.Send(sendCtx, batch)
	cancel()

	if err == nil {
		d.handleDelivered(ctx, pending)
		return
	}

	d.handleFailed(ctx, pending, err)
}

// handleDelivered removes every delivered event from the store.
func (d *Dispatcher) handleDelivered(ctx context.Context, pending []QueuedEvent) {
	removed := 0
	for i := range pending {
		if err := d.store.Remove(ctx, pending[i].Key); err != nil {
			d.logger.Error().
				Err(err).
				Str("event_id", pending[i].Key).
				Msg("failed to remove delivered event")
			continue
		}
		removed++
	}

	RecordEventsRedelivered(removed)
	d.logger.Info().Int("count", removed).Msg("redelivered queued events")
}

// handleFailed increments retry counts and drops events that have
// exhausted the retry budget.
func (d *Dispatcher) handleFailed(ctx context.Context, pending []QueuedEvent, sendErr error) {
	dropped := 0
	for i := range pending {
		ev := &pending[i]

		if ev.RetryCount >= d.config.MaxRetries {
			if err := d.store.Remove(ctx, ev.Key); err != nil {
				d.logger.Error().
					Err(err).
					Str("event_id", ev.Key).
					Msg("failed to remove exhausted event")
				continue
			}
			RecordEventDropped()
			dropped++
			d.logger.Warn().
				Str("event_id", ev.Key).
				Str("event_type", string(ev.Event.Type)).
				Int("retries", ev.RetryCount).
				Msg("retry budget exhausted, dropping event")
			continue
		}

		if err := d.store.IncrementRetry(ctx, ev.Key); err != nil {
			d.logger.Error().
				Err(err).
				Str("event_id", ev.Key).
				Msg("failed to increment retry count")
		}
	}

	d.logger.Warn().
		Err(sendErr).
		Int("batch", len(pending)).
		Int("dropped", dropped).
		Msg("redelivery attempt failed")
}
