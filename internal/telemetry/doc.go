// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package telemetry implements the durable offline event queue.
//
// Behavioral events cross a potentially unreliable network boundary on
// their way to the ingestion collector. The queue guarantees that a
// transient failure never silently loses an event: it is either still
// in the in-memory buffer (Tracker), persisted in the durable BadgerDB
// queue (Store), or confirmed delivered - until its retry budget is
// exhausted, at which point it is deliberately dropped and the drop is
// logged and counted.
//
// Per-event state machine:
//
//	Created -> Buffered -> Flushing -> Delivered
//	                          |
//	                          v (delivery failed)
//	                   PersistedDurable -> RetryFlushing -> Delivered
//	                          ^                 |
//	                          +--- retryCount++ + (failed, budget left)
//	                                            |
//	                                            v (retryCount >= budget)
//	                                         Dropped
//
// The Tracker owns the in-memory leg, the Dispatcher owns the durable
// leg, and both deliver through a shared Sender.
package telemetry
