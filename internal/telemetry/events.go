// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package telemetry

import "time"

// EventType identifies the kind of user action an event records.
type EventType string

// Supported behavioral event types.
const (
	EventView      EventType = "view"
	EventLike      EventType = "like"
	EventComment   EventType = "comment"
	EventShare     EventType = "share"
	EventSearch    EventType = "search"
	EventTimeSpent EventType = "time_spent"
	EventScroll    EventType = "scroll"
	EventClick     EventType = "click"
)

// Valid reports whether the event type is one of the supported kinds.
func (t EventType) Valid() bool {
	switch t {
	case EventView, EventLike, EventComment, EventShare,
		EventSearch, EventTimeSpent, EventScroll, EventClick:
		return true
	}
	return false
}

// Metadata carries ad-hoc instrumentation fields. Values are whatever
// JSON can express; no schema migration is needed to add a field.
type Metadata map[string]any

// BehavioralEvent is a single user-action record produced by
// instrumentation. Timestamp is epoch milliseconds to match the
// collector's wire contract.
type BehavioralEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type" validate:"required"`
	ContentID   string    `json:"content_id,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	Timestamp   int64     `json:"timestamp"`
	SessionID   string    `json:"session_id" validate:"required"`
	UserID      string    `json:"user_id" validate:"required"`
}

// QueuedEvent wraps a BehavioralEvent awaiting durable redelivery.
// RetryCount starts at zero and increments on every failed delivery
// attempt; events exceeding the retry budget are deliberately dropped.
type QueuedEvent struct {
	Key        string          `json:"key"`
	Event      BehavioralEvent `json:"event"`
	RetryCount int             `json:"retry_count"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}
