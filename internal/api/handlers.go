// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package api exposes the agent's HTTP surface: event ingestion,
// similarity analysis, and health reporting.
package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/affinitylabs/affinity/internal/similarity"
	"github.com/affinitylabs/affinity/internal/telemetry"
)

// Handler holds the dependencies shared by all endpoint handlers.
type Handler struct {
	engine    *similarity.Engine
	tracker   *telemetry.Tracker
	store     *telemetry.Store
	validate  *validator.Validate
	startTime time.Time
}

// NewHandler creates an API handler over the similarity engine and the
// telemetry pipeline. The store may be nil when durable queueing is
// disabled; health reporting then omits the pending count.
func NewHandler(engine *similarity.Engine, tracker *telemetry.Tracker, store *telemetry.Store) *Handler {
	return &Handler{
		engine:    engine,
		tracker:   tracker,
		store:     store,
		validate:  validator.New(),
		startTime: time.Now(),
	}
}

// healthResponse is the payload for GET /healthz.
type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	BufferedCount int    `json:"buffered_events"`
	PendingCount  int    `json:"pending_events"`
}

// Health reports liveness plus queue depth for quick inspection.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	pending, err := h.store.PendingCount(r.Context())
	if err != nil {
		// Queue depth is informational; health stays up.
		pending = 0
	}

	respondData(w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		BufferedCount: h.tracker.BufferedCount(),
		PendingCount:  pending,
	})
}
