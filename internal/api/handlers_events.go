// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/affinitylabs/affinity/internal/logging"
	"github.com/affinitylabs/affinity/internal/telemetry"
)

// trackEventsRequest is the POST /api/v1/events payload.
type trackEventsRequest struct {
	Events []telemetry.BehavioralEvent `json:"events" validate:"required,min=1,dive"`
}

// trackEventsResponse acknowledges accepted events.
type trackEventsResponse struct {
	Accepted int `json:"accepted"`
}

// TrackEvents accepts a batch of behavioral events into the tracker.
// Acceptance means buffered, not delivered; the queue machinery owns
// delivery from here.
func (h *Handler) TrackEvents(w http.ResponseWriter, r *http.Request) {
	var req trackEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body", err)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, err.Error(), nil)
		return
	}

	for _, ev := range req.Events {
		if !ev.Type.Valid() {
			respondError(w, http.StatusBadRequest, codeValidationError,
				"unknown event type: "+string(ev.Type), nil)
			return
		}
	}

	for _, ev := range req.Events {
		h.tracker.Track(ev)
	}

	logging.Ctx(r.Context()).Debug().
		Int("count", len(req.Events)).
		Msg("events accepted")

	respondData(w, http.StatusAccepted, trackEventsResponse{Accepted: len(req.Events)})
}
