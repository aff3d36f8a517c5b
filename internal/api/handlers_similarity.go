// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/affinitylabs/affinity/internal/logging"
	"github.com/affinitylabs/affinity/internal/similarity"
)

// analyzeRequest is the POST /api/v1/similarity/analyze payload.
type analyzeRequest struct {
	Query      similarity.ContentItem   `json:"query" validate:"required"`
	Candidates []similarity.ContentItem `json:"candidates" validate:"required"`
}

// analyzeResponse augments each score with its human-readable
// explanation so clients never re-derive the threshold wording.
type analyzeResponse struct {
	Analysis     *similarity.Analysis `json:"analysis"`
	Explanations map[string]string    `json:"explanations"`
}

// AnalyzeSimilarity scores a candidate pool against a query item.
func (h *Handler) AnalyzeSimilarity(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body", err)
		return
	}
	if req.Query.ID == "" {
		respondError(w, http.StatusBadRequest, codeValidationError, "query.id is required", nil)
		return
	}

	analysis := h.engine.Analyze(req.Query, req.Candidates)

	explanations := make(map[string]string, len(analysis.SimilarContent))
	for _, score := range analysis.SimilarContent {
		explanations[score.ContentID] = similarity.Explain(score)
	}

	logging.Ctx(r.Context()).Debug().
		Str("query_id", req.Query.ID).
		Int("candidates", len(req.Candidates)).
		Int("matches", analysis.TotalMatches).
		Msg("similarity analysis served")

	respondData(w, http.StatusOK, analyzeResponse{
		Analysis:     analysis,
		Explanations: explanations,
	})
}

// topSimilarRequest is the POST /api/v1/similarity/top payload.
type topSimilarRequest struct {
	Item       similarity.ContentItem   `json:"item"`
	Candidates []similarity.ContentItem `json:"candidates"`
	Limit      int                      `json:"limit"`
}

// TopSimilar returns the highest-scoring candidate items.
func (h *Handler) TopSimilar(w http.ResponseWriter, r *http.Request) {
	var req topSimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body", err)
		return
	}
	if req.Item.ID == "" {
		respondError(w, http.StatusBadRequest, codeValidationError, "item.id is required", nil)
		return
	}

	items := h.engine.TopSimilar(req.Item, req.Candidates, req.Limit)
	respondData(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// SimilarityConfig returns the engine's effective configuration.
func (h *Handler) SimilarityConfig(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.engine.Config())
}

// UpdateWeights applies a partial weight update to the engine. Omitted
// fields keep their current values; an invalid result leaves the
// previous configuration untouched.
func (h *Handler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	var patch similarity.WeightPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body", err)
		return
	}

	if err := h.engine.UpdateWeights(patch); err != nil {
		respondError(w, http.StatusUnprocessableEntity, codeValidationError, err.Error(), nil)
		return
	}

	logging.Ctx(r.Context()).Info().Msg("similarity weights updated")
	respondData(w, http.StatusOK, h.engine.Config())
}
