// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/affinitylabs/affinity/internal/similarity"
	"github.com/affinitylabs/affinity/internal/telemetry"
)

// okSender accepts every batch.
type okSender struct{}

func (okSender) Send(_ context.Context, _ []telemetry.BehavioralEvent) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *telemetry.Tracker) {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	engine, err := similarity.NewEngine(similarity.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	store := telemetry.NewStore(db)
	tracker := telemetry.NewTracker(store, okSender{}, telemetry.DefaultConfig(), zerolog.Nop())

	srv := httptest.NewServer(Routes(NewHandler(engine, tracker, store)))
	t.Cleanup(srv.Close)
	return srv, tracker
}

func decodeResponse(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	defer resp.Body.Close()

	var out APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	out := decodeResponse(t, resp)
	if out.Status != "success" {
		t.Errorf("Status = %q, want success", out.Status)
	}
}

func TestTrackEvents(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "valid batch",
			body:       `{"events":[{"type":"view","content_id":"post-1","session_id":"s1","user_id":"u1"}]}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "empty batch",
			body:       `{"events":[]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown event type",
			body:       `{"events":[{"type":"teleport","session_id":"s1","user_id":"u1"}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing session id",
			body:       `{"events":[{"type":"view","user_id":"u1"}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{"events":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)

			resp, err := http.Post(srv.URL+"/api/v1/events", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST /api/v1/events: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestTrackEventsBuffersEvents(t *testing.T) {
	srv, tracker := newTestServer(t)

	body := `{"events":[
		{"type":"view","content_id":"post-1","session_id":"s1","user_id":"u1"},
		{"type":"like","content_id":"post-1","session_id":"s1","user_id":"u1"}
	]}`
	resp, err := http.Post(srv.URL+"/api/v1/events", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/v1/events: %v", err)
	}
	resp.Body.Close()

	if got := tracker.BufferedCount(); got != 2 {
		t.Errorf("BufferedCount() = %d, want 2", got)
	}
}

func TestAnalyzeSimilarity(t *testing.T) {
	srv, _ := newTestServer(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := analyzeRequest{
		Query: similarity.ContentItem{
			ID:         "q",
			Type:       similarity.TypePost,
			Author:     similarity.Author{ID: "a1", Username: "casey"},
			Engagement: similarity.Engagement{Views: 500, Likes: 40, Comments: 10, Shares: 5},
			Tags:       []string{"react", "typescript"},
			CreatedAt:  base,
		},
		Candidates: []similarity.ContentItem{
			{
				ID:         "close",
				Type:       similarity.TypePost,
				Author:     similarity.Author{ID: "a1", Username: "casey"},
				Engagement: similarity.Engagement{Views: 480, Likes: 45, Comments: 9, Shares: 4},
				Tags:       []string{"react", "typescript"},
				CreatedAt:  base.AddDate(0, 0, 1),
			},
			{
				ID:        "far",
				Type:      similarity.TypeEvent,
				Author:    similarity.Author{ID: "a2", Username: "drew"},
				Tags:      []string{"gardening"},
				CreatedAt: base.AddDate(0, 0, 60),
			},
		},
	}
	payload, _ := json.Marshal(req)

	resp, err := http.Post(srv.URL+"/api/v1/similarity/analyze", "application/json", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatalf("POST analyze: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	out := decodeResponse(t, resp)
	data, _ := json.Marshal(out.Data)
	var body analyzeResponse
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal analyze payload: %v", err)
	}

	if body.Analysis.TotalMatches != 1 {
		t.Fatalf("TotalMatches = %d, want 1", body.Analysis.TotalMatches)
	}
	if body.Analysis.SimilarContent[0].ContentID != "close" {
		t.Errorf("top match = %q, want close", body.Analysis.SimilarContent[0].ContentID)
	}
	if _, ok := body.Explanations["close"]; !ok {
		t.Error("explanation missing for matched candidate")
	}
}

func TestAnalyzeSimilarityRequiresQueryID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/similarity/analyze", "application/json",
		strings.NewReader(`{"query":{},"candidates":[]}`))
	if err != nil {
		t.Fatalf("POST analyze: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTopSimilar(t *testing.T) {
	srv, _ := newTestServer(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := topSimilarRequest{
		Item: similarity.ContentItem{
			ID: "q", Type: similarity.TypePost,
			Author: similarity.Author{ID: "a1", Username: "casey"},
			Tags:   []string{"react"}, CreatedAt: base,
		},
		Candidates: []similarity.ContentItem{
			{ID: "c1", Type: similarity.TypePost,
				Author: similarity.Author{ID: "a1", Username: "casey"},
				Tags:   []string{"react"}, CreatedAt: base},
		},
		Limit: 3,
	}
	payload, _ := json.Marshal(req)

	resp, err := http.Post(srv.URL+"/api/v1/similarity/top", "application/json", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatalf("POST top: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSimilarityConfigRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/similarity/config")
	if err != nil {
		t.Fatalf("GET config: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Patch one factor weight, leave the rest untouched.
	patch := `{"factors":{"tag_overlap":0.4}}`
	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/v1/similarity/weights", strings.NewReader(patch))
	req.Header.Set("Content-Type", "application/json")

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH weights: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH status = %d, want 200", resp.StatusCode)
	}

	out := decodeResponse(t, resp)
	data, _ := json.Marshal(out.Data)
	var cfg similarity.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal config payload: %v", err)
	}
	if cfg.Weights.TagOverlap != 0.4 {
		t.Errorf("Weights.TagOverlap = %v, want patched 0.4", cfg.Weights.TagOverlap)
	}
	if cfg.Weights.CategoryMatch != 0.20 {
		t.Errorf("Weights.CategoryMatch = %v, want untouched 0.20", cfg.Weights.CategoryMatch)
	}
}

func TestUpdateWeightsRejectsInvalid(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/v1/similarity/weights",
		strings.NewReader(`{"threshold":2.5}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH weights: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
