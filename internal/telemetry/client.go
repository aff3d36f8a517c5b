// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Sender delivers a batch of events to the ingestion collector.
// Implementations report failure for anything short of a confirmed
// successful ingest; the queue machinery owns all retry handling.
type Sender interface {
	Send(ctx context.Context, events []BehavioralEvent) error
}

// batchRequest is the collector's ingest contract.
type batchRequest struct {
	Events []BehavioralEvent `json:"events"`
}

// batchResponse is the collector's acknowledgment.
type batchResponse struct {
	Success bool `json:"success"`
}

// Client posts event batches to the remote ingestion endpoint.
type Client struct {
	url       string
	authToken string
	client    *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithAuthToken sets a bearer token for the collector.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) {
		c.authToken = token
	}
}

// NewClient creates an ingestion client for the given collector URL.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts the batch and treats transport errors, non-2xx responses,
// and an unacknowledged ingest (success=false) all as delivery
// failures.
func (c *Client) Send(ctx context.Context, events []BehavioralEvent) error {
	if len(events) == 0 {
		return nil
	}

	payload, err := json.Marshal(batchRequest{Events: events})
	if err != nil {
		return fmt.Errorf("marshal event batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Affinity-Agent/1.0")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send event batch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		body = []byte("(failed to read response)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned %d: %s", resp.StatusCode, string(body))
	}

	var ack batchResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		return fmt.Errorf("decode collector response: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("collector rejected batch of %d events", len(events))
	}

	return nil
}
