// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package telemetry

import (
	"fmt"
	"time"
)

// Config holds the queue cadence and budget parameters. The flush
// interval and batch cap are the only backpressure mechanism; event
// volume is bounded by user interaction rate upstream.
type Config struct {
	// BatchSize is the maximum number of events per delivery attempt.
	// Reaching it also triggers an immediate in-memory flush.
	// Default: 50.
	BatchSize int `json:"batch_size"`

	// FlushInterval is the cadence of periodic in-memory flushes.
	// Default: 30s.
	FlushInterval time.Duration `json:"flush_interval"`

	// RetryInterval is the cadence of the durable redelivery loop.
	// Default: 30s.
	RetryInterval time.Duration `json:"retry_interval"`

	// MaxRetries is the retry budget per durable event. An event whose
	// retry count has reached this value is dropped on its next
	// delivery failure. Default: 3.
	MaxRetries int `json:"max_retries"`
}

// DefaultConfig returns the production queue parameters.
func DefaultConfig() Config {
	return Config{
		BatchSize:     50,
		FlushInterval: 30 * time.Second,
		RetryInterval: 30 * time.Second,
		MaxRetries:    3,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush_interval must be positive, got %v", c.FlushInterval)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("retry_interval must be positive, got %v", c.RetryInterval)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got %d", c.MaxRetries)
	}
	return nil
}
