// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package config defines the agent configuration and its layered
// loading: struct defaults, then an optional YAML file, then
// AFFINITY_-prefixed environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root agent configuration.
type Config struct {
	Logging    LoggingConfig    `koanf:"logging"`
	Storage    StorageConfig    `koanf:"storage"`
	Collector  CollectorConfig  `koanf:"collector"`
	Queue      QueueConfig      `koanf:"queue"`
	Server     ServerConfig     `koanf:"server"`
	Similarity SimilarityConfig `koanf:"similarity"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StorageConfig controls the durable event store.
type StorageConfig struct {
	// Path is the BadgerDB directory. Empty selects in-memory mode,
	// which loses queued events on restart.
	Path string `koanf:"path"`

	// SyncWrites forces an fsync per write batch. Slower, safer.
	SyncWrites bool `koanf:"sync_writes"`
}

// CollectorConfig describes the remote ingestion endpoint.
type CollectorConfig struct {
	URL       string        `koanf:"url"`
	AuthToken string        `koanf:"auth_token"`
	Timeout   time.Duration `koanf:"timeout"`
}

// QueueConfig tunes event batching and redelivery.
type QueueConfig struct {
	BatchSize     int           `koanf:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	MaxRetries    int           `koanf:"max_retries"`
}

// ServerConfig controls the agent's HTTP listener.
type ServerConfig struct {
	Addr    string        `koanf:"addr"`
	Timeout time.Duration `koanf:"timeout"`
}

// SimilarityConfig overrides the similarity engine's scoring defaults
// at startup. Maps merge onto the built-in tables key by key; weights
// for unlisted keys keep their defaults. Further changes at runtime go
// through the weights API.
type SimilarityConfig struct {
	FactorWeights      map[string]float64   `koanf:"factor_weights"`
	TagWeights         map[string]float64   `koanf:"tag_weights"`
	CategoryWeights    map[string]float64   `koanf:"category_weights"`
	EngagementCaps     EngagementCapsConfig `koanf:"engagement_caps"`
	InclusionThreshold float64              `koanf:"inclusion_threshold"`
	TemporalWindow     time.Duration        `koanf:"temporal_window"`
}

// EngagementCapsConfig bounds each engagement dimension before the
// cosine comparison so a single viral item cannot dominate.
type EngagementCapsConfig struct {
	Views    int `koanf:"views"`
	Likes    int `koanf:"likes"`
	Comments int `koanf:"comments"`
	Shares   int `koanf:"shares"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Storage: StorageConfig{
			Path:       "/data/affinity",
			SyncWrites: false,
		},
		Collector: CollectorConfig{
			URL:       "",
			AuthToken: "",
			Timeout:   30 * time.Second,
		},
		Queue: QueueConfig{
			BatchSize:     50,
			FlushInterval: 30 * time.Second,
			RetryInterval: 30 * time.Second,
			MaxRetries:    3,
		},
		Server: ServerConfig{
			Addr:    ":9473",
			Timeout: 30 * time.Second,
		},
		Similarity: SimilarityConfig{
			EngagementCaps: EngagementCapsConfig{
				Views:    1000,
				Likes:    100,
				Comments: 50,
				Shares:   20,
			},
			InclusionThreshold: 0.1,
			TemporalWindow:     30 * 24 * time.Hour,
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Queue.BatchSize <= 0 {
		return fmt.Errorf("queue.batch_size must be positive, got %d", c.Queue.BatchSize)
	}
	if c.Queue.FlushInterval <= 0 {
		return fmt.Errorf("queue.flush_interval must be positive, got %s", c.Queue.FlushInterval)
	}
	if c.Queue.RetryInterval <= 0 {
		return fmt.Errorf("queue.retry_interval must be positive, got %s", c.Queue.RetryInterval)
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("queue.max_retries must be non-negative, got %d", c.Queue.MaxRetries)
	}
	if c.Collector.Timeout <= 0 {
		return fmt.Errorf("collector.timeout must be positive, got %s", c.Collector.Timeout)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Similarity.InclusionThreshold < 0 || c.Similarity.InclusionThreshold >= 1 {
		return fmt.Errorf("similarity.inclusion_threshold must be in [0, 1), got %g", c.Similarity.InclusionThreshold)
	}
	if c.Similarity.TemporalWindow <= 0 {
		return fmt.Errorf("similarity.temporal_window must be positive, got %s", c.Similarity.TemporalWindow)
	}
	return nil
}
