// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"affinity.yaml",
	"affinity.yml",
	"/etc/affinity/affinity.yaml",
	"/etc/affinity/affinity.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "AFFINITY_CONFIG"

// envPrefix namespaces the agent's environment variables:
// AFFINITY_QUEUE_BATCH_SIZE -> queue.batch_size.
const envPrefix = "AFFINITY_"

// Load builds the configuration from layered sources, later layers
// overriding earlier ones:
//  1. struct defaults
//  2. optional YAML config file
//  3. AFFINITY_-prefixed environment variables
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps AFFINITY_SECTION_FIELD_NAME to section.field_name.
// The first underscore separates the section; the rest of the name keeps
// its underscores.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	section, field, found := strings.Cut(key, "_")
	if !found || field == "" {
		return ""
	}

	switch section {
	case "logging", "storage", "collector", "queue", "server", "similarity":
		return section + "." + field
	default:
		// Unknown sections are skipped so unrelated AFFINITY_ vars
		// (like AFFINITY_CONFIG itself) do not pollute the tree.
		return ""
	}
}
