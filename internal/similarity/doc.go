// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package similarity implements the content similarity scoring engine.
//
// Given one content item and a candidate pool, the engine computes a
// bounded [0,1] similarity score per candidate from six weighted
// factors (tag overlap, category overlap, engagement cosine, temporal
// proximity, author similarity, content-type affinity), ranks the
// candidates, and can explain the dominant factors in plain text.
//
// The engine performs no I/O and holds no call-scoped state; the only
// mutable state is the weight-table configuration, which operators may
// tune at runtime through Engine.UpdateWeights.
//
// This package has no dependencies on other internal packages so it
// can be consumed as a standalone library.
package similarity
