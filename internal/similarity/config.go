// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package similarity

import (
	"fmt"
	"time"
)

// Config contains all tunable tables for the similarity engine.
//
// Operators are expected to adjust these at runtime, so the engine
// holds a Config behind a lock and exposes a merge-style update
// (Engine.UpdateWeights) rather than treating the tables as constants.
type Config struct {
	// Weights defines the relative contribution of each factor.
	// Weights are normalized at scoring time, so they don't need to
	// sum to 1.0.
	Weights FactorWeights `json:"weights"`

	// TagWeights assigns importance to individual tags for the
	// weighted-Jaccard blend. Unlisted tags weigh 1.0.
	TagWeights map[string]float64 `json:"tag_weights"`

	// Taxonomy maps category names to their member tags. Items whose
	// tags match no category derive the category "general".
	Taxonomy map[string][]string `json:"taxonomy"`

	// CategoryWeights assigns importance to derived categories.
	// Unlisted categories weigh 1.0.
	CategoryWeights map[string]float64 `json:"category_weights"`

	// TypeAffinity scores cross-type similarity for non-identical
	// content types. Unmapped pairs score DefaultTypeAffinity.
	TypeAffinity map[ContentType]map[ContentType]float64 `json:"type_affinity"`

	// EngagementCaps are the per-field normalization ceilings for the
	// engagement cosine. Values at or above a cap normalize to 1.0.
	EngagementCaps EngagementCaps `json:"engagement_caps"`

	// InclusionThreshold is the minimum weighted similarity for a
	// candidate to appear in results. Candidates at or below it are
	// dropped, not merely ranked low.
	// Default: 0.1.
	InclusionThreshold float64 `json:"inclusion_threshold"`

	// TemporalWindow is the gap at which temporal proximity decays to
	// zero. Default: 30 days.
	TemporalWindow time.Duration `json:"temporal_window"`
}

// FactorWeights defines the relative contribution of each factor.
type FactorWeights struct {
	// TagOverlap is the weight for the Jaccard tag blend.
	TagOverlap float64 `json:"tag_overlap"`

	// CategoryMatch is the weight for derived-category overlap.
	CategoryMatch float64 `json:"category_match"`

	// EngagementSimilarity is the weight for the engagement cosine.
	EngagementSimilarity float64 `json:"engagement_similarity"`

	// TemporalProximity is the weight for creation-time proximity.
	TemporalProximity float64 `json:"temporal_proximity"`

	// AuthorSimilarity is the weight for author identity/name overlap.
	AuthorSimilarity float64 `json:"author_similarity"`

	// ContentTypeMatch is the weight for content-type affinity.
	ContentTypeMatch float64 `json:"content_type_match"`
}

// EngagementCaps holds the normalization ceilings for engagement fields.
type EngagementCaps struct {
	Views    int `json:"views"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
}

// DefaultTypeAffinity is the score for content-type pairs absent from
// the affinity table.
const DefaultTypeAffinity = 0.2

// Normalize returns a copy with weights normalized to sum to 1.0.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w FactorWeights) Normalize() FactorWeights {
	sum := w.TagOverlap + w.CategoryMatch + w.EngagementSimilarity +
		w.TemporalProximity + w.AuthorSimilarity + w.ContentTypeMatch

	if sum == 0 {
		const equalWeight = 1.0 / 6.0
		return FactorWeights{
			TagOverlap: equalWeight, CategoryMatch: equalWeight,
			EngagementSimilarity: equalWeight, TemporalProximity: equalWeight,
			AuthorSimilarity: equalWeight, ContentTypeMatch: equalWeight,
		}
	}

	return FactorWeights{
		TagOverlap:           w.TagOverlap / sum,
		CategoryMatch:        w.CategoryMatch / sum,
		EngagementSimilarity: w.EngagementSimilarity / sum,
		TemporalProximity:    w.TemporalProximity / sum,
		AuthorSimilarity:     w.AuthorSimilarity / sum,
		ContentTypeMatch:     w.ContentTypeMatch / sum,
	}
}

// ToMap returns the weights as a string-keyed map.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w FactorWeights) ToMap() map[string]float64 {
	return map[string]float64{
		"tag_overlap":           w.TagOverlap,
		"category_match":        w.CategoryMatch,
		"engagement_similarity": w.EngagementSimilarity,
		"temporal_proximity":    w.TemporalProximity,
		"author_similarity":     w.AuthorSimilarity,
		"content_type_match":    w.ContentTypeMatch,
	}
}

// applyPatch overwrites only the factors named in the patch.
func (w FactorWeights) applyPatch(patch map[string]float64) FactorWeights {
	for name, v := range patch {
		switch name {
		case "tag_overlap":
			w.TagOverlap = v
		case "category_match":
			w.CategoryMatch = v
		case "engagement_similarity":
			w.EngagementSimilarity = v
		case "temporal_proximity":
			w.TemporalProximity = v
		case "author_similarity":
			w.AuthorSimilarity = v
		case "content_type_match":
			w.ContentTypeMatch = v
		}
	}
	return w
}

// WeightPatch is a partial update for the engine's weight tables.
// Nil maps and zero structs leave the corresponding table untouched;
// map entries replace or extend existing keys without resetting
// unspecified ones.
type WeightPatch struct {
	Factors        map[string]float64                      `json:"factors,omitempty"`
	Tags           map[string]float64                      `json:"tags,omitempty"`
	Categories     map[string]float64                      `json:"categories,omitempty"`
	TypeAffinity   map[ContentType]map[ContentType]float64 `json:"type_affinity,omitempty"`
	EngagementCaps *EngagementCaps                         `json:"engagement_caps,omitempty"`
	Threshold      *float64                                `json:"threshold,omitempty"`
	TemporalWindow *time.Duration                          `json:"temporal_window,omitempty"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: FactorWeights{
			TagOverlap:           0.25,
			CategoryMatch:        0.20,
			EngagementSimilarity: 0.20,
			TemporalProximity:    0.15,
			AuthorSimilarity:     0.10,
			ContentTypeMatch:     0.10,
		},
		TagWeights: map[string]float64{
			"javascript": 1.5,
			"typescript": 1.5,
			"react":      1.4,
			"golang":     1.4,
			"python":     1.4,
			"design":     1.2,
			"career":     1.2,
			"beginner":   0.8,
		},
		Taxonomy: map[string][]string{
			"programming": {"javascript", "typescript", "golang", "python", "rust", "java"},
			"webdev":      {"react", "vue", "svelte", "css", "html", "frontend", "backend"},
			"data":        {"sql", "analytics", "machine-learning", "statistics"},
			"design":      {"design", "ux", "ui", "figma"},
			"business":    {"career", "marketing", "startup", "freelance"},
		},
		CategoryWeights: map[string]float64{
			"programming": 1.5,
			"webdev":      1.3,
			"data":        1.3,
			"design":      1.1,
			"business":    1.0,
			"general":     0.7,
		},
		TypeAffinity: map[ContentType]map[ContentType]float64{
			TypeCourse: {TypeVideo: 0.7, TypePost: 0.5},
			TypeVideo:  {TypeCourse: 0.7, TypePost: 0.4},
			TypePost:   {TypeCourse: 0.5, TypeVideo: 0.4, TypeEvent: 0.3},
			TypeEvent:  {TypePost: 0.3},
		},
		EngagementCaps: EngagementCaps{
			Views:    1000,
			Likes:    100,
			Comments: 50,
			Shares:   20,
		},
		InclusionThreshold: 0.1,
		TemporalWindow:     30 * 24 * time.Hour,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.InclusionThreshold < 0 || c.InclusionThreshold >= 1 {
		return fmt.Errorf("inclusion_threshold must be in [0, 1), got %f", c.InclusionThreshold)
	}
	if c.TemporalWindow <= 0 {
		return fmt.Errorf("temporal_window must be positive, got %v", c.TemporalWindow)
	}
	if c.EngagementCaps.Views < 1 || c.EngagementCaps.Likes < 1 ||
		c.EngagementCaps.Comments < 1 || c.EngagementCaps.Shares < 1 {
		return fmt.Errorf("engagement caps must be positive, got %+v", c.EngagementCaps)
	}
	for name, v := range c.Weights.ToMap() {
		if v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %f", name, v)
		}
	}
	for tag, v := range c.TagWeights {
		if v < 0 {
			return fmt.Errorf("tag weight %q must be non-negative, got %f", tag, v)
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := &Config{
		Weights:            c.Weights,
		TagWeights:         make(map[string]float64, len(c.TagWeights)),
		Taxonomy:           make(map[string][]string, len(c.Taxonomy)),
		CategoryWeights:    make(map[string]float64, len(c.CategoryWeights)),
		TypeAffinity:       make(map[ContentType]map[ContentType]float64, len(c.TypeAffinity)),
		EngagementCaps:     c.EngagementCaps,
		InclusionThreshold: c.InclusionThreshold,
		TemporalWindow:     c.TemporalWindow,
	}
	for k, v := range c.TagWeights {
		out.TagWeights[k] = v
	}
	for k, v := range c.Taxonomy {
		tags := make([]string, len(v))
		copy(tags, v)
		out.Taxonomy[k] = tags
	}
	for k, v := range c.CategoryWeights {
		out.CategoryWeights[k] = v
	}
	for k, row := range c.TypeAffinity {
		cp := make(map[ContentType]float64, len(row))
		for t, v := range row {
			cp[t] = v
		}
		out.TypeAffinity[k] = cp
	}
	return out
}

// merge applies a WeightPatch, extending tables without resetting
// unspecified keys. Must be called on a private copy.
func (c *Config) merge(patch WeightPatch) {
	if patch.Factors != nil {
		c.Weights = c.Weights.applyPatch(patch.Factors)
	}
	for tag, v := range patch.Tags {
		c.TagWeights[tag] = v
	}
	for cat, v := range patch.Categories {
		c.CategoryWeights[cat] = v
	}
	for from, row := range patch.TypeAffinity {
		if c.TypeAffinity[from] == nil {
			c.TypeAffinity[from] = make(map[ContentType]float64, len(row))
		}
		for to, v := range row {
			c.TypeAffinity[from][to] = v
		}
	}
	if patch.EngagementCaps != nil {
		c.EngagementCaps = *patch.EngagementCaps
	}
	if patch.Threshold != nil {
		c.InclusionThreshold = *patch.Threshold
	}
	if patch.TemporalWindow != nil {
		c.TemporalWindow = *patch.TemporalWindow
	}
}
