// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package similarity

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Engine scores a pool of candidate content items against a query item
// using six weighted factors and ranks the results.
//
// Scoring is a pure function of its inputs and the weight tables: no
// I/O, no persistence, deterministic for identical inputs and config.
// The only mutable state is the configuration, guarded by a lock so
// administrative updates are safe against in-flight scoring calls.
type Engine struct {
	mu     sync.RWMutex
	config *Config
	logger zerolog.Logger
}

// NewEngine creates a similarity engine owning its configuration.
// A nil cfg uses DefaultConfig.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		config: cfg.Clone(),
		logger: logger.With().Str("component", "similarity").Logger(),
	}, nil
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() *Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config.Clone()
}

// UpdateWeights merges a partial weight patch into the live tables.
// Unspecified keys are left untouched.
func (e *Engine) UpdateWeights(patch WeightPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.config.Clone()
	next.merge(patch)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid weight update: %w", err)
	}

	e.config = next
	e.logger.Info().Msg("weight tables updated")
	return nil
}

// Analyze ranks candidates by similarity to the query item.
//
// The query itself is excluded from results when present in the pool.
// Candidates whose weighted similarity does not exceed the inclusion
// threshold are dropped entirely. Results are sorted by descending
// similarity; ties keep the candidates' input order.
func (e *Engine) Analyze(query ContentItem, candidates []ContentItem) *Analysis {
	cfg := e.Config()

	weights := cfg.Weights.Normalize()
	scores := make([]Score, 0, len(candidates))
	var sum float64

	for i := range candidates {
		if candidates[i].ID == query.ID {
			continue
		}

		factors := computeFactors(cfg, query, candidates[i])
		similarity := clamp01(weights.TagOverlap*factors.TagOverlap +
			weights.CategoryMatch*factors.CategoryMatch +
			weights.EngagementSimilarity*factors.EngagementSimilarity +
			weights.TemporalProximity*factors.TemporalProximity +
			weights.AuthorSimilarity*factors.AuthorSimilarity +
			weights.ContentTypeMatch*factors.ContentTypeMatch)

		if similarity <= cfg.InclusionThreshold {
			continue
		}

		scores = append(scores, Score{
			ContentID:  candidates[i].ID,
			Similarity: similarity,
			Factors:    factors,
		})
		sum += similarity
	}

	// Stable keeps input order among exact ties, which makes the
	// ranking reproducible across runs.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Similarity > scores[j].Similarity
	})

	var avg float64
	if len(scores) > 0 {
		avg = sum / float64(len(scores))
	}

	return &Analysis{
		Query:             query,
		SimilarContent:    scores,
		TotalMatches:      len(scores),
		AverageSimilarity: avg,
		Confidence:        confidence(len(scores), avg),
	}
}

// TopSimilar runs Analyze and resolves the top entries back to full
// content items. A non-positive limit defaults to 5. IDs that fail to
// resolve are silently dropped; that should not occur under correct
// usage, since scores are derived from the candidate pool itself.
func (e *Engine) TopSimilar(item ContentItem, candidates []ContentItem, limit int) []ContentItem {
	if limit <= 0 {
		limit = 5
	}

	analysis := e.Analyze(item, candidates)

	byID := make(map[string]ContentItem, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = candidates[i]
	}

	top := make([]ContentItem, 0, limit)
	for _, score := range analysis.SimilarContent {
		if len(top) == limit {
			break
		}
		resolved, ok := byID[score.ContentID]
		if !ok {
			continue
		}
		top = append(top, resolved)
	}

	return top
}

// CompareFactors computes the six factor scores for a pair of items
// under the current configuration. Exposed for explanation callers and
// for verifying factor behavior directly.
func (e *Engine) CompareFactors(a, b ContentItem) Factors {
	return computeFactors(e.Config(), a, b)
}

// confidence blends "enough evidence" with "how similar": low both
// when matches are few and when matches are individually weak.
func confidence(matches int, avg float64) float64 {
	return math.Min(1.0, float64(matches)/10.0*0.4+avg*0.6)
}

// computeFactors evaluates all six factors, each clamped to [0, 1].
func computeFactors(cfg *Config, a, b ContentItem) Factors {
	return Factors{
		TagOverlap:           clamp01(tagOverlap(cfg, a.Tags, b.Tags)),
		CategoryMatch:        clamp01(categoryMatch(cfg, a.Tags, b.Tags)),
		EngagementSimilarity: clamp01(engagementSimilarity(cfg, a.Engagement, b.Engagement)),
		TemporalProximity:    clamp01(temporalProximity(cfg, a, b)),
		AuthorSimilarity:     clamp01(authorSimilarity(a.Author, b.Author)),
		ContentTypeMatch:     clamp01(typeAffinity(cfg, a.Type, b.Type)),
	}
}

// tagOverlap blends plain Jaccard similarity (60%) with an
// importance-weighted Jaccard using the tag weight table (40%).
func tagOverlap(cfg *Config, a, b []string) float64 {
	setA := lowerSet(a)
	setB := lowerSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	return 0.6*jaccard(setA, setB) + 0.4*weightedJaccard(setA, setB, cfg.TagWeights)
}

// categoryMatch maps both tag sets through the taxonomy and computes
// weighted-intersection over the larger weighted category set.
func categoryMatch(cfg *Config, aTags, bTags []string) float64 {
	catsA := deriveCategories(cfg, aTags)
	catsB := deriveCategories(cfg, bTags)
	if len(catsA) == 0 || len(catsB) == 0 {
		return 0
	}

	var intersection, weightA, weightB float64
	for cat := range catsA {
		w := categoryWeight(cfg, cat)
		weightA += w
		if _, ok := catsB[cat]; ok {
			intersection += w
		}
	}
	for cat := range catsB {
		weightB += categoryWeight(cfg, cat)
	}

	maxWeight := math.Max(weightA, weightB)
	if maxWeight == 0 {
		return 0
	}

	return intersection / maxWeight
}

// deriveCategories resolves an item's tags to its category set.
// Items with no recognized tags fall into "general".
func deriveCategories(cfg *Config, tags []string) map[string]struct{} {
	cats := make(map[string]struct{})
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for cat, members := range cfg.Taxonomy {
			for _, member := range members {
				if member == lower {
					cats[cat] = struct{}{}
					break
				}
			}
		}
	}

	if len(cats) == 0 && len(tags) > 0 {
		cats["general"] = struct{}{}
	}

	return cats
}

func categoryWeight(cfg *Config, cat string) float64 {
	if w, ok := cfg.CategoryWeights[cat]; ok {
		return w
	}
	return 1.0
}

// engagementSimilarity normalizes each field by its cap (clamped at
// 1.0) and computes cosine similarity between the 4-dimensional
// normalized vectors.
func engagementSimilarity(cfg *Config, a, b Engagement) float64 {
	va := normalizeEngagement(cfg.EngagementCaps, a)
	vb := normalizeEngagement(cfg.EngagementCaps, b)
	return cosineSimilarity(va, vb)
}

func normalizeEngagement(caps EngagementCaps, e Engagement) []float64 {
	return []float64{
		math.Min(1.0, float64(e.Views)/float64(caps.Views)),
		math.Min(1.0, float64(e.Likes)/float64(caps.Likes)),
		math.Min(1.0, float64(e.Comments)/float64(caps.Comments)),
		math.Min(1.0, float64(e.Shares)/float64(caps.Shares)),
	}
}

// temporalProximity decays linearly from 1.0 at zero gap to 0.0 at the
// configured window; beyond the window it returns 0 rather than going
// negative.
func temporalProximity(cfg *Config, a, b ContentItem) float64 {
	gap := a.CreatedAt.Sub(b.CreatedAt)
	if gap < 0 {
		gap = -gap
	}
	if gap >= cfg.TemporalWindow {
		return 0
	}
	return 1.0 - float64(gap)/float64(cfg.TemporalWindow)
}

// authorSimilarity is 1.0 for identical author IDs, otherwise a
// character-set Jaccard over lowercase usernames. Comparing username
// characters is a crude proxy for a real shared-interest signal and is
// preserved deliberately for output compatibility.
func authorSimilarity(a, b Author) float64 {
	if a.ID != "" && a.ID == b.ID {
		return 1.0
	}

	return jaccard(charSet(a.Username), charSet(b.Username))
}

// typeAffinity scores identical types at 1.0, looks up non-identical
// pairs in the affinity table, and defaults to DefaultTypeAffinity for
// unmapped pairs.
func typeAffinity(cfg *Config, a, b ContentType) float64 {
	if a == b {
		return 1.0
	}
	if row, ok := cfg.TypeAffinity[a]; ok {
		if v, ok := row[b]; ok {
			return v
		}
	}
	return DefaultTypeAffinity
}

// jaccard computes intersection-over-union of two sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for s := range a {
		if _, ok := b[s]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// weightedJaccard is Jaccard where each element contributes its
// configured weight instead of 1. Unlisted elements weigh 1.0.
func weightedJaccard(a, b map[string]struct{}, weights map[string]float64) float64 {
	weightOf := func(s string) float64 {
		if w, ok := weights[s]; ok {
			return w
		}
		return 1.0
	}

	var intersection, union float64
	for s := range a {
		w := weightOf(s)
		union += w
		if _, ok := b[s]; ok {
			intersection += w
		}
	}
	for s := range b {
		if _, ok := a[s]; !ok {
			union += weightOf(s)
		}
	}

	if union == 0 {
		return 0
	}

	return intersection / union
}

// cosineSimilarity computes cosine similarity between two vectors.
// Zero if either vector has zero magnitude.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[strings.ToLower(s)] = struct{}{}
	}
	return set
}

func charSet(s string) map[string]struct{} {
	set := make(map[string]struct{}, len(s))
	for _, r := range strings.ToLower(s) {
		set[string(r)] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
