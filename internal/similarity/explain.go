// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package similarity

import "strings"

// Explanation thresholds. Each factor is checked in a fixed priority
// order so the same factor inputs always produce identical text.
const (
	explainHighTag       = 0.7
	explainSimilarTag    = 0.4
	explainSameCategory  = 0.7
	explainRelatedCat    = 0.4
	explainEngagement    = 0.7
	explainTemporal      = 0.7
	explainSameAuthor    = 0.9
	explainSimilarAuthor = 0.5
	explainSameType      = 0.9
)

// Explain produces a deterministic natural-language summary of the
// dominant factors behind a score. Returns "General similarity" when
// no factor crosses its threshold.
//
//nolint:gocritic // hugeParam: score passed by value for immutability
func Explain(score Score) string {
	var phrases []string

	f := score.Factors

	switch {
	case f.TagOverlap > explainHighTag:
		phrases = append(phrases, "High tag overlap")
	case f.TagOverlap > explainSimilarTag:
		phrases = append(phrases, "Similar tags")
	}

	switch {
	case f.CategoryMatch > explainSameCategory:
		phrases = append(phrases, "Same categories")
	case f.CategoryMatch > explainRelatedCat:
		phrases = append(phrases, "Related categories")
	}

	if f.EngagementSimilarity > explainEngagement {
		phrases = append(phrases, "Similar engagement levels")
	}

	if f.TemporalProximity > explainTemporal {
		phrases = append(phrases, "Published around the same time")
	}

	switch {
	case f.AuthorSimilarity > explainSameAuthor:
		phrases = append(phrases, "Same author")
	case f.AuthorSimilarity > explainSimilarAuthor:
		phrases = append(phrases, "Similar authors")
	}

	if f.ContentTypeMatch > explainSameType {
		phrases = append(phrases, "Same content type")
	}

	if len(phrases) == 0 {
		return "General similarity"
	}

	return strings.Join(phrases, ", ")
}
