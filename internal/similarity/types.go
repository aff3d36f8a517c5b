// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package similarity

import "time"

// ContentType identifies the kind of platform content an item represents.
type ContentType string

// Supported content types.
const (
	TypePost   ContentType = "post"
	TypeCourse ContentType = "course"
	TypeEvent  ContentType = "event"
	TypeVideo  ContentType = "video"
)

// Author identifies the creator of a content item.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Engagement is a point-in-time snapshot of interaction counts.
// Counts are non-negative and monotonically non-decreasing over an
// item's life, but the engine treats them as a frozen snapshot.
type Engagement struct {
	Views    int `json:"views"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
}

// ContentItem is an immutable snapshot of a piece of platform content
// at scoring time. The engine never mutates it.
type ContentItem struct {
	ID          string      `json:"id"`
	Type        ContentType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Author      Author      `json:"author"`
	Engagement  Engagement  `json:"engagement"`
	Tags        []string    `json:"tags"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Factors is the per-factor breakdown of a similarity score.
// Every field is in [0, 1].
type Factors struct {
	TagOverlap           float64 `json:"tag_overlap"`
	CategoryMatch        float64 `json:"category_match"`
	EngagementSimilarity float64 `json:"engagement_similarity"`
	TemporalProximity    float64 `json:"temporal_proximity"`
	AuthorSimilarity     float64 `json:"author_similarity"`
	ContentTypeMatch     float64 `json:"content_type_match"`
}

// Score pairs a candidate content ID with its overall similarity in
// [0, 1] and the factor breakdown that produced it.
type Score struct {
	ContentID  string  `json:"content_id"`
	Similarity float64 `json:"similarity"`
	Factors    Factors `json:"factors"`
}

// Analysis is the aggregate result of scoring a candidate pool against
// a query item. SimilarContent is ordered by descending similarity with
// input-order-stable ties. Transient, call-scoped.
type Analysis struct {
	Query             ContentItem `json:"query"`
	SimilarContent    []Score     `json:"similar_content"`
	TotalMatches      int         `json:"total_matches"`
	AverageSimilarity float64     `json:"average_similarity"`
	Confidence        float64     `json:"confidence"`
}
