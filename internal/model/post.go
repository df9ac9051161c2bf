package model

import (
	"errors"
	"time"
)

// Post is a content item as seen by the feed engine. Content bodies and
// media live in the external content store; the feed engine only needs
// authorship, engagement counters, and lifecycle flags.
type Post struct {
	ID           int64      `db:"id" json:"id"`
	AuthorID     int64      `db:"author_id" json:"author_id"`
	Caption      *string    `db:"caption" json:"caption"`
	LikeCount    int        `db:"like_count" json:"like_count"`
	CommentCount int        `db:"comment_count" json:"comment_count"`
	ViewCount    int        `db:"view_count" json:"view_count"`
	IsArchived   bool       `db:"is_archived" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
}

// FeedPost is a post enriched with the viewer's interaction state.
// Enrichment is read-only: building a feed never mutates anything.
type FeedPost struct {
	Post
	Author         AccountSummary `json:"author"`
	IsLiked        bool           `json:"is_liked"`
	IsMutualFollow bool           `json:"is_mutual_follow"`
}

// FeedResponse is a paginated follow-feed page.
type FeedResponse struct {
	Posts   []FeedPost `json:"posts"`
	Page    int        `json:"page"`
	HasMore bool       `json:"has_more"`
}

// DiscoveryPost is a scored discovery-feed item.
type DiscoveryPost struct {
	FeedPost
	Score float64 `json:"score"`
}

// DiscoveryResponse is a paginated discovery-feed page. Engagement
// counters move between page fetches, so exact item stability across
// pages is not guaranteed.
type DiscoveryResponse struct {
	Posts   []DiscoveryPost `json:"posts"`
	Page    int             `json:"page"`
	HasMore bool            `json:"has_more"`
}

var (
	ErrPostNotFound = errors.New("post not found")
)
