package model

import (
	"errors"
	"time"
)

// FollowStatus is the lifecycle state of a follow edge.
type FollowStatus string

const (
	// FollowStatusPending is a follow request awaiting approval by a
	// private followee. Pending edges never count toward follower or
	// following counters.
	FollowStatusPending FollowStatus = "pending"

	// FollowStatusActive is an accepted follow. Only active edges count
	// toward counters and grant visibility into private accounts.
	FollowStatusActive FollowStatus = "active"
)

// Follow is a directed relationship edge. At most one edge exists per
// ordered (follower_id, followee_id) pair.
type Follow struct {
	FollowerID int64        `db:"follower_id" json:"follower_id"`
	FolloweeID int64        `db:"followee_id" json:"followee_id"`
	Status     FollowStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// FollowResult reports the outcome of a follow request: public accounts
// produce an immediately active edge, private accounts a pending one.
type FollowResult struct {
	Status FollowStatus `json:"status"`
}

// FollowListResponse is the paginated follower/following list response.
type FollowListResponse struct {
	Users      []AccountSummary `json:"users"`
	NextCursor *string          `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

var (
	ErrCannotFollowSelf      = errors.New("cannot follow yourself")
	ErrAlreadyFollowing      = errors.New("already following this user")
	ErrFollowRequestPending  = errors.New("follow request already sent")
	ErrFollowRequestNotFound = errors.New("no pending follow request for this user")
	ErrNotFollowing          = errors.New("not following this user")
)
