package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"aufy/internal/model"
)

// AccountRepository reads accounts and maintains their cached counters.
// Counters are denormalized; RecountFollowCounters is the authoritative
// recovery path for any drift left by partial multi-step failures.
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetSummaries(ctx context.Context, ids []int64) (map[int64]model.AccountSummary, error)
	IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	RecountFollowCounters(ctx context.Context, userID int64) error
	RecountAllFollowCounters(ctx context.Context) (int64, error)
}

// RelationshipRepository is the durable record of follow and block
// edges: the single source of truth for the graph. Nothing else writes
// these tables.
type RelationshipRepository interface {
	// UpsertFollow inserts an edge with the given status; the unique
	// (follower_id, followee_id) key makes concurrent duplicates
	// converge to one edge. Returns false if the edge already existed.
	UpsertFollow(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64, status model.FollowStatus) (bool, error)

	// GetFollow returns the edge for the exact ordered pair, or nil.
	GetFollow(ctx context.Context, followerID, followeeID int64) (*model.Follow, error)

	// ActivateFollow transitions a pending edge to active. Returns
	// false if no pending edge exists for the pair.
	ActivateFollow(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)

	// DeleteFollow removes the edge for the pair, reporting the status
	// it had. found is false if no edge existed.
	DeleteFollow(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (status model.FollowStatus, found bool, err error)

	// DeleteFollowsBetween removes edges in both directions between the
	// pair and returns the removed edges so the caller can adjust
	// counters for the active ones.
	DeleteFollowsBetween(ctx context.Context, tx *sqlx.Tx, a, b int64) ([]model.Follow, error)

	IsFollowingActive(ctx context.Context, followerID, followeeID int64) (bool, error)
	CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
	CheckFollowedBy(ctx context.Context, followeeID int64, followerIDs []int64) (map[int64]bool, error)
	GetActiveFolloweeIDs(ctx context.Context, userID int64) ([]int64, error)
	GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.AccountSummary, *time.Time, error)
	GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.AccountSummary, *time.Time, error)

	// BlockExists reports a block between the pair in either direction.
	BlockExists(ctx context.Context, a, b int64) (bool, error)
	InsertBlock(ctx context.Context, tx *sqlx.Tx, blockerID, blockedID int64) (bool, error)
	DeleteBlock(ctx context.Context, tx *sqlx.Tx, blockerID, blockedID int64) (bool, error)

	// GetBlockedIDs returns every account blocked by or blocking the
	// user; feeds pre-filter authors with it.
	GetBlockedIDs(ctx context.Context, userID int64) ([]int64, error)
	ListBlocked(ctx context.Context, blockerID int64) ([]model.AccountSummary, error)
}

// CrushRepository stores secret-crush entries. Removal deactivates
// rather than deletes so match history survives.
type CrushRepository interface {
	// Upsert creates the owner's entry or reactivates an inactive one.
	// Returns false if an active entry already existed.
	Upsert(ctx context.Context, ownerID, targetID int64) (bool, error)

	GetActive(ctx context.Context, ownerID, targetID int64) (*model.CrushEntry, error)
	CountActive(ctx context.Context, ownerID int64) (int, error)
	ListActive(ctx context.Context, ownerID int64) ([]model.CrushEntry, error)

	// Deactivate marks the owner's entry inactive, reporting whether it
	// was mutual. found is false if no active entry existed.
	Deactivate(ctx context.Context, ownerID, targetID int64) (wasMutual bool, found bool, err error)

	// ReciprocalActive, MarkMutual and ClearMutual implement
	// pairing.Store for the crush detector instantiation.
	ReciprocalActive(ctx context.Context, ownerID, targetID int64) (bool, error)
	MarkMutual(ctx context.Context, a, b int64, key string) error
	ClearMutual(ctx context.Context, a, b int64) error
}

// PostRepository is the read surface the feed engine consumes from the
// content store. The core never writes content.
type PostRepository interface {
	// ListByAuthors returns non-archived, non-deleted posts authored by
	// the given set, newest first, offset/limit paginated.
	ListByAuthors(ctx context.Context, authorIDs []int64, offset, limit int) ([]model.Post, error)

	// ListDiscoveryCandidates returns public-account, non-archived,
	// non-deleted posts for discovery scoring, newest first.
	ListDiscoveryCandidates(ctx context.Context, limit int) ([]model.Post, error)

	// CheckLikes reports which of the posts the user has liked.
	CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
}
