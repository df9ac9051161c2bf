package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"aufy/internal/model"
)

type relationshipRepository struct {
	db *sqlx.DB
}

func NewRelationshipRepository(db *sqlx.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

// UpsertFollow inserts the edge for the ordered pair. The unique key on
// (follower_id, followee_id) plus DO NOTHING makes concurrent duplicate
// requests converge to a single edge.
func (r *relationshipRepository) UpsertFollow(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64, status model.FollowStatus) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, followee_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID, status)
	if err != nil {
		return false, fmt.Errorf("failed to upsert follow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *relationshipRepository) GetFollow(ctx context.Context, followerID, followeeID int64) (*model.Follow, error) {
	query := `
		SELECT follower_id, followee_id, status, created_at
		FROM follows
		WHERE follower_id = $1 AND followee_id = $2
	`

	var f model.Follow
	err := r.db.GetContext(ctx, &f, query, followerID, followeeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get follow: %w", err)
	}
	return &f, nil
}

func (r *relationshipRepository) ActivateFollow(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	query := `
		UPDATE follows SET status = 'active'
		WHERE follower_id = $1 AND followee_id = $2 AND status = 'pending'
	`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to activate follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *relationshipRepository) DeleteFollow(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (model.FollowStatus, bool, error) {
	query := `
		DELETE FROM follows
		WHERE follower_id = $1 AND followee_id = $2
		RETURNING status
	`

	var status model.FollowStatus
	err := tx.QueryRowxContext(ctx, query, followerID, followeeID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to delete follow: %w", err)
	}
	return status, true, nil
}

// DeleteFollowsBetween removes edges in both directions. RETURNING lets
// the caller decrement counters for exactly the active edges removed.
func (r *relationshipRepository) DeleteFollowsBetween(ctx context.Context, tx *sqlx.Tx, a, b int64) ([]model.Follow, error) {
	query := `
		DELETE FROM follows
		WHERE (follower_id = $1 AND followee_id = $2)
		   OR (follower_id = $2 AND followee_id = $1)
		RETURNING follower_id, followee_id, status, created_at
	`

	var removed []model.Follow
	rows, err := tx.QueryxContext(ctx, query, a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to delete follows between pair: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f model.Follow
		if err := rows.StructScan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan removed follow: %w", err)
		}
		removed = append(removed, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate removed follows: %w", err)
	}
	return removed, nil
}

func (r *relationshipRepository) IsFollowingActive(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM follows
			WHERE follower_id = $1 AND followee_id = $2 AND status = 'active'
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return exists, nil
}

// CheckFollows batch-checks which of the followees the user actively
// follows. Single query with ANY($2), not N+1.
func (r *relationshipRepository) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if len(followeeIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `
		SELECT followee_id FROM follows
		WHERE follower_id = $1 AND followee_id = ANY($2) AND status = 'active'
	`
	var followedIDs []int64
	err := r.db.SelectContext(ctx, &followedIDs, query, followerID, pq.Array(followeeIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check follows: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range followeeIDs {
		result[id] = false
	}
	for _, id := range followedIDs {
		result[id] = true
	}
	return result, nil
}

// CheckFollowedBy is the reverse batch check: which of the given
// accounts actively follow the user. Combined with CheckFollows it
// yields the mutual-follow flag per author.
func (r *relationshipRepository) CheckFollowedBy(ctx context.Context, followeeID int64, followerIDs []int64) (map[int64]bool, error) {
	if len(followerIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `
		SELECT follower_id FROM follows
		WHERE followee_id = $1 AND follower_id = ANY($2) AND status = 'active'
	`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, followeeID, pq.Array(followerIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check followed-by: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range followerIDs {
		result[id] = false
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func (r *relationshipRepository) GetActiveFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT followee_id FROM follows WHERE follower_id = $1 AND status = 'active'`

	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followee ids: %w", err)
	}
	return ids, nil
}

// GetFollowers retrieves active followers with cursor-based pagination:
// nil cursor starts from the newest edge, otherwise edges created
// before the cursor timestamp. Fetches limit+1 to detect more results.
func (r *relationshipRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.AccountSummary, *time.Time, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT a.id, a.username, a.display_name, a.avatar_url, a.is_verified, f.created_at
			FROM follows f
			JOIN accounts a ON a.id = f.follower_id
			WHERE f.followee_id = $1 AND f.status = 'active'
			ORDER BY f.created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT a.id, a.username, a.display_name, a.avatar_url, a.is_verified, f.created_at
			FROM follows f
			JOIN accounts a ON a.id = f.follower_id
			WHERE f.followee_id = $1 AND f.status = 'active' AND f.created_at < $2
			ORDER BY f.created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, cursor, limit + 1}
	}

	return r.selectFollowPage(ctx, query, args, limit)
}

// GetFollowing retrieves active followees with cursor-based pagination.
// See GetFollowers for the cursor contract.
func (r *relationshipRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.AccountSummary, *time.Time, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT a.id, a.username, a.display_name, a.avatar_url, a.is_verified, f.created_at
			FROM follows f
			JOIN accounts a ON a.id = f.followee_id
			WHERE f.follower_id = $1 AND f.status = 'active'
			ORDER BY f.created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT a.id, a.username, a.display_name, a.avatar_url, a.is_verified, f.created_at
			FROM follows f
			JOIN accounts a ON a.id = f.followee_id
			WHERE f.follower_id = $1 AND f.status = 'active' AND f.created_at < $2
			ORDER BY f.created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, cursor, limit + 1}
	}

	return r.selectFollowPage(ctx, query, args, limit)
}

func (r *relationshipRepository) selectFollowPage(ctx context.Context, query string, args []interface{}, limit int) ([]model.AccountSummary, *time.Time, error) {
	type summaryWithTime struct {
		model.AccountSummary
		CreatedAt time.Time `db:"created_at"`
	}

	var results []summaryWithTime
	err := r.db.SelectContext(ctx, &results, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get follow page: %w", err)
	}

	var nextCursor *time.Time
	if len(results) > limit {
		results = results[:limit]
		nextCursor = &results[len(results)-1].CreatedAt
	}

	var users []model.AccountSummary
	for _, result := range results {
		users = append(users, result.AccountSummary)
	}
	return users, nextCursor, nil
}

func (r *relationshipRepository) BlockExists(ctx context.Context, a, b int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, a, b)
	if err != nil {
		return false, fmt.Errorf("failed to check block existence: %w", err)
	}
	return exists, nil
}

func (r *relationshipRepository) InsertBlock(ctx context.Context, tx *sqlx.Tx, blockerID, blockedID int64) (bool, error) {
	query := `
		INSERT INTO blocks (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("failed to insert block: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *relationshipRepository) DeleteBlock(ctx context.Context, tx *sqlx.Tx, blockerID, blockedID int64) (bool, error) {
	query := `DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`
	result, err := tx.ExecContext(ctx, query, blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("failed to delete block: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *relationshipRepository) GetBlockedIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT CASE WHEN blocker_id = $1 THEN blocked_id ELSE blocker_id END
		FROM blocks
		WHERE blocker_id = $1 OR blocked_id = $1
	`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get blocked ids: %w", err)
	}
	return ids, nil
}

func (r *relationshipRepository) ListBlocked(ctx context.Context, blockerID int64) ([]model.AccountSummary, error) {
	query := `
		SELECT a.id, a.username, a.display_name, a.avatar_url, a.is_verified
		FROM blocks b
		JOIN accounts a ON a.id = b.blocked_id
		WHERE b.blocker_id = $1
		ORDER BY b.created_at DESC
	`
	var users []model.AccountSummary
	err := r.db.SelectContext(ctx, &users, query, blockerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked accounts: %w", err)
	}
	return users, nil
}
