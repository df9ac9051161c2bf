package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"aufy/internal/model"
)

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	query := `
		SELECT id, username, display_name, avatar_url, bio, is_private, is_verified,
		       follower_count, following_count, post_count, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var a model.Account
	err := r.db.GetContext(ctx, &a, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return &a, nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	query := `
		SELECT id, username, display_name, avatar_url, bio, is_private, is_verified,
		       follower_count, following_count, post_count, created_at, updated_at
		FROM accounts
		WHERE username = $1
	`

	var a model.Account
	err := r.db.GetContext(ctx, &a, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}

	return &a, nil
}

// GetSummaries batch-fetches basic-profile summaries keyed by id. Feeds
// use this instead of a per-item lookup.
func (r *accountRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.AccountSummary, error) {
	if len(ids) == 0 {
		return make(map[int64]model.AccountSummary), nil
	}

	query := `
		SELECT id, username, display_name, avatar_url, is_verified
		FROM accounts
		WHERE id = ANY($1)
	`

	var rows []model.AccountSummary
	err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get account summaries: %w", err)
	}

	result := make(map[int64]model.AccountSummary, len(rows))
	for _, s := range rows {
		result[s.ID] = s
	}
	return result, nil
}

func (r *accountRepository) IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	query := `UPDATE accounts SET follower_count = follower_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to increment follower count: %w", err)
	}
	return nil
}

func (r *accountRepository) IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	query := `UPDATE accounts SET following_count = following_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to increment following count: %w", err)
	}
	return nil
}

// RecountFollowCounters rewrites one account's counters from live edge
// counts. Only active edges qualify; pending requests never count.
func (r *accountRepository) RecountFollowCounters(ctx context.Context, userID int64) error {
	query := `
		UPDATE accounts SET
			follower_count = (
				SELECT COUNT(*) FROM follows
				WHERE followee_id = accounts.id AND status = 'active'
			),
			following_count = (
				SELECT COUNT(*) FROM follows
				WHERE follower_id = accounts.id AND status = 'active'
			)
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to recount follow counters: %w", err)
	}
	return nil
}

// RecountAllFollowCounters corrects drift across every account whose
// stored counters disagree with the edge counts. Returns the number of
// corrected rows.
func (r *accountRepository) RecountAllFollowCounters(ctx context.Context) (int64, error) {
	query := `
		UPDATE accounts SET
			follower_count = live.followers,
			following_count = live.following
		FROM (
			SELECT a.id,
			       COUNT(*) FILTER (WHERE f.followee_id = a.id AND f.status = 'active') AS followers,
			       COUNT(*) FILTER (WHERE f.follower_id = a.id AND f.status = 'active') AS following
			FROM accounts a
			LEFT JOIN follows f ON f.followee_id = a.id OR f.follower_id = a.id
			GROUP BY a.id
		) AS live
		WHERE accounts.id = live.id
		  AND (accounts.follower_count <> live.followers OR accounts.following_count <> live.following)
	`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to recount all follow counters: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
