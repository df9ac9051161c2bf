package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"aufy/internal/model"
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []int64, offset, limit int) ([]model.Post, error) {
	if len(authorIDs) == 0 {
		return []model.Post{}, nil
	}

	query := `
		SELECT id, author_id, caption, like_count, comment_count, view_count,
		       is_archived, created_at, deleted_at
		FROM posts
		WHERE author_id = ANY($1) AND deleted_at IS NULL AND is_archived = false
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`

	var posts []model.Post
	err := r.db.SelectContext(ctx, &posts, query, pq.Array(authorIDs), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by authors: %w", err)
	}
	return posts, nil
}

// ListDiscoveryCandidates returns the scoring candidate set: posts from
// public accounts only, newest first. Scoring and viewer-specific
// filtering happen in the service.
func (r *postRepository) ListDiscoveryCandidates(ctx context.Context, limit int) ([]model.Post, error) {
	query := `
		SELECT p.id, p.author_id, p.caption, p.like_count, p.comment_count, p.view_count,
		       p.is_archived, p.created_at, p.deleted_at
		FROM posts p
		JOIN accounts a ON a.id = p.author_id
		WHERE p.deleted_at IS NULL AND p.is_archived = false AND a.is_private = false
		ORDER BY p.created_at DESC
		LIMIT $1
	`

	var posts []model.Post
	err := r.db.SelectContext(ctx, &posts, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list discovery candidates: %w", err)
	}
	return posts, nil
}

func (r *postRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if len(postIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT post_id FROM likes WHERE user_id = $1 AND post_id = ANY($2)`
	var likedIDs []int64
	err := r.db.SelectContext(ctx, &likedIDs, query, userID, pq.Array(postIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check likes: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range postIDs {
		result[id] = false
	}
	for _, id := range likedIDs {
		result[id] = true
	}
	return result, nil
}
