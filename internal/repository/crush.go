package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"aufy/internal/model"
)

type crushRepository struct {
	db *sqlx.DB
}

func NewCrushRepository(db *sqlx.DB) CrushRepository {
	return &crushRepository{db: db}
}

// Upsert creates the owner's entry, or reactivates a previously removed
// one. Reactivation resets the mutual state; the detector re-derives it.
func (r *crushRepository) Upsert(ctx context.Context, ownerID, targetID int64) (bool, error) {
	query := `
		INSERT INTO crushes (owner_id, target_id, is_active)
		VALUES ($1, $2, true)
		ON CONFLICT (owner_id, target_id) DO UPDATE
		SET is_active = true, is_mutual = false, pair_key = NULL, mutual_detected_at = NULL
		WHERE crushes.is_active = false
	`
	result, err := r.db.ExecContext(ctx, query, ownerID, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to upsert crush: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *crushRepository) GetActive(ctx context.Context, ownerID, targetID int64) (*model.CrushEntry, error) {
	query := `
		SELECT owner_id, target_id, is_active, is_mutual, pair_key, created_at, mutual_detected_at
		FROM crushes
		WHERE owner_id = $1 AND target_id = $2 AND is_active = true
	`

	var entry model.CrushEntry
	err := r.db.GetContext(ctx, &entry, query, ownerID, targetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get crush entry: %w", err)
	}
	return &entry, nil
}

func (r *crushRepository) CountActive(ctx context.Context, ownerID int64) (int, error) {
	query := `SELECT COUNT(*) FROM crushes WHERE owner_id = $1 AND is_active = true`

	var count int
	err := r.db.GetContext(ctx, &count, query, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to count active crushes: %w", err)
	}
	return count, nil
}

func (r *crushRepository) ListActive(ctx context.Context, ownerID int64) ([]model.CrushEntry, error) {
	query := `
		SELECT owner_id, target_id, is_active, is_mutual, pair_key, created_at, mutual_detected_at
		FROM crushes
		WHERE owner_id = $1 AND is_active = true
		ORDER BY created_at DESC
	`

	var entries []model.CrushEntry
	err := r.db.SelectContext(ctx, &entries, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active crushes: %w", err)
	}
	return entries, nil
}

// Deactivate keeps the row as tagged inactive state; the detection
// history is part of the notification contract.
func (r *crushRepository) Deactivate(ctx context.Context, ownerID, targetID int64) (bool, bool, error) {
	query := `
		UPDATE crushes SET is_active = false
		WHERE owner_id = $1 AND target_id = $2 AND is_active = true
		RETURNING is_mutual
	`

	var wasMutual bool
	err := r.db.QueryRowxContext(ctx, query, ownerID, targetID).Scan(&wasMutual)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to deactivate crush: %w", err)
	}
	return wasMutual, true, nil
}

func (r *crushRepository) ReciprocalActive(ctx context.Context, ownerID, targetID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM crushes
			WHERE owner_id = $1 AND target_id = $2 AND is_active = true
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, targetID, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to check reciprocal crush: %w", err)
	}
	return exists, nil
}

// MarkMutual flips both sides in one statement so a re-run converges to
// the same state. Not a cross-record transaction in the detector's
// contract, but a single UPDATE here keeps the two rows from diverging.
func (r *crushRepository) MarkMutual(ctx context.Context, a, b int64, key string) error {
	query := `
		UPDATE crushes
		SET is_mutual = true, pair_key = $3,
		    mutual_detected_at = COALESCE(mutual_detected_at, NOW())
		WHERE is_active = true
		  AND ((owner_id = $1 AND target_id = $2) OR (owner_id = $2 AND target_id = $1))
	`
	_, err := r.db.ExecContext(ctx, query, a, b, key)
	if err != nil {
		return fmt.Errorf("failed to mark crush mutual: %w", err)
	}
	return nil
}

func (r *crushRepository) ClearMutual(ctx context.Context, a, b int64) error {
	query := `
		UPDATE crushes
		SET is_mutual = false, pair_key = NULL
		WHERE (owner_id = $1 AND target_id = $2) OR (owner_id = $2 AND target_id = $1)
	`
	_, err := r.db.ExecContext(ctx, query, a, b)
	if err != nil {
		return fmt.Errorf("failed to clear crush mutual: %w", err)
	}
	return nil
}
