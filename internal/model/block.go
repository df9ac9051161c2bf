package model

import (
	"errors"
	"time"
)

// Block is a suppression record between two accounts. The row is directed
// (who blocked whom) but its effect is symmetric: while it exists, no
// follow edge may exist between the pair in either direction and each
// side is invisible to the other regardless of privacy settings.
type Block struct {
	BlockerID int64     `db:"blocker_id" json:"blocker_id"`
	BlockedID int64     `db:"blocked_id" json:"blocked_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BlockToggleResult reports the state after a block toggle.
type BlockToggleResult struct {
	Blocked bool `json:"blocked"`
}

var (
	ErrCannotBlockSelf = errors.New("cannot block yourself")
)
