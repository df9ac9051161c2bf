package model

import (
	"errors"
	"time"
)

// MaxActiveCrushes is the per-account limit of active crush entries.
const MaxActiveCrushes = 5

// CrushEntry is one side of the "secret crush" mutual-interest feature.
// Entries are deactivated rather than deleted so that the detection
// history (who matched whom, and when) survives removal.
//
// Invariant: whenever both (owner, target) and (target, owner) are
// active, both rows carry IsMutual=true and the same PairKey; removing
// either side clears the other side's flag and key.
type CrushEntry struct {
	OwnerID          int64      `db:"owner_id" json:"owner_id"`
	TargetID         int64      `db:"target_id" json:"target_id"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	IsMutual         bool       `db:"is_mutual" json:"is_mutual"`
	PairKey          *string    `db:"pair_key" json:"pair_key"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	MutualDetectedAt *time.Time `db:"mutual_detected_at" json:"mutual_detected_at"`
}

// CrushListResponse is the owner's crush list. Targets are joined in as
// summaries; mutual state is the owner's view only.
type CrushListResponse struct {
	Entries []CrushListItem `json:"entries"`
}

// CrushListItem is one crush entry enriched with the target's summary.
type CrushListItem struct {
	Target   AccountSummary `json:"target"`
	IsMutual bool           `json:"is_mutual"`
	PairKey  *string        `json:"pair_key,omitempty"`
	AddedAt  time.Time      `json:"added_at"`
}

var (
	ErrCannotCrushSelf   = errors.New("cannot add yourself as a crush")
	ErrCrushExists       = errors.New("already in your crush list")
	ErrCrushNotFound     = errors.New("crush entry not found")
	ErrCrushLimitReached = errors.New("crush list limit reached")
)
