package model

import (
	"errors"
	"time"
)

// Account represents a user account in the system.
type Account struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	DisplayName    *string   `db:"display_name" json:"display_name"`
	AvatarURL      *string   `db:"avatar_url" json:"avatar_url"`
	Bio            *string   `db:"bio" json:"bio"`
	IsPrivate      bool      `db:"is_private" json:"is_private"`
	IsVerified     bool      `db:"is_verified" json:"is_verified"`
	FollowerCount  int       `db:"follower_count" json:"follower_count"`
	FollowingCount int       `db:"following_count" json:"following_count"`
	PostCount      int       `db:"post_count" json:"post_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// AccountSummary is the lightweight account representation embedded in
// lists and feed items. Basic-profile fields only: these are visible to
// any viewer regardless of privacy settings.
type AccountSummary struct {
	ID          int64   `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	DisplayName *string `db:"display_name" json:"display_name"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
	IsVerified  bool    `db:"is_verified" json:"is_verified"`
	IsFollowing bool    `json:"is_following"`
}

// Summary projects an account down to its basic-profile fields.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:          a.ID,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		IsVerified:  a.IsVerified,
	}
}

// ProfileView is the profile payload returned to a viewer. Gated fields
// are zeroed out when the privacy engine denies the corresponding class.
type ProfileView struct {
	Account
	IsFollowing  bool `json:"is_following"`
	IsRequested  bool `json:"is_requested"`
	CanViewPosts bool `json:"can_view_posts"`
}

var (
	// ErrAccountNotFound is returned when an account cannot be found.
	// Block-suppressed lookups deliberately return this same error so a
	// blocked viewer cannot distinguish "blocked" from "does not exist".
	ErrAccountNotFound = errors.New("account not found")
)
