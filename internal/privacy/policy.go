// Package privacy implements the visibility decision function for
// profile-dependent content. Decide is pure: callers gather the
// relationship facts and the function evaluates the policy table.
package privacy

import "aufy/internal/model"

// ContentClass identifies what kind of gated data a read wants to expose.
type ContentClass string

const (
	ClassBasicProfile  ContentClass = "basic_profile"
	ClassPosts         ContentClass = "posts"
	ClassFollowerList  ContentClass = "follower_list"
	ClassFollowingList ContentClass = "following_list"
	ClassStories       ContentClass = "stories"
)

// ReasonPrivateAccount is the deny reason surfaced to callers when a
// private account gates the requested content.
const ReasonPrivateAccount = "PRIVATE_ACCOUNT"

// Facts are the relationship-graph inputs to a decision. They must come
// from the source of truth (or a cache with synchronous invalidation),
// never from a TTL-only cache.
type Facts struct {
	// Blocked is true if a block exists between viewer and target in
	// either direction.
	Blocked bool

	// ViewerFollowsActive is true if an active (not pending) follow edge
	// viewer -> target exists.
	ViewerFollowsActive bool
}

// Decision is the outcome of a visibility check.
type Decision struct {
	Allowed bool

	// Reason is ReasonPrivateAccount for privacy denials. Block denials
	// carry no reason: nothing about them may reach the viewer.
	Reason string

	// HideExistence marks denials that must surface as "not found"
	// rather than "forbidden", so a block is never confirmed to the
	// blocked party.
	HideExistence bool
}

var allow = Decision{Allowed: true}

// Decide evaluates the policy table top to bottom; the first matching
// rule wins.
//
//  1. block between the pair          -> deny, surfaced as not-found
//  2. viewer is the target            -> allow
//  3. basic profile                   -> allow
//  4. target is public                -> allow
//  5. target is private               -> allow only on active follow
func Decide(viewerID int64, target *model.Account, facts Facts, class ContentClass) Decision {
	if facts.Blocked {
		return Decision{HideExistence: true}
	}

	if viewerID == target.ID {
		return allow
	}

	if class == ClassBasicProfile {
		return allow
	}

	if !target.IsPrivate {
		return allow
	}

	if facts.ViewerFollowsActive {
		return allow
	}

	return Decision{Reason: ReasonPrivateAccount}
}
