package cache

import (
	"context"
	"log"
)

// Coherence enumerates the invalidation obligations of every graph
// mutation in one place. Services call these synchronously, after the
// store commit and before returning to the caller.
//
// Relationship facts (blocks, follow edges) are always read from the
// stores, never from this cache. The cached profile does carry the
// privacy flag, which is why every mutation that could change what a
// viewer may see invalidates the affected entries before the mutation
// returns. Invalidation failures are logged and reported but do not
// roll back the mutation: the worst case is a stale display entry
// until its TTL, never a wrong privacy fact.
type Coherence struct {
	store Store
}

func NewCoherence(store Store) *Coherence {
	return &Coherence{store: store}
}

// pairKeys is the invalidation set shared by every edge mutation:
// profiles (counters changed) and both accounts' lists.
func pairKeys(a, b int64) []string {
	return []string{
		ProfileKey(a),
		ProfileKey(b),
		FollowersKey(a),
		FollowersKey(b),
		FollowingKey(a),
		FollowingKey(b),
	}
}

// OnFollowChange invalidates after requestFollow, approveFollow,
// rejectFollow and unfollow.
func (c *Coherence) OnFollowChange(ctx context.Context, followerID, followeeID int64) error {
	err := c.store.Invalidate(ctx, pairKeys(followerID, followeeID)...)
	if err != nil {
		log.Printf("[Coherence] OnFollowChange FAILED: follower=%d followee=%d err=%v",
			followerID, followeeID, err)
	}
	return err
}

// OnBlockChange invalidates after block and unblock. Same set as a
// follow change; blocks also destroy edges between the pair.
func (c *Coherence) OnBlockChange(ctx context.Context, blockerID, blockedID int64) error {
	err := c.store.Invalidate(ctx, pairKeys(blockerID, blockedID)...)
	if err != nil {
		log.Printf("[Coherence] OnBlockChange FAILED: blocker=%d blocked=%d err=%v",
			blockerID, blockedID, err)
	}
	return err
}

// OnProfileChange invalidates a single profile, e.g. after counter
// reconciliation rewrites it.
func (c *Coherence) OnProfileChange(ctx context.Context, userID int64) error {
	err := c.store.Invalidate(ctx, ProfileKey(userID))
	if err != nil {
		log.Printf("[Coherence] OnProfileChange FAILED: user=%d err=%v", userID, err)
	}
	return err
}
