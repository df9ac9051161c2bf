package cache

import (
	"fmt"
	"time"
)

// TTLs. Profile and list entries get a long TTL because mutations
// invalidate them synchronously; the TTL is only a backstop. Feed pages
// are TTL-only (bounded staleness) and deliberately short.
const (
	ProfileTTL   = 15 * time.Minute
	ListTTL      = 15 * time.Minute
	FeedPageTTL  = 30 * time.Second
	DiscoveryTTL = 60 * time.Second
)

func ProfileKey(id int64) string {
	return fmt.Sprintf("profile:%d", id)
}

func ProfileHandleKey(username string) string {
	return "profile:handle:" + username
}

func FollowersKey(id int64) string {
	return fmt.Sprintf("followers:%d", id)
}

func FollowingKey(id int64) string {
	return fmt.Sprintf("following:%d", id)
}

func FeedPageKey(viewerID int64, page int) string {
	return fmt.Sprintf("feed:%d:%d", viewerID, page)
}

// DiscoveryKey caches the scored candidate list, which is viewer
// independent; enrichment happens per viewer after the cache read.
func DiscoveryKey() string {
	return "discovery:candidates"
}
