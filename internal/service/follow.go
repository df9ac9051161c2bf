package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"aufy/internal/cache"
	"aufy/internal/model"
	"aufy/internal/pairing"
	"aufy/internal/queue"
	"aufy/internal/repository"
)

// FollowService owns every mutation of the relationship graph: follow
// lifecycle, block toggling, and the cache/event obligations attached
// to each. No other component writes follow or block edges.
type FollowService struct {
	relRepo     repository.RelationshipRepository
	accountRepo repository.AccountRepository
	db          *sqlx.DB
	publisher   queue.Publisher
	coherence   *cache.Coherence
	listCache   cache.Store
	followPair  *pairing.Detector

	// runTx wraps a mutation in begin/commit. Tests substitute a runner
	// that hands the closure a nil tx so repository mocks see the call.
	runTx func(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

func NewFollowService(
	relRepo repository.RelationshipRepository,
	accountRepo repository.AccountRepository,
	db *sqlx.DB,
	publisher queue.Publisher,
	coherence *cache.Coherence,
	listCache cache.Store,
) *FollowService {
	s := &FollowService{
		relRepo:     relRepo,
		accountRepo: accountRepo,
		db:          db,
		publisher:   publisher,
		coherence:   coherence,
		listCache:   listCache,
	}
	s.runTx = s.transact

	// Follow mutuality is derived from the two edges, so the detector's
	// store only probes; marking is a no-op.
	s.followPair = pairing.NewDetector("follow", &followPairStore{relRepo: relRepo}, &mutualEvents{
		publisher: publisher,
		matched:   queue.NewMutualFollowEvent,
	})
	return s
}

// followPairStore adapts the relationship repository to pairing.Store
// for the followed-back signal. Mutual state is not materialized: it is
// always re-derivable from the two active edges.
type followPairStore struct {
	relRepo repository.RelationshipRepository
}

func (s *followPairStore) ReciprocalActive(ctx context.Context, owner, target int64) (bool, error) {
	return s.relRepo.IsFollowingActive(ctx, target, owner)
}

func (s *followPairStore) MarkMutual(ctx context.Context, a, b int64, key string) error {
	return nil
}

func (s *followPairStore) ClearMutual(ctx context.Context, a, b int64) error {
	return nil
}

func (s *FollowService) transact(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Request creates a follow edge for the pair: pending when the followee
// is private, active otherwise. A block between the pair surfaces as
// account-not-found so the block is never confirmed.
func (s *FollowService) Request(ctx context.Context, followerID, followeeID int64) (*model.FollowResult, error) {
	if followerID == followeeID {
		return nil, model.ErrCannotFollowSelf
	}

	followee, err := s.accountRepo.GetByID(ctx, followeeID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.relRepo.BlockExists(ctx, followerID, followeeID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, model.ErrAccountNotFound
	}

	existing, err := s.relRepo.GetFollow(ctx, followerID, followeeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == model.FollowStatusPending {
			return nil, model.ErrFollowRequestPending
		}
		return nil, model.ErrAlreadyFollowing
	}

	status := model.FollowStatusActive
	if followee.IsPrivate {
		status = model.FollowStatusPending
	}

	var inserted bool
	err = s.runTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		inserted, err = s.relRepo.UpsertFollow(ctx, tx, followerID, followeeID, status)
		if err != nil || !inserted {
			return err
		}

		// Only active edges move counters; a pending request counts for
		// nothing until approved.
		if status != model.FollowStatusActive {
			return nil
		}
		if err := s.accountRepo.IncrementFollowerCount(ctx, tx, followeeID, 1); err != nil {
			return err
		}
		return s.accountRepo.IncrementFollowingCount(ctx, tx, followerID, 1)
	})
	if err != nil {
		return nil, err
	}

	if !inserted {
		// A concurrent request won the upsert; report the state it left.
		current, err := s.relRepo.GetFollow(ctx, followerID, followeeID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Status == model.FollowStatusPending {
			return nil, model.ErrFollowRequestPending
		}
		return nil, model.ErrAlreadyFollowing
	}

	// Synchronous with the response; see cache.Coherence for the
	// failure contract.
	s.coherence.OnFollowChange(ctx, followerID, followeeID)

	if status == model.FollowStatusPending {
		publish(ctx, s.publisher, queue.NewFollowRequestedEvent(followerID, followeeID))
	} else {
		publish(ctx, s.publisher, queue.NewFollowApprovedEvent(followerID, followeeID))
		if _, _, err := s.followPair.Check(ctx, followerID, followeeID); err != nil {
			log.Printf("[FollowService] Mutual check failed: follower=%d followee=%d err=%v",
				followerID, followeeID, err)
		}
	}

	log.Printf("[FollowService] Request OK: follower=%d followee=%d status=%s",
		followerID, followeeID, status)
	return &model.FollowResult{Status: status}, nil
}

// Approve transitions the pending edge follower -> followee to active.
// Only the followee approves; there is no other path out of pending.
func (s *FollowService) Approve(ctx context.Context, followeeID, followerID int64) error {
	err := s.runTx(ctx, func(tx *sqlx.Tx) error {
		activated, err := s.relRepo.ActivateFollow(ctx, tx, followerID, followeeID)
		if err != nil {
			return err
		}
		if !activated {
			return model.ErrFollowRequestNotFound
		}

		if err := s.accountRepo.IncrementFollowerCount(ctx, tx, followeeID, 1); err != nil {
			return err
		}
		return s.accountRepo.IncrementFollowingCount(ctx, tx, followerID, 1)
	})
	if err != nil {
		return err
	}

	s.coherence.OnFollowChange(ctx, followerID, followeeID)
	publish(ctx, s.publisher, queue.NewFollowApprovedEvent(followerID, followeeID))

	if _, _, err := s.followPair.Check(ctx, followerID, followeeID); err != nil {
		log.Printf("[FollowService] Mutual check failed: follower=%d followee=%d err=%v",
			followerID, followeeID, err)
	}

	log.Printf("[FollowService] Approve OK: follower=%d followee=%d", followerID, followeeID)
	return nil
}

// Reject deletes the follow request follower -> followee.
func (s *FollowService) Reject(ctx context.Context, followeeID, followerID int64) error {
	if err := s.deleteEdge(ctx, followerID, followeeID, model.ErrFollowRequestNotFound); err != nil {
		return err
	}
	log.Printf("[FollowService] Reject OK: follower=%d followee=%d", followerID, followeeID)
	return nil
}

// Unfollow deletes the edge follower -> followee regardless of status;
// unfollowing a pending request cancels it.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	if err := s.deleteEdge(ctx, followerID, followeeID, model.ErrNotFollowing); err != nil {
		return err
	}
	log.Printf("[FollowService] Unfollow OK: follower=%d followee=%d", followerID, followeeID)
	return nil
}

func (s *FollowService) deleteEdge(ctx context.Context, followerID, followeeID int64, notFound error) error {
	err := s.runTx(ctx, func(tx *sqlx.Tx) error {
		status, found, err := s.relRepo.DeleteFollow(ctx, tx, followerID, followeeID)
		if err != nil {
			return err
		}
		if !found {
			return notFound
		}

		// Deleting a pending request never touches counters.
		if status != model.FollowStatusActive {
			return nil
		}
		if err := s.accountRepo.IncrementFollowerCount(ctx, tx, followeeID, -1); err != nil {
			return err
		}
		return s.accountRepo.IncrementFollowingCount(ctx, tx, followerID, -1)
	})
	if err != nil {
		return err
	}

	s.coherence.OnFollowChange(ctx, followerID, followeeID)
	return nil
}

// ToggleBlock blocks the target, or removes an existing block. Blocking
// runs insert block -> delete edges both directions -> adjust counters
// for the active edges removed, in that order, then sweeps once more
// for edges a concurrent follow may have slipped in.
func (s *FollowService) ToggleBlock(ctx context.Context, blockerID, blockedID int64) (*model.BlockToggleResult, error) {
	if blockerID == blockedID {
		return nil, model.ErrCannotBlockSelf
	}

	if _, err := s.accountRepo.GetByID(ctx, blockedID); err != nil {
		return nil, err
	}

	var removed bool
	err := s.runTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		removed, err = s.relRepo.DeleteBlock(ctx, tx, blockerID, blockedID)
		if err != nil || removed {
			return err
		}

		if _, err := s.relRepo.InsertBlock(ctx, tx, blockerID, blockedID); err != nil {
			return err
		}
		return s.removeEdgesForBlock(ctx, tx, blockerID, blockedID)
	})
	if err != nil {
		return nil, err
	}

	if removed {
		s.coherence.OnBlockChange(ctx, blockerID, blockedID)
		log.Printf("[FollowService] Unblock OK: blocker=%d blocked=%d", blockerID, blockedID)
		return &model.BlockToggleResult{Blocked: false}, nil
	}

	// Re-check: a follow racing this block may have committed between
	// our pre-checks and the edge delete. The block must win.
	if err := s.sweepEdgesAfterBlock(ctx, blockerID, blockedID); err != nil {
		log.Printf("[FollowService] Post-block sweep failed: blocker=%d blocked=%d err=%v",
			blockerID, blockedID, err)
	}

	s.coherence.OnBlockChange(ctx, blockerID, blockedID)
	publish(ctx, s.publisher, queue.NewUserBlockedEvent(blockerID, blockedID))

	log.Printf("[FollowService] Block OK: blocker=%d blocked=%d", blockerID, blockedID)
	return &model.BlockToggleResult{Blocked: true}, nil
}

// removeEdgesForBlock deletes edges in both directions and decrements
// counters by exactly the number of active edges removed. Pending edges
// vanish without a counter effect.
func (s *FollowService) removeEdgesForBlock(ctx context.Context, tx *sqlx.Tx, a, b int64) error {
	edges, err := s.relRepo.DeleteFollowsBetween(ctx, tx, a, b)
	if err != nil {
		return err
	}

	for _, edge := range edges {
		if edge.Status != model.FollowStatusActive {
			continue
		}
		if err := s.accountRepo.IncrementFollowerCount(ctx, tx, edge.FolloweeID, -1); err != nil {
			return err
		}
		if err := s.accountRepo.IncrementFollowingCount(ctx, tx, edge.FollowerID, -1); err != nil {
			return err
		}
	}
	return nil
}

func (s *FollowService) sweepEdgesAfterBlock(ctx context.Context, a, b int64) error {
	return s.runTx(ctx, func(tx *sqlx.Tx) error {
		return s.removeEdgesForBlock(ctx, tx, a, b)
	})
}

// IsFollowing reports an active edge a -> b.
func (s *FollowService) IsFollowing(ctx context.Context, a, b int64) (bool, error) {
	return s.relRepo.IsFollowingActive(ctx, a, b)
}

// IsMutual reports active edges in both directions.
func (s *FollowService) IsMutual(ctx context.Context, a, b int64) (bool, error) {
	ab, err := s.relRepo.IsFollowingActive(ctx, a, b)
	if err != nil || !ab {
		return false, err
	}
	return s.relRepo.IsFollowingActive(ctx, b, a)
}

// ListBlocked returns the accounts the user has blocked.
func (s *FollowService) ListBlocked(ctx context.Context, blockerID int64) ([]model.AccountSummary, error) {
	return s.relRepo.ListBlocked(ctx, blockerID)
}

// FollowListDefaultLimit is the page size served when the caller does
// not ask for one. Only this page shape is cached: the list cache holds
// one entry per account, so a custom limit must not overwrite it.
const FollowListDefaultLimit = 20

// GetFollowers returns active followers with cursor pagination. The
// default-limit first page goes through the list cache; mutations
// invalidate it synchronously, so a hit is never privacy-stale. On
// cache failure the read falls open to the store.
func (s *FollowService) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	return s.getFollowPage(ctx, userID, cursor, limit, viewerID, cache.FollowersKey(userID), s.relRepo.GetFollowers)
}

// GetFollowing returns active followees with cursor pagination. See
// GetFollowers for the cache contract.
func (s *FollowService) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	return s.getFollowPage(ctx, userID, cursor, limit, viewerID, cache.FollowingKey(userID), s.relRepo.GetFollowing)
}

type followPageFn func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.AccountSummary, *time.Time, error)

type cachedFollowPage struct {
	Users      []model.AccountSummary `json:"users"`
	NextCursor *time.Time             `json:"next_cursor"`
}

func (s *FollowService) getFollowPage(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64, cacheKey string, fetch followPageFn) (*model.FollowListResponse, error) {
	var page cachedFollowPage
	cacheable := cursor == nil && limit == FollowListDefaultLimit && s.listCache != nil

	hit := false
	if cacheable {
		var err error
		hit, err = s.listCache.Get(ctx, cacheKey, &page)
		if err != nil {
			hit = false // fail open to the store
		}
	}

	if !hit {
		users, nextCursor, err := fetch(ctx, userID, cursor, limit)
		if err != nil {
			return nil, err
		}
		page = cachedFollowPage{Users: users, NextCursor: nextCursor}

		if cacheable {
			// Performance-only entry: a failed write just skips caching.
			if err := s.listCache.Set(ctx, cacheKey, page, cache.ListTTL); err != nil {
				log.Printf("[FollowService] List cache set failed: key=%s err=%v", cacheKey, err)
			}
		}
	}

	users := page.Users
	if viewerID != nil {
		users = s.enrichWithFollowStatus(ctx, *viewerID, users)
	}

	var nextCursorStr *string
	if page.NextCursor != nil {
		str := page.NextCursor.Format(time.RFC3339Nano)
		nextCursorStr = &str
	}

	return &model.FollowListResponse{
		Users:      users,
		NextCursor: nextCursorStr,
		HasMore:    page.NextCursor != nil,
	}, nil
}

// enrichWithFollowStatus batch-checks whether the viewer follows each
// listed account: one query over the collected ids, not N+1. On failure
// the list comes back with is_following=false rather than erroring.
func (s *FollowService) enrichWithFollowStatus(ctx context.Context, viewerID int64, users []model.AccountSummary) []model.AccountSummary {
	if len(users) == 0 {
		return users
	}

	userIDs := make([]int64, len(users))
	for i, user := range users {
		userIDs[i] = user.ID
	}

	followMap, err := s.relRepo.CheckFollows(ctx, viewerID, userIDs)
	if err != nil {
		return users
	}

	for i := range users {
		users[i].IsFollowing = followMap[users[i].ID]
	}
	return users
}
