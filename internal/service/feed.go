package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"aufy/internal/cache"
	"aufy/internal/model"
	"aufy/internal/repository"
)

const (
	// FeedDefaultLimit is the default number of posts per page
	FeedDefaultLimit = 10

	// FeedMaxLimit is the maximum number of posts per page
	FeedMaxLimit = 50
)

// FeedService builds the follow feed: posts from the viewer's active
// followees plus the viewer's own, newest first. Pages are cached under
// a short TTL; a stale page holds at most TTL-old data and privacy
// pre-filtering happens on every build, so the cache only ever serves
// content the viewer was entitled to see when the page was built.
type FeedService struct {
	postRepo    repository.PostRepository
	relRepo     repository.RelationshipRepository
	accountRepo repository.AccountRepository
	pageCache   cache.Store
}

func NewFeedService(
	postRepo repository.PostRepository,
	relRepo repository.RelationshipRepository,
	accountRepo repository.AccountRepository,
	pageCache cache.Store,
) *FeedService {
	return &FeedService{
		postRepo:    postRepo,
		relRepo:     relRepo,
		accountRepo: accountRepo,
		pageCache:   pageCache,
	}
}

// GetFeed returns one page of the viewer's follow feed.
//
// Flow:
//  1. Try the page cache (fail open to the source on error)
//  2. On miss, resolve the author set: active followees + self, minus
//     anyone in a block relation with the viewer
//  3. Fetch limit+1 posts at the page offset, newest first
//  4. Enrich with author summaries, like state, and mutual-follow state
//  5. Cache the built page under the short feed TTL
func (s *FeedService) GetFeed(ctx context.Context, viewerID int64, page, limit int) (*model.FeedResponse, error) {
	startTime := time.Now()

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = FeedDefaultLimit
	}
	if limit > FeedMaxLimit {
		limit = FeedMaxLimit
	}

	cacheKey := cache.FeedPageKey(viewerID, page)
	if s.pageCache != nil {
		var cached model.FeedResponse
		hit, err := s.pageCache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Printf("[FeedService] Page cache read failed: viewer=%d page=%d err=%v", viewerID, page, err)
		} else if hit {
			log.Printf("[FeedService] GetFeed cache hit: viewer=%d page=%d posts=%d", viewerID, page, len(cached.Posts))
			return &cached, nil
		}
	}

	authorIDs, err := s.feedAuthors(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	resp := &model.FeedResponse{Posts: []model.FeedPost{}, Page: page}
	if len(authorIDs) > 0 {
		// Fetch one extra row to learn whether another page exists.
		offset := (page - 1) * limit
		posts, err := s.postRepo.ListByAuthors(ctx, authorIDs, offset, limit+1)
		if err != nil {
			return nil, fmt.Errorf("list feed posts: %w", err)
		}

		resp.HasMore = len(posts) > limit
		if resp.HasMore {
			posts = posts[:limit]
		}

		resp.Posts, err = s.enrichPosts(ctx, viewerID, posts)
		if err != nil {
			return nil, err
		}
	}

	if s.pageCache != nil {
		if err := s.pageCache.Set(ctx, cacheKey, resp, cache.FeedPageTTL); err != nil {
			log.Printf("[FeedService] Page cache write failed: viewer=%d page=%d err=%v", viewerID, page, err)
		}
	}

	log.Printf("[FeedService] GetFeed OK: viewer=%d page=%d posts=%d hasMore=%v duration=%v",
		viewerID, page, len(resp.Posts), resp.HasMore, time.Since(startTime))
	return resp, nil
}

// feedAuthors resolves whose posts the viewer's feed draws from. Blocks
// are filtered here rather than per post so a blocked author's posts
// never even reach scoring or enrichment.
func (s *FeedService) feedAuthors(ctx context.Context, viewerID int64) ([]int64, error) {
	followeeIDs, err := s.relRepo.GetActiveFolloweeIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("get followee ids: %w", err)
	}
	followeeIDs = append(followeeIDs, viewerID)

	blockedIDs, err := s.relRepo.GetBlockedIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("get blocked ids: %w", err)
	}
	if len(blockedIDs) == 0 {
		return followeeIDs, nil
	}

	blocked := make(map[int64]struct{}, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = struct{}{}
	}

	authors := followeeIDs[:0]
	for _, id := range followeeIDs {
		if _, ok := blocked[id]; !ok {
			authors = append(authors, id)
		}
	}
	return authors, nil
}

// enrichPosts attaches author summaries and the viewer's interaction
// state. Three batch queries total, regardless of page size.
func (s *FeedService) enrichPosts(ctx context.Context, viewerID int64, posts []model.Post) ([]model.FeedPost, error) {
	if len(posts) == 0 {
		return []model.FeedPost{}, nil
	}

	postIDs := make([]int64, len(posts))
	authorSet := make(map[int64]struct{}, len(posts))
	for i, post := range posts {
		postIDs[i] = post.ID
		authorSet[post.AuthorID] = struct{}{}
	}
	authorIDs := make([]int64, 0, len(authorSet))
	for id := range authorSet {
		authorIDs = append(authorIDs, id)
	}

	authors, err := s.accountRepo.GetSummaries(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("get author summaries: %w", err)
	}

	likes, err := s.postRepo.CheckLikes(ctx, viewerID, postIDs)
	if err != nil {
		log.Printf("[FeedService] Like check failed: viewer=%d err=%v", viewerID, err)
		likes = map[int64]bool{}
	}

	mutuals, err := s.mutualAuthors(ctx, viewerID, authorIDs)
	if err != nil {
		log.Printf("[FeedService] Mutual check failed: viewer=%d err=%v", viewerID, err)
		mutuals = map[int64]bool{}
	}

	enriched := make([]model.FeedPost, 0, len(posts))
	for _, post := range posts {
		author, ok := authors[post.AuthorID]
		if !ok {
			// Author deleted between the post query and the join.
			continue
		}
		enriched = append(enriched, model.FeedPost{
			Post:           post,
			Author:         author,
			IsLiked:        likes[post.ID],
			IsMutualFollow: post.AuthorID != viewerID && mutuals[post.AuthorID],
		})
	}
	return enriched, nil
}

// mutualAuthors intersects follows-them with follows-me over the author
// set: two batch queries instead of 2N point lookups.
func (s *FeedService) mutualAuthors(ctx context.Context, viewerID int64, authorIDs []int64) (map[int64]bool, error) {
	follows, err := s.relRepo.CheckFollows(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}
	followedBy, err := s.relRepo.CheckFollowedBy(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	mutual := make(map[int64]bool, len(authorIDs))
	for _, id := range authorIDs {
		mutual[id] = follows[id] && followedBy[id]
	}
	return mutual, nil
}
