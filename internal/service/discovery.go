package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"aufy/internal/cache"
	"aufy/internal/model"
	"aufy/internal/repository"
)

const (
	// DiscoveryCandidateLimit caps how many recent public posts are
	// pulled in for scoring per cache refresh.
	DiscoveryCandidateLimit = 500

	discoveryAgeWeight     = -0.1
	discoveryViewWeight    = 0.3
	discoveryLikeWeight    = 0.5
	discoveryCommentWeight = 0.3
)

// DiscoveryService ranks recent public posts by engagement for viewers
// exploring beyond who they follow. The scored candidate list is viewer
// independent and cached globally; per-viewer filtering and enrichment
// happen after the cache read so a shared entry never leaks one
// viewer's relationships to another.
type DiscoveryService struct {
	postRepo    repository.PostRepository
	relRepo     repository.RelationshipRepository
	accountRepo repository.AccountRepository
	store       cache.Store
	now         func() time.Time
}

func NewDiscoveryService(
	postRepo repository.PostRepository,
	relRepo repository.RelationshipRepository,
	accountRepo repository.AccountRepository,
	store cache.Store,
) *DiscoveryService {
	return &DiscoveryService{
		postRepo:    postRepo,
		relRepo:     relRepo,
		accountRepo: accountRepo,
		store:       store,
		now:         time.Now,
	}
}

// Score computes a post's discovery rank at the given time. Recency
// decays linearly per hour of age; views are dampened per thousand so
// raw impressions cannot drown out actual engagement.
func Score(post *model.Post, now time.Time) float64 {
	ageHours := now.Sub(post.CreatedAt).Hours()
	return discoveryAgeWeight*ageHours +
		discoveryViewWeight*(float64(post.ViewCount)/1000.0) +
		discoveryLikeWeight*float64(post.LikeCount) +
		discoveryCommentWeight*float64(post.CommentCount)
}

// GetDiscovery returns one page of the discovery feed for the viewer.
// Own posts and posts from blocked-either-way authors are excluded.
func (s *DiscoveryService) GetDiscovery(ctx context.Context, viewerID int64, page, limit int) (*model.DiscoveryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = FeedDefaultLimit
	}
	if limit > FeedMaxLimit {
		limit = FeedMaxLimit
	}

	candidates, err := s.scoredCandidates(ctx)
	if err != nil {
		return nil, err
	}

	blocked, err := s.blockedSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	filtered := make([]model.DiscoveryPost, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.AuthorID == viewerID {
			continue
		}
		if _, ok := blocked[candidate.AuthorID]; ok {
			continue
		}
		filtered = append(filtered, candidate)
	}

	offset := (page - 1) * limit
	if offset >= len(filtered) {
		return &model.DiscoveryResponse{Posts: []model.DiscoveryPost{}, Page: page}, nil
	}

	end := offset + limit
	hasMore := end < len(filtered)
	if !hasMore {
		end = len(filtered)
	}
	pagePosts := filtered[offset:end]

	enriched, err := s.enrich(ctx, viewerID, pagePosts)
	if err != nil {
		return nil, err
	}

	return &model.DiscoveryResponse{Posts: enriched, Page: page, HasMore: hasMore}, nil
}

// scoredCandidates returns the global scored, sorted candidate list,
// refreshed through the cache on expiry. Scores are computed once per
// refresh, not per request, so every viewer pages over the same
// ordering within a cache window.
func (s *DiscoveryService) scoredCandidates(ctx context.Context) ([]model.DiscoveryPost, error) {
	cacheKey := cache.DiscoveryKey()

	if s.store != nil {
		var cached []model.DiscoveryPost
		hit, err := s.store.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Printf("[DiscoveryService] Cache read failed: err=%v", err)
		} else if hit {
			return cached, nil
		}
	}

	posts, err := s.postRepo.ListDiscoveryCandidates(ctx, DiscoveryCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list discovery candidates: %w", err)
	}

	now := s.now()
	candidates := make([]model.DiscoveryPost, len(posts))
	for i, post := range posts {
		candidates[i] = model.DiscoveryPost{
			FeedPost: model.FeedPost{Post: post},
			Score:    Score(&post, now),
		}
	}

	// Highest score first; newer post wins a score tie.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	if s.store != nil {
		if err := s.store.Set(ctx, cacheKey, candidates, cache.DiscoveryTTL); err != nil {
			log.Printf("[DiscoveryService] Cache write failed: err=%v", err)
		}
	}
	return candidates, nil
}

func (s *DiscoveryService) blockedSet(ctx context.Context, viewerID int64) (map[int64]struct{}, error) {
	blockedIDs, err := s.relRepo.GetBlockedIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("get blocked ids: %w", err)
	}
	blocked := make(map[int64]struct{}, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = struct{}{}
	}
	return blocked, nil
}

// enrich fills in author summaries and the viewer's like state for one
// page of already-scored posts.
func (s *DiscoveryService) enrich(ctx context.Context, viewerID int64, posts []model.DiscoveryPost) ([]model.DiscoveryPost, error) {
	if len(posts) == 0 {
		return []model.DiscoveryPost{}, nil
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
		log.Printf("[DiscoveryService] Like check failed: viewer=%d err=%v", viewerID, err)
		likes = map[int64]bool{}
	}

	enriched := make([]model.DiscoveryPost, 0, len(posts))
	for _, post := range posts {
		author, ok := authors[post.AuthorID]
		if !ok {
			continue
		}
		post.Author = author
		post.IsLiked = likes[post.ID]
		enriched = append(enriched, post)
	}
	return enriched, nil
}
