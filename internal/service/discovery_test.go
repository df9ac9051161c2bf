package service

import (
	"context"
	"math"
	"testing"
	"time"

	"aufy/internal/cache"
	"aufy/internal/model"
)

func TestScore_Formula(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		post model.Post
		want float64
	}{
		{
			name: "fresh post with no engagement scores zero",
			post: model.Post{CreatedAt: now},
			want: 0,
		},
		{
			name: "likes weigh heaviest",
			post: model.Post{CreatedAt: now, LikeCount: 10},
			want: 5.0,
		},
		{
			name: "views dampened per thousand",
			post: model.Post{CreatedAt: now, ViewCount: 1000},
			want: 0.3,
		},
		{
			name: "age decays linearly",
			post: model.Post{CreatedAt: now.Add(-10 * time.Hour)},
			want: -1.0,
		},
		{
			name: "combined",
			post: model.Post{
				CreatedAt:    now.Add(-2 * time.Hour),
				ViewCount:    2000,
				LikeCount:    4,
				CommentCount: 3,
			},
			// -0.2 + 0.6 + 2.0 + 0.9
			want: 3.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(&tt.post, now)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_EngagementMonotonicity(t *testing.T) {
	// Holding everything else fixed, more engagement never lowers the
	// score and more age never raises it.
	now := time.Now()
	base := model.Post{CreatedAt: now.Add(-time.Hour), LikeCount: 5, CommentCount: 2, ViewCount: 500}
	baseScore := Score(&base, now)

	moreLikes := base
	moreLikes.LikeCount++
	if Score(&moreLikes, now) <= baseScore {
		t.Error("extra like must raise the score")
	}

	moreComments := base
	moreComments.CommentCount++
	if Score(&moreComments, now) <= baseScore {
		t.Error("extra comment must raise the score")
	}

	moreViews := base
	moreViews.ViewCount += 1000
	if Score(&moreViews, now) <= baseScore {
		t.Error("extra views must raise the score")
	}

	older := base
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	if Score(&older, now) >= baseScore {
		t.Error("extra age must lower the score")
	}
}

func newTestDiscoveryService(postRepo *mockPostRepo, relRepo *mockRelationshipRepo, store cache.Store) *DiscoveryService {
	return NewDiscoveryService(postRepo, relRepo, summaryAccountRepo(), store)
}

func TestDiscoveryService_GetDiscovery_OrdersByScoreThenRecency(t *testing.T) {
	now := time.Now()
	postRepo := &mockPostRepo{
		listDiscoveryFn: func(ctx context.Context, limit int) ([]model.Post, error) {
			return []model.Post{
				{ID: 1, AuthorID: 10, CreatedAt: now, LikeCount: 1},
				{ID: 2, AuthorID: 11, CreatedAt: now, LikeCount: 10},
				// Same score as post 1 but newer: wins the tie.
				{ID: 3, AuthorID: 12, CreatedAt: now.Add(time.Minute), LikeCount: 1},
			}, nil
		},
	}
	svc := newTestDiscoveryService(postRepo, &mockRelationshipRepo{}, nil)
	svc.now = func() time.Time { return now }

	resp, err := svc.GetDiscovery(context.Background(), 1, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Posts) != 3 {
		t.Fatalf("len(posts) = %d, want 3", len(resp.Posts))
	}

	var gotOrder []int64
	for _, p := range resp.Posts {
		gotOrder = append(gotOrder, p.ID)
	}
	wantOrder := []int64{2, 3, 1}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
		}
	}
}

func TestDiscoveryService_GetDiscovery_EngagementCanOutweighFreshness(t *testing.T) {
	// Freshness is only one term of the score. A week-old post with
	// heavy engagement must outrank an hour-old post with modest
	// engagement, while the same age with little engagement sinks.
	now := time.Now()
	postRepo := &mockPostRepo{
		listDiscoveryFn: func(ctx context.Context, limit int) ([]model.Post, error) {
			return []model.Post{
				// -0.1*1 + 0.5*50 = 24.9
				{ID: 1, AuthorID: 10, CreatedAt: now.Add(-1 * time.Hour), LikeCount: 50},
				// -0.1*100 + 0.5*5 = -7.5
				{ID: 2, AuthorID: 11, CreatedAt: now.Add(-100 * time.Hour), LikeCount: 5},
				// -0.1*100 + 0.5*500 = 240
				{ID: 3, AuthorID: 12, CreatedAt: now.Add(-100 * time.Hour), LikeCount: 500},
			}, nil
		},
	}
	svc := newTestDiscoveryService(postRepo, &mockRelationshipRepo{}, nil)
	svc.now = func() time.Time { return now }

	resp, err := svc.GetDiscovery(context.Background(), 1, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var gotOrder []int64
	for _, p := range resp.Posts {
		gotOrder = append(gotOrder, p.ID)
	}
	wantOrder := []int64{3, 1, 2}
	if len(gotOrder) != len(wantOrder) {
		t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
	}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
		}
	}
}

func TestDiscoveryService_GetDiscovery_FiltersSelfAndBlocked(t *testing.T) {
	now := time.Now()
	postRepo := &mockPostRepo{
		listDiscoveryFn: func(ctx context.Context, limit int) ([]model.Post, error) {
			return []model.Post{
				{ID: 1, AuthorID: 1, CreatedAt: now},  // viewer's own
				{ID: 2, AuthorID: 10, CreatedAt: now}, // blocked
				{ID: 3, AuthorID: 11, CreatedAt: now},
			}, nil
		},
	}
	relRepo := &mockRelationshipRepo{
		getBlockedIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
			return []int64{10}, nil
		},
	}
	svc := newTestDiscoveryService(postRepo, relRepo, nil)

	resp, err := svc.GetDiscovery(context.Background(), 1, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Posts) != 1 || resp.Posts[0].ID != 3 {
		t.Errorf("posts = %+v, want only post 3", resp.Posts)
	}
}

func TestDiscoveryService_GetDiscovery_SharedCachePerViewerFilter(t *testing.T) {
	// The candidate cache is global; the per-viewer block filter must
	// apply AFTER the cache read so viewer A's entry cannot leak posts
	// viewer B is not allowed to see.
	now := time.Now()
	postRepo := &mockPostRepo{
		listDiscoveryFn: func(ctx context.Context, limit int) ([]model.Post, error) {
			return []model.Post{
				{ID: 1, AuthorID: 10, CreatedAt: now},
				{ID: 2, AuthorID: 11, CreatedAt: now},
			}, nil
		},
	}
	relRepo := &mockRelationshipRepo{
		getBlockedIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
			if userID == 2 {
				return []int64{10}, nil
			}
			return nil, nil
		},
	}

	// An in-memory store shared between both viewers' requests.
	var cached interface{}
	store := &mockStore{
		getFn: func(ctx context.Context, key string, dest interface{}) (bool, error) {
			if cached == nil {
				return false, nil
			}
			*dest.(*[]model.DiscoveryPost) = cached.([]model.DiscoveryPost)
			return true, nil
		},
		setFn: func(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
			cached = value
			return nil
		},
	}
	svc := newTestDiscoveryService(postRepo, relRepo, store)

	respA, err := svc.GetDiscovery(context.Background(), 1, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(respA.Posts) != 2 {
		t.Fatalf("viewer 1 posts = %d, want 2", len(respA.Posts))
	}

	respB, err := svc.GetDiscovery(context.Background(), 2, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(respB.Posts) != 1 || respB.Posts[0].ID != 2 {
		t.Errorf("viewer 2 posts = %+v, want only post 2", respB.Posts)
	}

	if postRepo.listDiscoveryCalls != 1 {
		t.Errorf("candidate query ran %d times, want 1 (second viewer hits cache)", postRepo.listDiscoveryCalls)
	}
}

func TestDiscoveryService_GetDiscovery_Pagination(t *testing.T) {
	now := time.Now()
	postRepo := &mockPostRepo{
		listDiscoveryFn: func(ctx context.Context, limit int) ([]model.Post, error) {
			var posts []model.Post
			for i := int64(1); i <= 5; i++ {
				posts = append(posts, model.Post{ID: i, AuthorID: 10 + i, CreatedAt: now, LikeCount: int(6 - i)})
			}
			return posts, nil
		},
	}
	svc := newTestDiscoveryService(postRepo, &mockRelationshipRepo{}, nil)

	page1, err := svc.GetDiscovery(context.Background(), 1, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page1.Posts) != 2 || !page1.HasMore {
		t.Fatalf("page 1 = %d posts hasMore=%v, want 2/true", len(page1.Posts), page1.HasMore)
	}

	page3, err := svc.GetDiscovery(context.Background(), 1, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page3.Posts) != 1 || page3.HasMore {
		t.Fatalf("page 3 = %d posts hasMore=%v, want 1/false", len(page3.Posts), page3.HasMore)
	}

	page4, err := svc.GetDiscovery(context.Background(), 1, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page4.Posts) != 0 || page4.HasMore {
		t.Fatalf("page past the end = %d posts hasMore=%v, want 0/false", len(page4.Posts), page4.HasMore)
	}
}
