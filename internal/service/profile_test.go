package service

import (
	"context"
	"errors"
	"testing"

	"aufy/internal/cache"
	"aufy/internal/model"
)

func newTestProfileService(relRepo *mockRelationshipRepo, accountRepo *mockAccountRepo, store cache.Store) *ProfileService {
	return NewProfileService(accountRepo, relRepo, NewPrivacyService(relRepo, accountRepo), store)
}

func handleAccountRepo(account *model.Account) *mockAccountRepo {
	return &mockAccountRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*model.Account, error) {
			if username == account.Username {
				return account, nil
			}
			return nil, model.ErrAccountNotFound
		},
		getByIDFn: func(ctx context.Context, id int64) (*model.Account, error) {
			if id == account.ID {
				return account, nil
			}
			return nil, model.ErrAccountNotFound
		},
	}
}

func TestProfileService_GetProfile_BlockedViewerSeesNotFound(t *testing.T) {
	target := publicAccount(2)
	target.Username = "target"
	relRepo := &mockRelationshipRepo{
		blockExistsFn: func(ctx context.Context, a, b int64) (bool, error) {
			return true, nil
		},
	}
	svc := newTestProfileService(relRepo, handleAccountRepo(target), nil)

	_, err := svc.GetProfile(context.Background(), 1, "target")

	if !errors.Is(err, model.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestProfileService_GetProfile_PrivateAccountGatesPostsOnly(t *testing.T) {
	target := privateAccount(2)
	target.Username = "target"
	target.FollowerCount = 42

	tests := []struct {
		name         string
		edge         *model.Follow
		canViewPosts bool
		isFollowing  bool
		isRequested  bool
	}{
		{
			name: "stranger sees basic profile but no posts",
		},
		{
			name:         "active follower sees posts",
			edge:         &model.Follow{Status: model.FollowStatusActive},
			canViewPosts: true,
			isFollowing:  true,
		},
		{
			name:        "pending request grants nothing but shows as requested",
			edge:        &model.Follow{Status: model.FollowStatusPending},
			isRequested: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relRepo := &mockRelationshipRepo{
				getFollowFn: func(ctx context.Context, followerID, followeeID int64) (*model.Follow, error) {
					return tt.edge, nil
				},
				isFollowingActiveFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
					return tt.edge != nil && tt.edge.Status == model.FollowStatusActive, nil
				},
			}
			svc := newTestProfileService(relRepo, handleAccountRepo(target), nil)

			view, err := svc.GetProfile(context.Background(), 1, "target")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// Basic profile and counters are always visible.
			if view.Username != "target" || view.FollowerCount != 42 {
				t.Error("basic profile fields missing")
			}
			if view.CanViewPosts != tt.canViewPosts {
				t.Errorf("can_view_posts = %v, want %v", view.CanViewPosts, tt.canViewPosts)
			}
			if view.IsFollowing != tt.isFollowing {
				t.Errorf("is_following = %v, want %v", view.IsFollowing, tt.isFollowing)
			}
			if view.IsRequested != tt.isRequested {
				t.Errorf("is_requested = %v, want %v", view.IsRequested, tt.isRequested)
			}
		})
	}
}

func TestProfileService_GetProfile_OwnerAlwaysSeesOwnPosts(t *testing.T) {
	target := privateAccount(2)
	target.Username = "target"
	svc := newTestProfileService(&mockRelationshipRepo{}, handleAccountRepo(target), nil)

	view, err := svc.GetProfile(context.Background(), 2, "target")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !view.CanViewPosts {
		t.Error("owner must see own posts")
	}
}

func TestProfileService_GetProfile_HandleCacheResolvesToIDKey(t *testing.T) {
	target := publicAccount(2)
	target.Username = "target"
	store := &mockStore{}
	svc := newTestProfileService(&mockRelationshipRepo{}, handleAccountRepo(target), store)

	if _, err := svc.GetProfile(context.Background(), 0, "target"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Full account under the id key, bare id under the handle key: the
	// invalidation path only knows ids.
	want := map[string]bool{
		cache.ProfileKey(2):              true,
		cache.ProfileHandleKey("target"): true,
	}
	if len(store.setCalls) != 2 {
		t.Fatalf("set calls = %v, want id and handle keys", store.setCalls)
	}
	for _, key := range store.setCalls {
		if !want[key] {
			t.Errorf("unexpected cache key %q", key)
		}
	}
}
