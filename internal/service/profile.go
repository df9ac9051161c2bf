package service

import (
	"context"
	"log"

	"aufy/internal/cache"
	"aufy/internal/model"
	"aufy/internal/privacy"
	"aufy/internal/repository"
)

// ProfileService assembles the profile view a viewer is entitled to.
// Accounts are cached under both the id and handle keys; every edge
// mutation touching the account invalidates the id key synchronously,
// and external account-settings changes announce themselves through
// cache.Coherence.OnProfileChange.
type ProfileService struct {
	accountRepo repository.AccountRepository
	relRepo     repository.RelationshipRepository
	privacySvc  *PrivacyService
	store       cache.Store
}

func NewProfileService(
	accountRepo repository.AccountRepository,
	relRepo repository.RelationshipRepository,
	privacySvc *PrivacyService,
	store cache.Store,
) *ProfileService {
	return &ProfileService{
		accountRepo: accountRepo,
		relRepo:     relRepo,
		privacySvc:  privacySvc,
		store:       store,
	}
}

// GetProfile returns the profile for a username as seen by the viewer.
// A blocked viewer gets account-not-found; a private account shows its
// basic profile and counters but flags posts as not viewable.
func (s *ProfileService) GetProfile(ctx context.Context, viewerID int64, username string) (*model.ProfileView, error) {
	account, err := s.getAccountByHandle(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, viewerID, account)
}

// GetProfileByID is GetProfile for callers that already hold the id.
func (s *ProfileService) GetProfileByID(ctx context.Context, viewerID, targetID int64) (*model.ProfileView, error) {
	account, err := s.getAccountByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, viewerID, account)
}

func (s *ProfileService) buildView(ctx context.Context, viewerID int64, account *model.Account) (*model.ProfileView, error) {
	basic, err := s.privacySvc.CanView(ctx, viewerID, account, privacy.ClassBasicProfile)
	if err != nil {
		return nil, err
	}
	if !basic.Allowed {
		// Basic profile denials only come from blocks, which hide
		// existence.
		return nil, model.ErrAccountNotFound
	}

	posts, err := s.privacySvc.CanView(ctx, viewerID, account, privacy.ClassPosts)
	if err != nil {
		return nil, err
	}

	view := &model.ProfileView{
		Account:      *account,
		CanViewPosts: posts.Allowed,
	}

	if viewerID != AnonymousViewer && viewerID != account.ID {
		edge, err := s.relRepo.GetFollow(ctx, viewerID, account.ID)
		if err != nil {
			return nil, err
		}
		if edge != nil {
			view.IsFollowing = edge.Status == model.FollowStatusActive
			view.IsRequested = edge.Status == model.FollowStatusPending
		}
	}

	return view, nil
}

// getAccountByHandle resolves username -> id through the handle cache,
// then reads the account through the id key. The handle entry holds
// only the id: mutations invalidate by id, so the full account must
// never hide behind a key they cannot compute.
func (s *ProfileService) getAccountByHandle(ctx context.Context, username string) (*model.Account, error) {
	if s.store != nil {
		var id int64
		hit, err := s.store.Get(ctx, cache.ProfileHandleKey(username), &id)
		if err == nil && hit {
			return s.getAccountByID(ctx, id)
		}
	}

	account, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	s.cacheAccount(ctx, account)
	return account, nil
}

func (s *ProfileService) getAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	key := cache.ProfileKey(id)
	if account, ok := s.cachedAccount(ctx, key); ok {
		return account, nil
	}

	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheAccount(ctx, account)
	return account, nil
}

func (s *ProfileService) cachedAccount(ctx context.Context, key string) (*model.Account, bool) {
	if s.store == nil {
		return nil, false
	}
	var account model.Account
	hit, err := s.store.Get(ctx, key, &account)
	if err != nil {
		// Fail open to the store.
		return nil, false
	}
	if !hit {
		return nil, false
	}
	return &account, true
}

func (s *ProfileService) cacheAccount(ctx context.Context, account *model.Account) {
	if s.store == nil {
		return
	}
	if err := s.store.Set(ctx, cache.ProfileKey(account.ID), account, cache.ProfileTTL); err != nil {
		log.Printf("[ProfileService] Cache set failed: user=%d err=%v", account.ID, err)
	}
	if err := s.store.Set(ctx, cache.ProfileHandleKey(account.Username), account.ID, cache.ProfileTTL); err != nil {
		log.Printf("[ProfileService] Handle cache set failed: user=%d err=%v", account.ID, err)
	}
}
