package service

import (
	"context"

	"aufy/internal/model"
	"aufy/internal/privacy"
	"aufy/internal/repository"
)

// PrivacyService gathers the relationship facts a visibility decision
// needs and delegates the decision itself to the pure policy table.
// Facts always come from the repositories, never from the display
// cache, so a stale or lost cache entry can never widen visibility.
type PrivacyService struct {
	relRepo     repository.RelationshipRepository
	accountRepo repository.AccountRepository
}

func NewPrivacyService(relRepo repository.RelationshipRepository, accountRepo repository.AccountRepository) *PrivacyService {
	return &PrivacyService{relRepo: relRepo, accountRepo: accountRepo}
}

// AnonymousViewer marks a request with no authenticated subject.
// Anonymous viewers hold no relationship to anyone, so they see only
// what rule order grants every stranger.
const AnonymousViewer int64 = 0

// CanView decides whether the viewer may see the given content class of
// the target account.
func (s *PrivacyService) CanView(ctx context.Context, viewerID int64, target *model.Account, class privacy.ContentClass) (privacy.Decision, error) {
	facts, err := s.gatherFacts(ctx, viewerID, target.ID)
	if err != nil {
		return privacy.Decision{}, err
	}
	return privacy.Decide(viewerID, target, facts, class), nil
}

// CanViewAccount resolves the target by id first; a deny with hidden
// existence collapses to account-not-found before the caller ever sees
// the account.
func (s *PrivacyService) CanViewAccount(ctx context.Context, viewerID, targetID int64, class privacy.ContentClass) (*model.Account, privacy.Decision, error) {
	target, err := s.accountRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, privacy.Decision{}, err
	}

	decision, err := s.CanView(ctx, viewerID, target, class)
	if err != nil {
		return nil, privacy.Decision{}, err
	}
	if decision.HideExistence {
		return nil, privacy.Decision{}, model.ErrAccountNotFound
	}
	return target, decision, nil
}

func (s *PrivacyService) gatherFacts(ctx context.Context, viewerID, targetID int64) (privacy.Facts, error) {
	if viewerID == AnonymousViewer || viewerID == targetID {
		return privacy.Facts{}, nil
	}

	blocked, err := s.relRepo.BlockExists(ctx, viewerID, targetID)
	if err != nil {
		return privacy.Facts{}, err
	}
	if blocked {
		return privacy.Facts{Blocked: true}, nil
	}

	follows, err := s.relRepo.IsFollowingActive(ctx, viewerID, targetID)
	if err != nil {
		return privacy.Facts{}, err
	}
	return privacy.Facts{ViewerFollowsActive: follows}, nil
}
