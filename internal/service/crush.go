package service

import (
	"context"
	"log"

	"aufy/internal/model"
	"aufy/internal/pairing"
	"aufy/internal/queue"
	"aufy/internal/repository"
)

// CrushService manages secret-crush entries. An entry is invisible to
// its target until both sides have one, at which point the detector
// marks the pair mutual and the match event carries the shared pair
// key as the chat channel.
type CrushService struct {
	crushRepo   repository.CrushRepository
	accountRepo repository.AccountRepository
	relRepo     repository.RelationshipRepository
	crushPair   *pairing.Detector
}

func NewCrushService(
	crushRepo repository.CrushRepository,
	accountRepo repository.AccountRepository,
	relRepo repository.RelationshipRepository,
	publisher queue.Publisher,
) *CrushService {
	return &CrushService{
		crushRepo:   crushRepo,
		accountRepo: accountRepo,
		relRepo:     relRepo,
		crushPair: pairing.NewDetector("crush", crushRepo, &mutualEvents{
			publisher: publisher,
			matched:   queue.NewCrushMatchedEvent,
			ended:     queue.NewCrushEndedEvent,
		}),
	}
}

// Add records a crush on the target. The target learns nothing unless
// they already hold a crush back, in which case both sides match.
func (s *CrushService) Add(ctx context.Context, ownerID, targetID int64) (*model.CrushEntry, error) {
	if ownerID == targetID {
		return nil, model.ErrCannotCrushSelf
	}

	if _, err := s.accountRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	blocked, err := s.relRepo.BlockExists(ctx, ownerID, targetID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, model.ErrAccountNotFound
	}

	count, err := s.crushRepo.CountActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if count >= model.MaxActiveCrushes {
		return nil, model.ErrCrushLimitReached
	}

	created, err := s.crushRepo.Upsert(ctx, ownerID, targetID)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, model.ErrCrushExists
	}

	mutual, pairKey, err := s.crushPair.Check(ctx, ownerID, targetID)
	if err != nil {
		// The entry is in place; the next Check for the pair converges.
		log.Printf("[CrushService] Mutual check failed: owner=%d target=%d err=%v", ownerID, targetID, err)
	}

	entry, err := s.crushRepo.GetActive(ctx, ownerID, targetID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, model.ErrCrushNotFound
	}

	if mutual {
		log.Printf("[CrushService] Match: owner=%d target=%d pairKey=%s", ownerID, targetID, pairKey)
	}
	return entry, nil
}

// Remove deactivates the owner's crush on the target. If the pair was
// mutual the match dissolves for both sides and the target is told only
// that the match ended, not who withdrew first.
func (s *CrushService) Remove(ctx context.Context, ownerID, targetID int64) error {
	wasMutual, found, err := s.crushRepo.Deactivate(ctx, ownerID, targetID)
	if err != nil {
		return err
	}
	if !found {
		return model.ErrCrushNotFound
	}

	if err := s.crushPair.Drop(ctx, ownerID, targetID, wasMutual); err != nil {
		log.Printf("[CrushService] Drop failed: owner=%d target=%d err=%v", ownerID, targetID, err)
	}

	log.Printf("[CrushService] Remove OK: owner=%d target=%d wasMutual=%v", ownerID, targetID, wasMutual)
	return nil
}

// List returns the owner's active crushes with target summaries. Only
// the owner ever sees this list.
func (s *CrushService) List(ctx context.Context, ownerID int64) (*model.CrushListResponse, error) {
	entries, err := s.crushRepo.ListActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	targetIDs := make([]int64, len(entries))
	for i, entry := range entries {
		targetIDs[i] = entry.TargetID
	}

	summaries, err := s.accountRepo.GetSummaries(ctx, targetIDs)
	if err != nil {
		return nil, err
	}

	items := make([]model.CrushListItem, 0, len(entries))
	for _, entry := range entries {
		summary, ok := summaries[entry.TargetID]
		if !ok {
			// Target account deleted since the entry was created.
			continue
		}
		item := model.CrushListItem{
			Target:   summary,
			IsMutual: entry.IsMutual,
			AddedAt:  entry.CreatedAt,
		}
		if entry.IsMutual {
			item.PairKey = entry.PairKey
		}
		items = append(items, item)
	}

	return &model.CrushListResponse{Entries: items}, nil
}
